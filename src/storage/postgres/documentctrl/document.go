package documentctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type IndexStatus string

const (
	IndexStatusArchived IndexStatus = "archived"
	IndexStatusIndexed  IndexStatus = "indexed"
	IndexStatusFailed   IndexStatus = "failed"
)

// Document is the archive record of one uploaded file.
type Document struct {
	ID        int64       `gorm:"primaryKey" json:"id"`
	SessionID string      `gorm:"not null;column:session_id" json:"session_id"`
	Filename  string      `gorm:"not null" json:"filename"`
	MinioURL  string      `gorm:"not null;column:minio_url" json:"minio_url"` // bucket name + object name
	Status    IndexStatus `gorm:"not null" json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type DocumentService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewDocumentService(db *gorm.DB) (*DocumentService, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &DocumentService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *DocumentService) Create(ctx context.Context, sessionID, filename, minioURL string) (*Document, error) {
	doc := &Document{
		ID:        s.snowflake.Generate().Int64(),
		SessionID: sessionID,
		Filename:  filename,
		MinioURL:  minioURL,
		Status:    IndexStatusArchived,
	}

	result := s.db.WithContext(ctx).Create(doc)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create document record: %w", result.Error)
	}

	return doc, nil
}

func (s *DocumentService) GetByID(ctx context.Context, id int64) (*Document, error) {
	var doc Document
	result := s.db.WithContext(ctx).First(&doc, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document record: %w", result.Error)
	}
	return &doc, nil
}

func (s *DocumentService) List(ctx context.Context, limit, offset int) ([]Document, error) {
	var docs []Document
	result := s.db.WithContext(ctx).Order("created_at desc").Limit(limit).Offset(offset).Find(&docs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list document records: %w", result.Error)
	}
	return docs, nil
}

func (s *DocumentService) UpdateStatus(ctx context.Context, id int64, status IndexStatus) error {
	result := s.db.WithContext(ctx).Model(&Document{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return fmt.Errorf("failed to update document status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.New("document not found")
	}
	return nil
}
