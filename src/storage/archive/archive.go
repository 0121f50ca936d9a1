// Package archive persists uploaded originals to object storage and
// records them in postgres so they can be re-indexed in the background.
package archive

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docchat/src/storage/postgres/documentctrl"
)

type ObjectStore interface {
	EnsureBucketExists(ctx context.Context, bucketName string) error
	PutObject(ctx context.Context, bucketName, objectName string, data []byte) error
}

type DocumentRecorder interface {
	Create(ctx context.Context, sessionID, filename, minioURL string) (*documentctrl.Document, error)
}

type Archiver struct {
	store    ObjectStore
	recorder DocumentRecorder
	bucket   string
}

func NewArchiver(store ObjectStore, recorder DocumentRecorder, bucket string) (*Archiver, error) {
	if err := store.EnsureBucketExists(context.Background(), bucket); err != nil {
		return nil, fmt.Errorf("failed to ensure archive bucket exists: %w", err)
	}
	return &Archiver{
		store:    store,
		recorder: recorder,
		bucket:   bucket,
	}, nil
}

// Archive stores the original file bytes and records their location.
func (a *Archiver) Archive(ctx context.Context, sessionID, filename string, content []byte) error {
	objectName := fmt.Sprintf("%s/%s-%s", sessionID, uuid.New().String(), filename)
	if err := a.store.PutObject(ctx, a.bucket, objectName, content); err != nil {
		return fmt.Errorf("failed to store original: %w", err)
	}

	if _, err := a.recorder.Create(ctx, sessionID, filename, fmt.Sprintf("%s/%s", a.bucket, objectName)); err != nil {
		return fmt.Errorf("failed to record document: %w", err)
	}

	return nil
}
