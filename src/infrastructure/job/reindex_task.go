package job

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/weaviate/weaviate/entities/models"

	"docchat/src/core/chat"
	"docchat/src/core/chunk"
	"docchat/src/core/ingest"
	"docchat/src/infrastructure/log"
	"docchat/src/storage/minioctrl"
	"docchat/src/storage/postgres/documentctrl"
	"docchat/src/storage/weaviate"
)

const TaskTypeReindex = "reindex"

// ReindexPayload names the archived document to re-ingest.
type ReindexPayload struct {
	DocumentID int64 `json:"document_id"`
}

// ReindexTask rebuilds the persistent index class of one archived
// document: fetch the original from object storage, extract, chunk,
// embed and store the vectors under a class named after the document.
type ReindexTask struct {
	documentService *documentctrl.DocumentService
	minioService    *minioctrl.MinioService
	weaviateSDK     *weaviate.SDK
	llm             chat.LLM
	credential      string
	ingestor        *ingest.Ingestor
	splitter        *chunk.Splitter
}

func NewReindexTask(
	documentService *documentctrl.DocumentService,
	minioService *minioctrl.MinioService,
	weaviateSDK *weaviate.SDK,
	llm chat.LLM,
	credential string,
) *ReindexTask {
	return &ReindexTask{
		documentService: documentService,
		minioService:    minioService,
		weaviateSDK:     weaviateSDK,
		llm:             llm,
		credential:      credential,
		ingestor:        ingest.NewIngestor(),
		splitter:        chunk.NewSplitter(),
	}
}

func documentClassName(id int64) string {
	return fmt.Sprintf("Document_%d", id)
}

func (task *ReindexTask) HandleReindexTask(ctx context.Context, payload json.RawMessage) error {
	var reindexPayload ReindexPayload
	if err := json.Unmarshal(payload, &reindexPayload); err != nil {
		return fmt.Errorf("failed to unmarshal reindex payload: %w", err)
	}

	doc, err := task.documentService.GetByID(ctx, reindexPayload.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document not found: %d", reindexPayload.DocumentID)
	}

	if err := task.reindex(ctx, doc); err != nil {
		if statusErr := task.documentService.UpdateStatus(ctx, doc.ID, documentctrl.IndexStatusFailed); statusErr != nil {
			log.Error(statusErr, "failed to mark document as failed", "document_id", doc.ID)
		}
		return err
	}

	return task.documentService.UpdateStatus(ctx, doc.ID, documentctrl.IndexStatusIndexed)
}

func (task *ReindexTask) reindex(ctx context.Context, doc *documentctrl.Document) error {
	// MinioURL format is "bucket/objectKey"; objectKey may contain slashes.
	parts := strings.SplitN(doc.MinioURL, "/", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid minio URL format: %s", doc.MinioURL)
	}
	content, err := task.minioService.GetObject(ctx, parts[0], parts[1])
	if err != nil {
		return fmt.Errorf("failed to get archived original: %w", err)
	}

	segments, err := task.ingestor.Ingest(ctx, doc.Filename, bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	chunks, err := task.splitter.SplitSegments(segments)
	if err != nil {
		return fmt.Errorf("failed to split text: %w", err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("document %d yielded no indexable content", doc.ID)
	}

	className := documentClassName(doc.ID)

	// Replace any previous class for this document.
	if err := task.weaviateSDK.DeleteSchema(ctx, className); err != nil {
		log.Debug("no previous class to delete", "class", className, "err", err.Error())
	}

	properties := []*models.Property{
		{
			Name:     "content",
			DataType: []string{"text"},
		},
		{
			Name:     "source",
			DataType: []string{"text"},
		},
		{
			Name:     "ord",
			DataType: []string{"int"},
		},
	}
	if err := task.weaviateSDK.CreateSchema(ctx, className, properties); err != nil {
		return fmt.Errorf("failed to create class: %w", err)
	}

	objects := make([]weaviate.VectorObject, 0, len(chunks))
	for _, c := range chunks {
		vector, err := task.llm.Embed(ctx, task.credential, c.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", c.Index, err)
		}
		objects = append(objects, weaviate.VectorObject{
			Vector: vector,
			Properties: map[string]interface{}{
				"content": c.Content,
				"source":  c.Source,
				"ord":     c.Index,
			},
		})
	}

	if err := task.weaviateSDK.BatchAddVectors(ctx, className, objects); err != nil {
		return fmt.Errorf("failed to store vectors: %w", err)
	}

	return nil
}
