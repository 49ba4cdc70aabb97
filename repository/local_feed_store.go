package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"feed-import-service/models"

	"github.com/google/uuid"
)

// LocalFeedStore is the filesystem counterpart of S3FeedStore, used when
// no object storage is configured.
type LocalFeedStore struct {
	dir string
}

func NewLocalFeedStore(dir string) (*LocalFeedStore, error) {
	if dir == "" {
		dir = "./data/feeds"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create feed storage dir: %w", err)
	}
	return &LocalFeedStore{dir: dir}, nil
}

func (s *LocalFeedStore) path(importID uuid.UUID) string {
	return filepath.Join(s.dir, importID.String()+".json")
}

func (s *LocalFeedStore) SaveFeed(ctx context.Context, importID uuid.UUID, fields []string, records []models.ProductRecord) error {
	data, err := json.Marshal(feedDocument{Fields: fields, Records: records})
	if err != nil {
		return fmt.Errorf("marshal feed: %w", err)
	}
	if err := os.WriteFile(s.path(importID), data, 0o644); err != nil {
		return fmt.Errorf("store feed: %w", err)
	}
	return nil
}

func (s *LocalFeedStore) load(importID uuid.UUID) (*feedDocument, error) {
	data, err := os.ReadFile(s.path(importID))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	var doc feedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return &doc, nil
}

func (s *LocalFeedStore) Fields(ctx context.Context, importID uuid.UUID) ([]string, error) {
	doc, err := s.load(importID)
	if err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

func (s *LocalFeedStore) Slice(ctx context.Context, importID uuid.UUID, offset, limit int) ([]models.ProductRecord, error) {
	doc, err := s.load(importID)
	if err != nil {
		return nil, err
	}
	return sliceRecords(doc.Records, offset, limit)
}

func (s *LocalFeedStore) Count(ctx context.Context, importID uuid.UUID) (int, error) {
	doc, err := s.load(importID)
	if err != nil {
		return 0, err
	}
	return len(doc.Records), nil
}
