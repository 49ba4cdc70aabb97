package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"feed-import-service/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3FeedStore keeps the parsed records of each feed as JSON objects in an
// S3 bucket, one prefix per import.
type S3FeedStore struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3FeedStore(client *s3.Client, bucket, prefix string) *S3FeedStore {
	return &S3FeedStore{client: client, bucket: bucket, prefix: prefix}
}

type feedDocument struct {
	Fields  []string               `json:"fields"`
	Records []models.ProductRecord `json:"records"`
}

func (s *S3FeedStore) key(importID uuid.UUID) string {
	return fmt.Sprintf("%simports/%s/feed.json", s.prefix, importID)
}

func (s *S3FeedStore) SaveFeed(ctx context.Context, importID uuid.UUID, fields []string, records []models.ProductRecord) error {
	data, err := json.Marshal(feedDocument{Fields: fields, Records: records})
	if err != nil {
		return fmt.Errorf("marshal feed: %w", err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(importID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("store feed: %w", err)
	}
	return nil
}

func (s *S3FeedStore) load(ctx context.Context, importID uuid.UUID) (*feedDocument, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(importID)),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}
	var doc feedDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}
	return &doc, nil
}

func (s *S3FeedStore) Fields(ctx context.Context, importID uuid.UUID) ([]string, error) {
	doc, err := s.load(ctx, importID)
	if err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

func (s *S3FeedStore) Slice(ctx context.Context, importID uuid.UUID, offset, limit int) ([]models.ProductRecord, error) {
	doc, err := s.load(ctx, importID)
	if err != nil {
		return nil, err
	}
	return sliceRecords(doc.Records, offset, limit)
}

func (s *S3FeedStore) Count(ctx context.Context, importID uuid.UUID) (int, error) {
	doc, err := s.load(ctx, importID)
	if err != nil {
		return 0, err
	}
	return len(doc.Records), nil
}

func sliceRecords(records []models.ProductRecord, offset, limit int) ([]models.ProductRecord, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("invalid slice bounds offset=%d limit=%d", offset, limit)
	}
	if offset >= len(records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(records) {
		end = len(records)
	}
	return records[offset:end], nil
}
