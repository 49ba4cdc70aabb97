package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"feed-import-service/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoImportStore persists imports and their log entries in MongoDB.
type MongoImportStore struct {
	client  *mongo.Client
	imports *mongo.Collection
	logs    *mongo.Collection
}

func NewMongoImportStore(client *mongo.Client, db *mongo.Database) *MongoImportStore {
	return &MongoImportStore{
		client:  client,
		imports: db.Collection("imports"),
		logs:    db.Collection("import_logs"),
	}
}

// EnsureIndexes creates the indexes log queries depend on.
func (s *MongoImportStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.logs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "import_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}

func (s *MongoImportStore) CreateImport(ctx context.Context, imp *models.Import) error {
	_, err := s.imports.InsertOne(ctx, imp)
	return err
}

func (s *MongoImportStore) GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	var imp models.Import
	err := s.imports.FindOne(ctx, bson.M{"_id": id}).Decode(&imp)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrImportNotFound
		}
		return nil, err
	}
	return &imp, nil
}

func (s *MongoImportStore) ListImports(ctx context.Context, limit int) ([]models.Import, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.imports.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var imports []models.Import
	if err := cursor.All(ctx, &imports); err != nil {
		return nil, err
	}
	return imports, nil
}

func (s *MongoImportStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ImportStatus) error {
	res, err := s.imports.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrImportNotFound
	}
	return nil
}

// CommitChunk advances progress and appends the chunk's log entries in one
// transaction. processed_products only ever grows: the update uses $inc
// with a non-negative delta. On deployments without replica-set
// transactions it falls back to logs-before-progress, which preserves the
// reader guarantee that progress never runs ahead of its entries.
func (s *MongoImportStore) CommitChunk(ctx context.Context, id uuid.UUID, delta int, status models.ImportStatus, logs []models.ImportLogEntry) error {
	if delta < 0 {
		return fmt.Errorf("chunk delta must be non-negative, got %d", delta)
	}

	now := time.Now().UTC()
	update := bson.M{
		"$inc": bson.M{"processed_products": delta},
		"$set": bson.M{"status": status, "last_run": now},
	}

	session, err := s.client.StartSession()
	if err == nil {
		defer session.EndSession(ctx)
		_, txErr := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
			if len(logs) > 0 {
				if _, err := s.logs.InsertMany(sc, toDocs(logs)); err != nil {
					return nil, err
				}
			}
			if _, err := s.imports.UpdateOne(sc, bson.M{"_id": id}, update); err != nil {
				return nil, err
			}
			return nil, nil
		})
		if txErr == nil {
			return nil
		}
		zap.L().Warn("chunk commit transaction failed, falling back to sequential writes",
			zap.String("import_id", id.String()), zap.Error(txErr))
	}

	if len(logs) > 0 {
		if _, err := s.logs.InsertMany(ctx, toDocs(logs)); err != nil {
			return fmt.Errorf("append chunk logs: %w", err)
		}
	}
	if _, err := s.imports.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		return fmt.Errorf("commit chunk progress: %w", err)
	}
	return nil
}

func (s *MongoImportStore) AppendLog(ctx context.Context, entry models.ImportLogEntry) error {
	_, err := s.logs.InsertOne(ctx, entry)
	return err
}

func (s *MongoImportStore) ListLogs(ctx context.Context, importID uuid.UUID, limit int, level models.LogLevel, excluding []string) ([]models.ImportLogEntry, error) {
	filter := bson.M{"import_id": importID}
	if level != "" {
		filter["level"] = level
	}
	if len(excluding) > 0 {
		filter["$and"] = excludeClauses(excluding)
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.logs.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.ImportLogEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// excludeClauses turns plain message substrings into mongo regex
// filters. Patterns are literal text, so regex metacharacters in them
// get escaped rather than interpreted.
func excludeClauses(excluding []string) []bson.M {
	clauses := make([]bson.M, 0, len(excluding))
	for _, pattern := range excluding {
		clauses = append(clauses, bson.M{"message": bson.M{"$not": bson.M{"$regex": regexp.QuoteMeta(pattern)}}})
	}
	return clauses
}

func toDocs(logs []models.ImportLogEntry) []interface{} {
	docs := make([]interface{}, len(logs))
	for i, entry := range logs {
		docs[i] = entry
	}
	return docs
}
