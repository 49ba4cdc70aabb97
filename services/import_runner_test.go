package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"feed-import-service/models"
)

type fakeImportStore struct {
	imports map[uuid.UUID]*models.Import
	logs    []models.ImportLogEntry
	commits int
}

func newFakeImportStore(imp *models.Import) *fakeImportStore {
	return &fakeImportStore{imports: map[uuid.UUID]*models.Import{imp.ID: imp}}
}

func (f *fakeImportStore) CreateImport(ctx context.Context, imp *models.Import) error {
	f.imports[imp.ID] = imp
	return nil
}

func (f *fakeImportStore) GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	imp, ok := f.imports[id]
	if !ok {
		return nil, models.ErrImportNotFound
	}
	copied := *imp
	return &copied, nil
}

func (f *fakeImportStore) ListImports(ctx context.Context, limit int) ([]models.Import, error) {
	var out []models.Import
	for _, imp := range f.imports {
		out = append(out, *imp)
	}
	return out, nil
}

func (f *fakeImportStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ImportStatus) error {
	imp, ok := f.imports[id]
	if !ok {
		return models.ErrImportNotFound
	}
	imp.Status = status
	return nil
}

func (f *fakeImportStore) CommitChunk(ctx context.Context, id uuid.UUID, delta int, status models.ImportStatus, logs []models.ImportLogEntry) error {
	imp, ok := f.imports[id]
	if !ok {
		return models.ErrImportNotFound
	}
	imp.ProcessedProducts += delta
	imp.Status = status
	f.logs = append(f.logs, logs...)
	f.commits++
	return nil
}

func (f *fakeImportStore) AppendLog(ctx context.Context, entry models.ImportLogEntry) error {
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeImportStore) ListLogs(ctx context.Context, importID uuid.UUID, limit int, level models.LogLevel, excluding []string) ([]models.ImportLogEntry, error) {
	return f.logs, nil
}

type fakeRecordSource struct {
	fields  []string
	records []models.ProductRecord
	sliceFn func(offset, limit int) ([]models.ProductRecord, error)
}

func (f *fakeRecordSource) SaveFeed(ctx context.Context, importID uuid.UUID, fields []string, records []models.ProductRecord) error {
	f.fields = fields
	f.records = records
	return nil
}

func (f *fakeRecordSource) Fields(ctx context.Context, importID uuid.UUID) ([]string, error) {
	return f.fields, nil
}

func (f *fakeRecordSource) Slice(ctx context.Context, importID uuid.UUID, offset, limit int) ([]models.ProductRecord, error) {
	if f.sliceFn != nil {
		return f.sliceFn(offset, limit)
	}
	if offset >= len(f.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.records) {
		end = len(f.records)
	}
	return f.records[offset:end], nil
}

func (f *fakeRecordSource) Count(ctx context.Context, importID uuid.UUID) (int, error) {
	return len(f.records), nil
}

type fakeCatalogStore struct {
	known      map[string]string // sku -> id
	upserts    []string
	variations int
	terms      []string
	syncs      int
	failSKUs   map[string]bool
	nextID     int
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{known: make(map[string]string), failSKUs: make(map[string]bool)}
}

func (f *fakeCatalogStore) FindBySKU(ctx context.Context, sku string) (string, error) {
	return f.known[sku], nil
}

func (f *fakeCatalogStore) UpsertProduct(ctx context.Context, dto *models.ProductDTO) (string, error) {
	if f.failSKUs[dto.SKU] {
		return "", errors.New("catalog rejected product")
	}
	id, ok := f.known[dto.SKU]
	if !ok {
		f.nextID++
		id = fmt.Sprintf("p-%d", f.nextID)
		f.known[dto.SKU] = id
	}
	f.upserts = append(f.upserts, dto.SKU)
	return id, nil
}

func (f *fakeCatalogStore) UpsertVariation(ctx context.Context, parentID string, dto *models.VariationDTO) (string, error) {
	f.variations++
	return fmt.Sprintf("%s-v%d", parentID, f.variations), nil
}

func (f *fakeCatalogStore) EnsureAttributeTerm(ctx context.Context, taxonomy, slug, displayName string) error {
	f.terms = append(f.terms, taxonomy+"/"+slug)
	return nil
}

func (f *fakeCatalogStore) SyncVariableProduct(ctx context.Context, id string) error {
	f.syncs++
	return nil
}

func simpleRecords(n int) []models.ProductRecord {
	records := make([]models.ProductRecord, n)
	for i := range records {
		records[i] = models.ProductRecord{Fields: map[string]string{
			"kods":      fmt.Sprintf("SKU-%d", i),
			"nosaukums": fmt.Sprintf("Product %d", i),
		}}
	}
	return records
}

func testImport(total, batch int) *models.Import {
	return &models.Import{
		ID:            uuid.New(),
		Name:          "supplier feed",
		FileType:      "xml",
		Status:        models.ImportStatusPreparing,
		TotalProducts: total,
		BatchSize:     batch,
		Mapping:       map[string]string{"kods": "sku", "nosaukums": "name"},
		ProductType:   "simple",
	}
}

func newTestRunner(store *fakeImportStore, feeds *fakeRecordSource, cat *fakeCatalogStore) *ImportRunner {
	return NewImportRunner(store, feeds, cat, nil, NewAttributeResolver(false), defaultBatchSize)
}

func TestProcessChunkUsesConfiguredDefaultBatch(t *testing.T) {
	imp := testImport(5, 0) // no per-import batch size
	store := newFakeImportStore(imp)
	feeds := &fakeRecordSource{records: simpleRecords(5)}
	cat := newFakeCatalogStore()
	runner := NewImportRunner(store, feeds, cat, nil, NewAttributeResolver(false), 3)

	result, err := runner.ProcessChunk(context.Background(), imp.ID)
	if err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}
	if result.ProcessedDelta != 3 {
		t.Fatalf("delta = %d, want the configured chunk size 3", result.ProcessedDelta)
	}
}

func TestProcessChunkAdvancesProgress(t *testing.T) {
	imp := testImport(5, 2)
	store := newFakeImportStore(imp)
	feeds := &fakeRecordSource{records: simpleRecords(5)}
	cat := newFakeCatalogStore()
	runner := newTestRunner(store, feeds, cat)

	result, err := runner.ProcessChunk(context.Background(), imp.ID)
	if err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}
	if result.ProcessedDelta != 2 {
		t.Fatalf("delta = %d, want 2", result.ProcessedDelta)
	}
	if result.Status != models.ImportStatusProcessing {
		t.Fatalf("status = %q, want processing", result.Status)
	}
	if store.imports[imp.ID].ProcessedProducts != 2 {
		t.Fatalf("processed = %d, want 2", store.imports[imp.ID].ProcessedProducts)
	}
	if result.CreatedCount != 2 {
		t.Fatalf("created = %d, want 2", result.CreatedCount)
	}
}

func TestProcessChunkRunsToCompletion(t *testing.T) {
	imp := testImport(5, 2)
	store := newFakeImportStore(imp)
	feeds := &fakeRecordSource{records: simpleRecords(5)}
	cat := newFakeCatalogStore()
	runner := newTestRunner(store, feeds, cat)

	var last *models.ChunkResult
	for i := 0; i < 3; i++ {
		result, err := runner.ProcessChunk(context.Background(), imp.ID)
		if err != nil {
			t.Fatalf("chunk %d failed: %v", i, err)
		}
		last = result
	}

	if last.Status != models.ImportStatusCompleted {
		t.Fatalf("final status = %q, want completed", last.Status)
	}
	if got := store.imports[imp.ID].ProcessedProducts; got != 5 {
		t.Fatalf("processed = %d, want 5", got)
	}
	if len(cat.upserts) != 5 {
		t.Fatalf("upserts = %d, want 5", len(cat.upserts))
	}

	// Completed imports are terminal: further triggers are no-ops.
	again, err := runner.ProcessChunk(context.Background(), imp.ID)
	if err != nil {
		t.Fatalf("post-completion chunk failed: %v", err)
	}
	if again.ProcessedDelta != 0 {
		t.Fatalf("terminal import still processed records: %+v", again)
	}
}

func TestProcessChunkProgressNeverDecreases(t *testing.T) {
	imp := testImport(4, 3)
	store := newFakeImportStore(imp)
	feeds := &fakeRecordSource{records: simpleRecords(4)}
	cat := newFakeCatalogStore()
	runner := newTestRunner(store, feeds, cat)

	prev := 0
	for i := 0; i < 4; i++ {
		if _, err := runner.ProcessChunk(context.Background(), imp.ID); err != nil {
			t.Fatalf("chunk %d failed: %v", i, err)
		}
		got := store.imports[imp.ID].ProcessedProducts
		if got < prev {
			t.Fatalf("progress went backwards: %d -> %d", prev, got)
		}
		prev = got
	}
}

func TestProcessChunkPartialFailureIsolation(t *testing.T) {
	imp := testImport(5, 5)
	store := newFakeImportStore(imp)
	feeds := &fakeRecordSource{records: simpleRecords(5)}
	cat := newFakeCatalogStore()
	cat.failSKUs["SKU-2"] = true
	runner := newTestRunner(store, feeds, cat)

	result, err := runner.ProcessChunk(context.Background(), imp.ID)
	if err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}

	if result.ProcessedDelta != 5 {
		t.Fatalf("delta = %d, want 5 (attempted records, failures included)", result.ProcessedDelta)
	}
	if result.FailedCount != 1 {
		t.Fatalf("failed = %d, want 1", result.FailedCount)
	}
	if len(cat.upserts) != 4 {
		t.Fatalf("upserts = %d, want 4", len(cat.upserts))
	}
	if result.Status != models.ImportStatusCompleted {
		t.Fatalf("status = %q, want completed despite one bad record", result.Status)
	}

	errorLogs := 0
	for _, entry := range result.Logs {
		if entry.Level == models.LogLevelError {
			errorLogs++
			if entry.ProductSKU != "SKU-2" {
				t.Fatalf("error log sku = %q, want SKU-2", entry.ProductSKU)
			}
		}
	}
	if errorLogs != 1 {
		t.Fatalf("error logs = %d, want 1", errorLogs)
	}
}

func TestProcessChunkMissingSKU(t *testing.T) {
	imp := testImport(1, 5)
	store := newFakeImportStore(imp)
	feeds := &fakeRecordSource{records: []models.ProductRecord{
		{Fields: map[string]string{"nosaukums": "No SKU here"}},
	}}
	cat := newFakeCatalogStore()
	runner := newTestRunner(store, feeds, cat)

	result, err := runner.ProcessChunk(context.Background(), imp.ID)
	if err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}
	if result.FailedCount != 1 || result.ProcessedDelta != 1 {
		t.Fatalf("result = %+v, want 1 attempted, 1 failed", result)
	}
	if len(cat.upserts) != 0 {
		t.Fatal("record without a SKU must not reach the catalog")
	}
}

func TestProcessChunkReadFailure(t *testing.T) {
	imp := testImport(10, 5)
	store := newFakeImportStore(imp)
	feeds := &fakeRecordSource{sliceFn: func(offset, limit int) ([]models.ProductRecord, error) {
		return nil, errors.New("object storage unavailable")
	}}
	cat := newFakeCatalogStore()
	runner := newTestRunner(store, feeds, cat)

	_, err := runner.ProcessChunk(context.Background(), imp.ID)
	var readErr *models.ChunkReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("error type = %T, want *ChunkReadError", err)
	}
	if store.imports[imp.ID].Status != models.ImportStatusFailed {
		t.Fatalf("status = %q, want failed", store.imports[imp.ID].Status)
	}
	if store.imports[imp.ID].ProcessedProducts != 0 {
		t.Fatal("failed read must not advance progress")
	}
}

func TestProcessChunkPausedIsNoop(t *testing.T) {
	imp := testImport(5, 2)
	imp.Status = models.ImportStatusPaused
	imp.ProcessedProducts = 2
	store := newFakeImportStore(imp)
	feeds := &fakeRecordSource{records: simpleRecords(5)}
	cat := newFakeCatalogStore()
	runner := newTestRunner(store, feeds, cat)

	result, err := runner.ProcessChunk(context.Background(), imp.ID)
	if err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}
	if result.Status != models.ImportStatusPaused || result.ProcessedDelta != 0 {
		t.Fatalf("paused import was processed: %+v", result)
	}
	if store.imports[imp.ID].ProcessedProducts != 2 {
		t.Fatal("paused import progress changed")
	}
}

func TestProcessChunkResumesFromCommittedOffset(t *testing.T) {
	imp := testImport(5, 2)
	imp.Status = models.ImportStatusProcessing
	imp.ProcessedProducts = 2
	store := newFakeImportStore(imp)
	feeds := &fakeRecordSource{records: simpleRecords(5)}
	cat := newFakeCatalogStore()
	runner := newTestRunner(store, feeds, cat)

	result, err := runner.ProcessChunk(context.Background(), imp.ID)
	if err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}
	if result.ProcessedDelta != 2 {
		t.Fatalf("delta = %d, want 2", result.ProcessedDelta)
	}
	// Offset 2 and 3 are SKU-2 and SKU-3.
	if cat.upserts[0] != "SKU-2" || cat.upserts[1] != "SKU-3" {
		t.Fatalf("upserts = %v, want [SKU-2 SKU-3]", cat.upserts)
	}
}

func TestProcessChunkVariableProduct(t *testing.T) {
	imp := testImport(1, 5)
	imp.ProductType = "variable"
	imp.Mapping["variations.variation[0].sku"] = "variation_sku"
	store := newFakeImportStore(imp)
	feeds := &fakeRecordSource{records: []models.ProductRecord{{
		Fields: map[string]string{"kods": "P-1", "nosaukums": "Shirt"},
		Variations: []models.VariationRecord{
			{Fields: map[string]string{"sku": "P-1-S"}, Attributes: map[string]string{"Size": "S"}},
			{Fields: map[string]string{"sku": "P-1-M"}, Attributes: map[string]string{"Size": "M"}},
		},
	}}}
	cat := newFakeCatalogStore()
	runner := newTestRunner(store, feeds, cat)

	result, err := runner.ProcessChunk(context.Background(), imp.ID)
	if err != nil {
		t.Fatalf("ProcessChunk failed: %v", err)
	}
	if result.Status != models.ImportStatusCompleted {
		t.Fatalf("status = %q", result.Status)
	}
	if cat.variations != 2 {
		t.Fatalf("variations = %d, want 2", cat.variations)
	}
	if cat.syncs != 1 {
		t.Fatalf("syncs = %d, want 1", cat.syncs)
	}

	wantTerms := map[string]bool{"pa_size/s": true, "pa_size/m": true}
	for _, term := range cat.terms {
		if !wantTerms[term] {
			t.Fatalf("unexpected attribute term %q", term)
		}
		delete(wantTerms, term)
	}
	if len(wantTerms) != 0 {
		t.Fatalf("missing attribute terms: %v", wantTerms)
	}
}
