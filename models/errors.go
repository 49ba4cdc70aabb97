package models

import (
	"errors"
	"fmt"
)

// ErrImportNotFound is returned by import stores when no job exists for
// the given id.
var ErrImportNotFound = errors.New("import not found")

// SchemaInferenceError means the mapping oracle was unreachable or its
// response could not be recovered into a usable mapping. The import stays
// in its current state; callers may retry with a fresh oracle call.
type SchemaInferenceError struct {
	Reason  string
	Excerpt string
	Err     error
}

func (e *SchemaInferenceError) Error() string {
	if e.Excerpt != "" {
		return fmt.Sprintf("schema inference failed: %s (response excerpt: %q)", e.Reason, e.Excerpt)
	}
	if e.Err != nil {
		return fmt.Sprintf("schema inference failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("schema inference failed: %s", e.Reason)
}

func (e *SchemaInferenceError) Unwrap() error { return e.Err }

// ProductUpsertError means the catalog store rejected a single record.
// Recovered locally: logged with the offending SKU, chunk continues.
type ProductUpsertError struct {
	SKU string
	Err error
}

func (e *ProductUpsertError) Error() string {
	return fmt.Sprintf("product upsert failed for sku %q: %v", e.SKU, e.Err)
}

func (e *ProductUpsertError) Unwrap() error { return e.Err }

// ChunkReadError means the next batch of parsed records could not be
// obtained. Fatal to the import: it transitions to failed.
type ChunkReadError struct {
	Offset int
	Err    error
}

func (e *ChunkReadError) Error() string {
	return fmt.Sprintf("failed to read record chunk at offset %d: %v", e.Offset, e.Err)
}

func (e *ChunkReadError) Unwrap() error { return e.Err }
