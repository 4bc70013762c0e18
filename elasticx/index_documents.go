package elasticx

import (
	"context"
	"encoding/json"
)

type IndexDocuments interface {
	// Write stores a single document under the given id. Without a version the document is
	// overwritten unconditionally; with a version the write only succeeds if it is greater than
	// the stored one, otherwise a version conflict error is returned.
	// It reports whether the document was newly created.
	Write(ctx context.Context, index, typ, id string, version *int64, fields *Fields) (bool, error)

	// WriteMap is Write with the version taken from the reserved `_version` entry of fields,
	// if any. The entry is not stored and fields is left untouched.
	WriteMap(ctx context.Context, index, typ, id string, fields map[string]interface{}) (bool, error)

	// Create stores a document under a newly generated id, which is returned.
	Create(ctx context.Context, index, typ string, fields *Fields) (string, error)

	// WriteBulk stores all entries with a single bulk request and holds the caller back when the
	// cluster is slow to absorb them. Per-item failures are reported in the result; only a failure
	// of the request as a whole is returned as an error.
	WriteBulk(ctx context.Context, index string, entries []*BulkEntry) (*BulkWriteResult, error)

	// Exists checks if a document with given id exists in the index.
	Exists(ctx context.Context, index, id string) (bool, error)

	// ExistBulk returns the subset of ids that exist in the index.
	ExistBulk(ctx context.Context, index string, ids []string) ([]string, error)

	// GetType returns the type a document was written with, or "" if it does not exist.
	GetType(ctx context.Context, index, id string) (string, error)

	// Read returns a stored document with its type and version.
	// If no document exists with given id, a NotFoundError is returned.
	Read(ctx context.Context, index, id string) (*Document, error)

	// ReadMap returns the stored source of a document, including its type under TypeField.
	// If no document exists with given id, a NotFoundError is returned.
	ReadMap(ctx context.Context, index, id string) (map[string]interface{}, error)

	// ReadSource returns the raw stored source of a document.
	// If no document exists with given id, a NotFoundError is returned.
	ReadSource(ctx context.Context, index, id string) (json.RawMessage, error)

	// Delete removes a single document and reports whether it existed.
	Delete(ctx context.Context, index, id string) (bool, error)

	// DeleteBulk removes the given documents (id to type) with a single bulk request and returns
	// the number of ids submitted.
	DeleteBulk(ctx context.Context, index string, ids map[string]string) (int, error)
}
