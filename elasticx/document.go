package elasticx

import (
	"github.com/gridsearch/x/errorx"
)

const (
	// TypeField is the reserved source field holding a document's type.
	TypeField = "$type"

	// VersionField is the reserved field WriteMap reads an external version from.
	VersionField = "_version"

	// TimestampLayout is the UTC date-time format injected into bulk entries.
	TimestampLayout = "2006-01-02T15:04:05.000Z"
)

type VersionMode string

const (
	// VersionModeForce overwrites whatever is stored, regardless of its version.
	VersionModeForce VersionMode = "force"
	// VersionModeExternal only accepts a version greater than the stored one.
	VersionModeExternal VersionMode = "external"
)

type Document struct {
	ID      string
	Type    string
	Version *int64
	Fields  *Fields
}

// VersionMode returns the write mode implied by the presence of a version.
func (d Document) VersionMode() VersionMode {
	if d.Version == nil {
		return VersionModeForce
	}
	return VersionModeExternal
}

// source returns the body stored in the cluster: the fields plus the type under TypeField.
func (d Document) source() *Fields {
	s := d.Fields.Clone()
	if d.Type != "" {
		s.Set(TypeField, d.Type)
	}
	return s
}

type BulkEntry struct {
	Document

	// TimestampField, when set and absent from Fields, receives the current UTC time
	// formatted with TimestampLayout right before the entry is dispatched.
	TimestampField string
}

func NewBulkEntry(id, typ, timestampField string, version *int64, fields *Fields) *BulkEntry {
	if fields == nil {
		fields = NewFields()
	}
	return &BulkEntry{
		Document: Document{
			ID:      id,
			Type:    typ,
			Version: version,
			Fields:  fields,
		},
		TimestampField: timestampField,
	}
}

// BulkWriteResult carries the two observable per-item outcomes of a bulk write.
// Both collections keep the order in which the cluster reported the items and an id
// appears in at most one of them: an id with any failed item is reported as an error.
type BulkWriteResult struct {
	created    []string
	createdSet map[string]struct{}

	errorIDs []string
	errors   map[string]error
}

func newBulkWriteResult() *BulkWriteResult {
	return &BulkWriteResult{
		createdSet: map[string]struct{}{},
		errors:     map[string]error{},
	}
}

func (r *BulkWriteResult) addCreated(id string) {
	if _, ok := r.errors[id]; ok {
		return
	}
	if _, ok := r.createdSet[id]; ok {
		return
	}
	r.createdSet[id] = struct{}{}
	r.created = append(r.created, id)
}

func (r *BulkWriteResult) addError(id string, err error) {
	if _, ok := r.createdSet[id]; ok {
		delete(r.createdSet, id)
		for i, c := range r.created {
			if c == id {
				r.created = append(r.created[:i], r.created[i+1:]...)
				break
			}
		}
	}
	if _, ok := r.errors[id]; !ok {
		r.errorIDs = append(r.errorIDs, id)
	}
	r.errors[id] = err
}

// Created returns the ids the cluster reported as newly created, in response order.
func (r *BulkWriteResult) Created() []string {
	return append([]string(nil), r.created...)
}

func (r *BulkWriteResult) IsCreated(id string) bool {
	_, ok := r.createdSet[id]
	return ok
}

// Errors returns the failure message of every failed id.
func (r *BulkWriteResult) Errors() map[string]string {
	m := make(map[string]string, len(r.errors))
	for id, err := range r.errors {
		m[id] = errorMessage(err)
	}
	return m
}

// ErrorIDs returns the failed ids in response order.
func (r *BulkWriteResult) ErrorIDs() []string {
	return append([]string(nil), r.errorIDs...)
}

// Err returns the classified error of a failed id, e.g. a version conflict, or nil.
func (r *BulkWriteResult) Err(id string) error {
	return r.errors[id]
}

func (r *BulkWriteResult) HasErrors() bool {
	return len(r.errors) > 0
}

func errorMessage(err error) string {
	if cerr, ok := errorx.IsError(err); ok {
		return cerr.Message
	}
	return err.Error()
}
