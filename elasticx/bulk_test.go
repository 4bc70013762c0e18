package elasticx

import (
	"context"
	"testing"

	"github.com/gridsearch/x/assertx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestEncodeIndexBulk(t *testing.T) {
	v := int64(7)
	entries := []*BulkEntry{
		NewBulkEntry("a", "page", "", nil, NewFields().Set("title", "A")),
		nil,
		NewBulkEntry("", "page", "", nil, NewFields().Set("title", "skipped")),
		NewBulkEntry("b", "page", "indexed_at", &v, NewFields().Set("title", "B")),
	}

	body, n, err := encodeIndexBulk(entries, "2024-03-01T12:00:00.000Z")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assertx.EqualNDJSON(t, []string{
		`{"index":{"_id":"a"}}`,
		`{"title":"A","$type":"page"}`,
		`{"index":{"_id":"b","version":7,"version_type":"external"}}`,
		`{"title":"B","$type":"page","indexed_at":"2024-03-01T12:00:00.000Z"}`,
	}, body)
	assert.Contains(t, string(body), `{"title":"B","$type":"page","indexed_at":"2024-03-01T12:00:00.000Z"}`)

	t.Run("should not overwrite an existing timestamp", func(t *testing.T) {
		e := NewBulkEntry("c", "", "indexed_at", nil, NewFields().Set("indexed_at", "2000-01-01T00:00:00.000Z"))
		body, _, err := encodeIndexBulk([]*BulkEntry{e}, "2024-03-01T12:00:00.000Z")
		require.NoError(t, err)
		assert.Contains(t, string(body), `"indexed_at":"2000-01-01T00:00:00.000Z"`)
	})

	t.Run("should not modify the entry fields", func(t *testing.T) {
		e := NewBulkEntry("d", "page", "indexed_at", nil, NewFields().Set("title", "D"))
		_, _, err := encodeIndexBulk([]*BulkEntry{e}, "2024-03-01T12:00:00.000Z")
		require.NoError(t, err)
		assert.Equal(t, []string{"title"}, e.Fields.Keys())
	})
}

func TestEncodeDeleteBulk(t *testing.T) {
	body, err := encodeDeleteBulk([]string{"a", "b.c"})
	require.NoError(t, err)
	assertx.EqualNDJSON(t, []string{`{"delete":{"_id":"a"}}`, `{"delete":{"_id":"b.c"}}`}, body)
}

func TestWriteBulk(t *testing.T) {
	ctx := context.Background()

	t.Run("should report every new document as created", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})

		res, err := c.WriteBulk(ctx, "idx", []*BulkEntry{
			NewBulkEntry("A", "page", "", nil, nil),
			NewBulkEntry("B", "page", "", nil, nil),
			NewBulkEntry("C", "page", "", nil, nil),
		})
		require.NoError(t, err)

		assertx.Equal(t, []string{"A", "B", "C"}, res.Created())
		assert.False(t, res.HasErrors())
		assert.Empty(t, res.Errors())
		assert.Equal(t, 3, fc.docCount("idx"))
	})

	t.Run("should report neither created nor error for overwritten documents", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		fc.put("idx", "A", `{"$type":"page"}`)

		res, err := c.WriteBulk(ctx, "idx", []*BulkEntry{
			NewBulkEntry("A", "page", "", nil, nil),
			NewBulkEntry("B", "page", "", nil, nil),
		})
		require.NoError(t, err)

		assertx.Equal(t, []string{"B"}, res.Created())
		assert.False(t, res.IsCreated("A"))
		assert.Empty(t, res.Errors())
	})

	t.Run("should partition failed items", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		fc.bulkItemErrors["B"] = "mapper_parsing_exception"
		fc.put("idx", "C", `{"$type":"page"}`)
		fc.index("idx")["C"].version = 9

		v := int64(3)
		res, err := c.WriteBulk(ctx, "idx", []*BulkEntry{
			NewBulkEntry("A", "page", "", nil, nil),
			NewBulkEntry("B", "page", "", nil, nil),
			NewBulkEntry("C", "page", "", &v, nil),
		})
		require.NoError(t, err)

		assertx.Equal(t, []string{"A"}, res.Created())
		assertx.Equal(t, []string{"B", "C"}, res.ErrorIDs())
		assert.True(t, res.HasErrors())
		assert.Equal(t, "mapper_parsing_exception: rejected B", res.Errors()["B"])
		assert.True(t, IsQueryError(res.Err("B")))
		assert.True(t, IsVersionConflictError(res.Err("C")))
		assert.Nil(t, res.Err("A"))

		for id := range res.Errors() {
			assert.False(t, res.IsCreated(id))
		}
	})

	t.Run("should let an error win over a created item with the same id", func(t *testing.T) {
		r := newBulkWriteResult()
		r.addCreated("A")
		r.addError("A", queryErrorFixture())
		r.addCreated("A")

		assert.Empty(t, r.Created())
		assertx.Equal(t, []string{"A"}, r.ErrorIDs())
	})

	t.Run("should skip entries without id and not call the cluster when none is left", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})

		res, err := c.WriteBulk(ctx, "idx", []*BulkEntry{NewBulkEntry("", "page", "", nil, nil)})
		require.NoError(t, err)
		assert.Empty(t, res.Created())
		assert.Empty(t, res.Errors())
		assert.Equal(t, 0, fc.bulkCalls())
	})

	t.Run("should inject the timestamp with the client clock", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})

		_, err := c.WriteBulk(ctx, "idx", []*BulkEntry{NewBulkEntry("A", "page", "indexed_at", nil, nil)})
		require.NoError(t, err)

		src := fc.index("idx")["A"].source
		assert.Equal(t, "2024-03-01T12:00:00.000Z", gjson.GetBytes(src, "indexed_at").String())
	})

	t.Run("should fail only when the request as a whole fails", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		fc.errs["Bulk"] = withTransportError(assert.AnError)

		res, err := c.WriteBulk(ctx, "idx", []*BulkEntry{NewBulkEntry("A", "page", "", nil, nil)})
		require.Error(t, err)
		assert.Nil(t, res)
		assert.True(t, IsConnectionError(err))
	})
}

func queryErrorFixture() error {
	return classify(400, "mapper_parsing_exception", "failed to parse")
}
