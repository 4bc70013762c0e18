package elasticx

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gridsearch/x/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("should create an index once", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})

		require.NoError(t, c.CreateIndexIfNotExists(ctx, "idx", 1, 0))
		require.NoError(t, c.CreateIndexIfNotExists(ctx, "idx", 1, 0))
		assert.Contains(t, fc.indices, "idx")
	})

	t.Run("should reject invalid shard counts", func(t *testing.T) {
		c, _, _ := newTestClient(t, Config{})
		err := c.CreateIndexIfNotExists(ctx, "idx", 0, 0)
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should put a json mapping", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		require.NoError(t, c.CreateIndexIfNotExists(ctx, "idx", 1, 1))

		mapping := json.RawMessage(`{"properties":{"host":{"type":"keyword"}}}`)
		require.NoError(t, c.PutMapping(ctx, "idx", mapping))
		assert.JSONEq(t, string(mapping), string(fc.mappings["idx"]))

		err := c.PutMapping(ctx, "idx", json.RawMessage(`not json`))
		assert.True(t, errorx.IsInvalidArgumentError(err))

		err = c.PutMapping(ctx, "missing", mapping)
		assert.True(t, errorx.IsNotFoundError(err))
	})

	t.Run("should put a yaml mapping file", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		require.NoError(t, c.CreateIndexIfNotExists(ctx, "idx", 1, 1))

		require.NoError(t, c.PutMappingFile(ctx, "idx", "testdata/mapping.yaml"))
		assert.JSONEq(t, `{"properties":{
			"host":{"type":"keyword"},
			"title":{"type":"text"},
			"indexed_at":{"type":"date","format":"strict_date_time"}
		}}`, string(fc.mappings["idx"]))

		err := c.PutMappingFile(ctx, "idx", "testdata/missing.json")
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should ensure an index with its mapping", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})

		mapping := json.RawMessage(`{"properties":{"host":{"type":"keyword"}}}`)
		require.NoError(t, c.EnsureIndex(ctx, "idx", 1, 0, mapping))
		require.NoError(t, c.EnsureIndex(ctx, "idx", 1, 0, mapping))
		assert.JSONEq(t, string(mapping), string(fc.mappings["idx"]))
	})

	t.Run("should not retry a permanent failure", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		fc.errs["CreateIndex"] = errorx.InvalidArgumentErrorf("illegal_argument_exception")

		err := c.EnsureIndex(ctx, "idx", 1, 0, nil)
		assert.True(t, errorx.IsInvalidArgumentError(err))
	})

	t.Run("should refresh", func(t *testing.T) {
		c, _, _ := newTestClient(t, Config{})
		assert.NoError(t, c.Refresh(ctx, "idx"))
	})
}
