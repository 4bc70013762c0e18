package elasticx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/gridsearch/x/assertx"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func deletedIDs(t *testing.T, body []byte) []string {
	t.Helper()

	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		id := gjson.GetBytes(sc.Bytes(), "delete._id")
		require.True(t, id.Exists(), "unexpected bulk line %s", sc.Text())
		ids = append(ids, id.String())
	}
	return ids
}

func TestDeleteByQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("should delete what was just written", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})

		res, err := c.WriteBulk(ctx, "idx", []*BulkEntry{
			NewBulkEntry("A", "page", "", nil, NewFields().Set("host", "h1")),
			NewBulkEntry("B", "page", "", nil, NewFields().Set("host", "h1")),
			NewBulkEntry("C", "page", "", nil, NewFields().Set("host", "h1")),
		})
		require.NoError(t, err)
		require.Len(t, res.Created(), 3)

		n, err := c.DeleteByQuery(ctx, "idx", json.RawMessage(`{"term":{"host":"h1"}}`))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Zero(t, fc.docCount("idx"))

		count, err := c.CountAll(ctx, "idx")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("should issue one bulk delete over all pages", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		for i := 0; i < 250; i++ {
			fc.put("idx", fmt.Sprintf("doc-%03d", i), `{"$type":"page","host":"h1"}`)
		}
		fc.put("idx", "other", `{"$type":"page","host":"h2"}`)

		n, err := c.DeleteByQuery(ctx, "idx", json.RawMessage(`{"term":{"host":"h1"}}`))
		require.NoError(t, err)
		assert.Equal(t, 250, n)

		require.Equal(t, 1, fc.bulkCalls())
		ids := deletedIDs(t, fc.bulkBodies[0])
		assert.Len(t, ids, 250)
		seen := map[string]bool{}
		for _, id := range ids {
			assert.False(t, seen[id], "id %s submitted twice", id)
			seen[id] = true
		}

		assert.Equal(t, 1, fc.docCount("idx"))
		assert.Equal(t, 3, fc.scrollCalls)
		assert.Equal(t, []string{"scroll-1"}, fc.clearedScroll)
	})

	t.Run("should collapse ids seen on several pages", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		fc.scrollRepeat = 2
		for i := 0; i < 150; i++ {
			fc.put("idx", fmt.Sprintf("doc-%03d", i), `{"$type":"page","host":"h1"}`)
		}

		n, err := c.DeleteByQuery(ctx, "idx", json.RawMessage(`{"term":{"host":"h1"}}`))
		require.NoError(t, err)
		assert.Equal(t, 150, n)

		require.Equal(t, 1, fc.bulkCalls())
		ids := deletedIDs(t, fc.bulkBodies[0])
		assert.Len(t, ids, 150)
		assertx.ElementsMatch(t, lo.Uniq(ids), ids)
		assert.Zero(t, fc.docCount("idx"))
	})

	t.Run("should page with a type-only source filter", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		fc.put("idx", "a", `{"$type":"page"}`)

		_, err := c.DeleteByQuery(ctx, "idx", nil)
		require.NoError(t, err)

		require.Len(t, fc.searchBodies, 1)
		body := fc.searchBodies[0]
		assert.Equal(t, int64(scanPageSize), gjson.GetBytes(body, "size").Int())
		assert.JSONEq(t, `["$type"]`, gjson.GetBytes(body, "_source").Raw)
		assert.JSONEq(t, matchAllQuery, gjson.GetBytes(body, "query").Raw)
	})

	t.Run("should stop on an empty first page", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})

		n, err := c.DeleteByQuery(ctx, "idx", json.RawMessage(`{"term":{"host":"none"}}`))
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Zero(t, fc.scrollCalls)
		assert.Zero(t, fc.bulkCalls())
	})

	t.Run("should delete nothing when the scan fails", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		for i := 0; i < 250; i++ {
			fc.put("idx", fmt.Sprintf("doc-%03d", i), `{"$type":"page"}`)
		}
		fc.scrollFailAt = 2

		n, err := c.DeleteByQuery(ctx, "idx", nil)
		require.Error(t, err)
		assert.True(t, IsConnectionError(err))
		assert.Zero(t, n)
		assert.Zero(t, fc.bulkCalls())
		assert.Equal(t, 250, fc.docCount("idx"))
		assert.Equal(t, []string{"scroll-1"}, fc.clearedScroll)
	})

	t.Run("should not fail when the scroll cannot be cleared", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})
		fc.put("idx", "a", `{"$type":"page"}`)
		fc.errs["ClearScroll"] = withTransportError(assert.AnError)

		n, err := c.DeleteByQuery(ctx, "idx", nil)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("should reject a malformed predicate", func(t *testing.T) {
		c, fc, _ := newTestClient(t, Config{})

		_, err := c.DeleteByQuery(ctx, "idx", json.RawMessage(`{"term":`))
		assert.True(t, IsQueryError(err))
		assert.Empty(t, fc.searchBodies)
	})
}
