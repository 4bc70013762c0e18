package elasticx

import (
	"strings"

	"github.com/tidwall/gjson"
)

type Bucket struct {
	Key   string
	Count int64
}

// MergeBuckets folds buckets whose keys only differ by case or surrounding spaces.
// Keys are trimmed and empty ones dropped; the first spelling seen is kept, in first-seen
// order, with the summed count.
func MergeBuckets(buckets []Bucket) []Bucket {
	totals := map[string]int64{}
	for _, b := range buckets {
		key := strings.TrimSpace(b.Key)
		if key == "" {
			continue
		}
		totals[strings.ToLower(key)] += b.Count
	}

	merged := make([]Bucket, 0, len(totals))
	for _, b := range buckets {
		key := strings.TrimSpace(b.Key)
		if key == "" {
			continue
		}
		lower := strings.ToLower(key)
		count, ok := totals[lower]
		if !ok {
			continue
		}
		delete(totals, lower)
		merged = append(merged, Bucket{Key: key, Count: count})
	}

	return merged
}

// parseTermsBuckets reads the buckets of a terms aggregation result.
func parseTermsBuckets(raw []byte) []Bucket {
	var buckets []Bucket
	gjson.GetBytes(raw, "buckets").ForEach(func(_, b gjson.Result) bool {
		key := b.Get("key_as_string")
		if !key.Exists() {
			key = b.Get("key")
		}
		buckets = append(buckets, Bucket{
			Key:   key.String(),
			Count: b.Get("doc_count").Int(),
		})
		return true
	})
	return buckets
}
