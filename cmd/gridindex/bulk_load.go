package main

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/gridsearch/x/elasticx"
	"github.com/gridsearch/x/errorx"
)

const defaultBatchSize = 500

func bulkLoadFlags(fs *pflag.FlagSet) {
	fs.String("index", "", "index to write to")
	fs.String("file", "-", "NDJSON file, - for stdin")
	fs.Int("batch-size", defaultBatchSize, "documents per bulk request")
	fs.String("timestamp-field", "", "field receiving the write time when absent from a document")
}

// bulkLine is one NDJSON document: {"id":"a","type":"t","version":3,"fields":{...}}.
type bulkLine struct {
	ID      string           `json:"id"`
	Type    string           `json:"type"`
	Version *int64           `json:"version"`
	Fields  *elasticx.Fields `json:"fields"`
}

// batchWriter writes one batch and reports how many documents were created and which failed.
type batchWriter func(ctx context.Context, entries []*elasticx.BulkEntry) (created int, failed map[string]string, err error)

func clientBatchWriter(c elasticx.Client, index string) batchWriter {
	return func(ctx context.Context, entries []*elasticx.BulkEntry) (int, map[string]string, error) {
		res, err := c.WriteBulk(ctx, index, entries)
		if err != nil {
			return 0, nil, err
		}
		return len(res.Created()), res.Errors(), nil
	}
}

type bulkLoadSummary struct {
	Submitted int               `json:"submitted"`
	Created   int               `json:"created"`
	Errors    map[string]string `json:"errors,omitempty"`
}

func runBulkLoad(ctx context.Context, c elasticx.Client, fs *pflag.FlagSet, stdout io.Writer) error {
	index, _ := fs.GetString("index")
	path, _ := fs.GetString("file")
	batchSize, _ := fs.GetInt("batch-size")
	tsField, _ := fs.GetString("timestamp-field")

	in := io.Reader(os.Stdin)
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return errors.WithStack(err)
		}
		defer f.Close()
		in = f
	}

	summary, err := bulkLoad(ctx, clientBatchWriter(c, index), index, in, batchSize, tsField)
	if err != nil {
		return err
	}
	return errors.WithStack(json.NewEncoder(stdout).Encode(summary))
}

func bulkLoad(ctx context.Context, write batchWriter, index string, in io.Reader, batchSize int, tsField string) (*bulkLoadSummary, error) {
	if index == "" {
		return nil, errorx.InvalidArgumentErrorf("--index is required")
	}
	if batchSize < 1 {
		return nil, errorx.InvalidArgumentErrorf("--batch-size must be positive, got %d", batchSize)
	}

	summary := &bulkLoadSummary{Errors: map[string]string{}}
	batch := make([]*elasticx.BulkEntry, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		created, failed, err := write(ctx, batch)
		if err != nil {
			return err
		}
		summary.Submitted += len(batch)
		summary.Created += created
		for id, msg := range failed {
			summary.Errors[id] = msg
		}
		batch = make([]*elasticx.BulkEntry, 0, batchSize)
		return nil
	}

	dec := json.NewDecoder(in)
	for line := 1; ; line++ {
		var l bulkLine
		err := dec.Decode(&l)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errorx.InvalidArgumentErrorf("document %d: %v", line, err)
		}
		if l.ID == "" {
			return nil, errorx.InvalidArgumentErrorf("document %d: missing id", line)
		}

		batch = append(batch, elasticx.NewBulkEntry(l.ID, l.Type, tsField, l.Version, l.Fields))
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return summary, nil
}
