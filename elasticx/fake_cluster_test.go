package elasticx

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gridsearch/x/errorx"
	"github.com/tidwall/gjson"
)

type fakeDoc struct {
	source  []byte
	version int64
}

type fakeScroll struct {
	hits   []SearchHit
	pos    int
	size   int
	repeat int
}

// fakeCluster is an in-memory cluster understanding the subset of the query DSL this
// package emits: match_all, term, ids, range, bool (filter/must/must_not) and multi_match.
type fakeCluster struct {
	mu sync.Mutex

	indices  map[string]map[string]*fakeDoc
	mappings map[string][]byte

	health      HealthResponse
	healthErr   error
	healthCalls int

	// errs fails the named method with the given error.
	errs map[string]error
	// scrollFailAt fails the n-th Scroll call (1-based), 0 never.
	scrollFailAt int
	// scrollRepeat serves the last n hits of the previous page again at the start of
	// every later non-empty page.
	scrollRepeat int
	// bulkItemErrors makes bulk items for the given ids fail with the given error type.
	bulkItemErrors map[string]string
	// onBulk runs before a bulk request is answered.
	onBulk func()

	scrolls       map[string]*fakeScroll
	scrollSeq     int
	scrollCalls   int
	clearedScroll []string

	searchBodies [][]byte
	bulkBodies   [][]byte
	closeCalls   int
}

var _ cluster = (*fakeCluster)(nil)

func newFakeCluster() *fakeCluster {
	return &fakeCluster{
		indices:        map[string]map[string]*fakeDoc{},
		mappings:       map[string][]byte{},
		health:         HealthResponse{ClusterName: "grid", Status: HealthGreen},
		errs:           map[string]error{},
		bulkItemErrors: map[string]string{},
		scrolls:        map[string]*fakeScroll{},
	}
}

func (f *fakeCluster) fail(method string) error {
	return f.errs[method]
}

// put stores a document directly, bypassing versioning.
func (f *fakeCluster) put(index, id, source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index(index)[id] = &fakeDoc{source: []byte(source), version: 1}
}

func (f *fakeCluster) docCount(index string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.indices[index])
}

func (f *fakeCluster) bulkCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bulkBodies)
}

func (f *fakeCluster) index(name string) map[string]*fakeDoc {
	idx, ok := f.indices[name]
	if !ok {
		idx = map[string]*fakeDoc{}
		f.indices[name] = idx
	}
	return idx
}

func (f *fakeCluster) Health(_ context.Context, waitFor HealthStatus, _ time.Duration) (*HealthResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.healthCalls++
	if f.healthErr != nil {
		return nil, f.healthErr
	}

	h := f.health
	if waitFor != "" && !h.Status.AtLeast(waitFor) {
		h.TimedOut = true
	}
	return &h, nil
}

func (f *fakeCluster) Index(_ context.Context, index, id string, body []byte, version *int64) (*IndexResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("Index"); err != nil {
		return nil, err
	}

	res, err := f.write(index, id, body, version)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (f *fakeCluster) write(index, id string, body []byte, version *int64) (*IndexResponse, error) {
	idx := f.index(index)
	existing, found := idx[id]

	next := int64(1)
	switch {
	case version != nil && found && existing.version >= *version:
		return nil, classify(409, versionConflictErrorType,
			fmt.Sprintf("[%s]: version conflict, current version [%d] is higher or equal to the one provided [%d]", id, existing.version, *version))
	case version != nil:
		next = *version
	case found:
		next = existing.version + 1
	}

	idx[id] = &fakeDoc{source: append([]byte(nil), body...), version: next}

	result := resultCreated
	if found {
		result = resultUpdated
	}
	return &IndexResponse{Index: index, ID: id, Version: next, Result: result}, nil
}

func (f *fakeCluster) Get(_ context.Context, index, id string) (*GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("Get"); err != nil {
		return nil, err
	}

	doc, ok := f.indices[index][id]
	if !ok {
		return &GetResponse{Index: index, ID: id}, nil
	}
	return &GetResponse{Index: index, ID: id, Version: doc.version, Found: true, Source: doc.source}, nil
}

func (f *fakeCluster) MultiGet(ctx context.Context, index string, ids []string) (*MultiGetResponse, error) {
	res := &MultiGetResponse{}
	for _, id := range ids {
		g, err := f.Get(ctx, index, id)
		if err != nil {
			return nil, err
		}
		res.Docs = append(res.Docs, *g)
	}
	return res, nil
}

func (f *fakeCluster) Delete(_ context.Context, index, id string) (*DeleteResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("Delete"); err != nil {
		return nil, err
	}

	if _, ok := f.indices[index][id]; !ok {
		return &DeleteResponse{Index: index, ID: id, Result: resultNotFound}, nil
	}
	delete(f.indices[index], id)
	return &DeleteResponse{Index: index, ID: id, Result: resultDeleted}, nil
}

func (f *fakeCluster) Bulk(_ context.Context, index string, body []byte) (*BulkResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.bulkBodies = append(f.bulkBodies, append([]byte(nil), body...))
	if f.onBulk != nil {
		f.onBulk()
	}
	if err := f.fail("Bulk"); err != nil {
		return nil, err
	}

	res := &BulkResponse{}
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		action := gjson.ParseBytes(line)

		if meta := action.Get("index"); meta.Exists() {
			if !sc.Scan() {
				return nil, errorx.InvalidArgumentErrorf("bulk index action without a source")
			}
			source := append([]byte(nil), sc.Bytes()...)
			id := meta.Get("_id").String()

			item := BulkItemResponse{Action: "index", ID: id}
			if errType, ok := f.bulkItemErrors[id]; ok {
				item.Status = 400
				item.Error = &BulkItemError{Type: errType, Reason: "rejected " + id}
				res.Items = append(res.Items, item)
				continue
			}

			var version *int64
			if v := meta.Get("version"); v.Exists() {
				n := v.Int()
				version = &n
			}
			ir, err := f.write(index, id, source, version)
			if err != nil {
				cerr, _ := errorx.IsError(err)
				item.Status = 409
				item.Error = &BulkItemError{Type: versionConflictErrorType, Reason: cerr.Message}
			} else {
				item.Status = 200
				item.Result = ir.Result
				item.Version = ir.Version
				if ir.Result == resultCreated {
					item.Status = 201
				}
			}
			res.Items = append(res.Items, item)
			continue
		}

		if meta := action.Get("delete"); meta.Exists() {
			id := meta.Get("_id").String()
			item := BulkItemResponse{Action: "delete", ID: id, Status: 200, Result: resultDeleted}
			if _, ok := f.indices[index][id]; ok {
				delete(f.indices[index], id)
			} else {
				item.Status = 404
				item.Result = resultNotFound
			}
			res.Items = append(res.Items, item)
			continue
		}

		return nil, errorx.InvalidArgumentErrorf("unsupported bulk action %s", line)
	}

	for _, item := range res.Items {
		if item.Error != nil {
			res.Errors = true
		}
	}
	return res, nil
}

// matching returns the hits of index matching the query of body, ordered by id.
func (f *fakeCluster) matching(index string, body []byte) ([]SearchHit, error) {
	q := gjson.GetBytes(body, "query")
	if !q.Exists() {
		q = gjson.Parse(matchAllQuery)
	}

	ids := make([]string, 0, len(f.indices[index]))
	for id := range f.indices[index] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	hits := []SearchHit{}
	for _, id := range ids {
		doc := f.indices[index][id]
		ok, err := matches(q, id, gjson.ParseBytes(doc.source))
		if err != nil {
			return nil, err
		}
		if ok {
			hits = append(hits, SearchHit{Index: index, ID: id, Source: doc.source})
		}
	}
	return hits, nil
}

func matches(q gjson.Result, id string, src gjson.Result) (bool, error) {
	if !q.IsObject() {
		return false, errorx.InvalidArgumentErrorf("parsing_exception: query must be an object")
	}

	ok := true
	var err error
	q.ForEach(func(kind, clause gjson.Result) bool {
		var m bool
		switch kind.String() {
		case "match_all":
			m = true
		case "term":
			m = matchTerm(clause, src)
		case "ids":
			m = false
			clause.Get("values").ForEach(func(_, v gjson.Result) bool {
				m = m || v.String() == id
				return !m
			})
		case "range":
			m = matchRange(clause, src)
		case "multi_match":
			m = matchText(clause, src)
		case "bool":
			m, err = matchBool(clause, id, src)
		default:
			err = errorx.InvalidArgumentErrorf("parsing_exception: unknown query [%s]", kind.String())
		}
		ok = ok && m
		return err == nil
	})
	return ok && err == nil, err
}

func matchTerm(clause, src gjson.Result) bool {
	m := false
	clause.ForEach(func(field, want gjson.Result) bool {
		if want.IsObject() {
			want = want.Get("value")
		}
		m = src.Get(gjsonEscape(field.String())).String() == want.String()
		return false
	})
	return m
}

func matchRange(clause, src gjson.Result) bool {
	m := true
	clause.ForEach(func(field, bounds gjson.Result) bool {
		v := src.Get(gjsonEscape(field.String()))
		if !v.Exists() {
			m = false
			return false
		}
		bounds.ForEach(func(op, b gjson.Result) bool {
			c := strings.Compare(v.String(), b.String())
			if v.Type == gjson.Number && b.Type == gjson.Number {
				c = compareFloat(v.Float(), b.Float())
			}
			switch op.String() {
			case "gte":
				m = m && c >= 0
			case "gt":
				m = m && c > 0
			case "lte":
				m = m && c <= 0
			case "lt":
				m = m && c < 0
			}
			return true
		})
		return false
	})
	return m
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func matchText(clause, src gjson.Result) bool {
	tokens := strings.Fields(strings.ToLower(clause.Get("query").String()))
	if len(tokens) == 0 {
		return clause.Get("zero_terms_query").String() == "all"
	}

	var text []string
	src.ForEach(func(k, v gjson.Result) bool {
		if k.String() != TypeField && v.Type == gjson.String {
			text = append(text, strings.Fields(strings.ToLower(v.String()))...)
		}
		return true
	})
	has := func(t string) bool {
		for _, w := range text {
			if w == t {
				return true
			}
		}
		return false
	}

	and := clause.Get("operator").String() == string(OperatorAnd)
	for _, t := range tokens {
		if has(t) && !and {
			return true
		}
		if !has(t) && and {
			return false
		}
	}
	return and
}

func matchBool(clause gjson.Result, id string, src gjson.Result) (bool, error) {
	all := func(path string, want bool) (bool, error) {
		ok := true
		var err error
		each := func(_, q gjson.Result) bool {
			var m bool
			m, err = matches(q, id, src)
			if m != want {
				ok = false
			}
			return err == nil && ok
		}
		if c := clause.Get(path); c.IsArray() {
			c.ForEach(each)
		} else if c.Exists() {
			each(gjson.Result{}, c)
		}
		return ok, err
	}

	for _, p := range []string{"filter", "must"} {
		if ok, err := all(p, true); !ok || err != nil {
			return false, err
		}
	}
	return all("must_not", false)
}

func gjsonEscape(field string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(field)
}

func (f *fakeCluster) Search(_ context.Context, index string, body []byte, scroll time.Duration) (*SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.searchBodies = append(f.searchBodies, append([]byte(nil), body...))
	if err := f.fail("Search"); err != nil {
		return nil, err
	}

	hits, err := f.matching(index, body)
	if err != nil {
		return nil, err
	}

	res := &SearchResponse{}
	res.Hits.Total = SearchTotal{Value: int64(len(hits)), Relation: "eq"}

	size := 10
	if s := gjson.GetBytes(body, "size"); s.Exists() {
		size = int(s.Int())
	}

	if scroll > 0 {
		f.scrollSeq++
		id := fmt.Sprintf("scroll-%d", f.scrollSeq)
		f.scrolls[id] = &fakeScroll{hits: hits, size: size, repeat: f.scrollRepeat}
		res.ScrollID = id
		res.Hits.Hits = f.scrolls[id].next()
		return res, nil
	}

	if field := sortField(body); field != "" {
		sort.SliceStable(hits, func(i, j int) bool {
			a := gjson.GetBytes(hits[i].Source, gjsonEscape(field)).String()
			b := gjson.GetBytes(hits[j].Source, gjsonEscape(field)).String()
			return a > b
		})
	}

	from := int(gjson.GetBytes(body, "from").Int())
	res.Hits.Hits = page(hits, from, size)

	if aggs := gjson.GetBytes(body, "aggs"); aggs.Exists() {
		res.Aggregations = map[string]json.RawMessage{}
		aggs.ForEach(func(name, agg gjson.Result) bool {
			res.Aggregations[name.String()] = termsAggregation(hits, agg.Get("terms.field").String(), int(agg.Get("terms.size").Int()))
			return true
		})
	}

	return res, nil
}

func sortField(body []byte) string {
	field := ""
	gjson.GetBytes(body, "sort.0").ForEach(func(k, _ gjson.Result) bool {
		field = k.String()
		return false
	})
	return field
}

func page(hits []SearchHit, from, size int) []SearchHit {
	if from >= len(hits) {
		return []SearchHit{}
	}
	end := from + size
	if end > len(hits) {
		end = len(hits)
	}
	return hits[from:end]
}

func termsAggregation(hits []SearchHit, field string, size int) json.RawMessage {
	counts := map[string]int64{}
	for _, h := range hits {
		v := gjson.GetBytes(h.Source, gjsonEscape(field))
		if v.Exists() {
			counts[v.String()]++
		}
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if size >= 0 && len(keys) > size {
		keys = keys[:size]
	}

	buckets := make([]map[string]interface{}, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, map[string]interface{}{"key": k, "doc_count": counts[k]})
	}
	raw, _ := json.Marshal(map[string]interface{}{"buckets": buckets})
	return raw
}

func (s *fakeScroll) next() []SearchHit {
	fresh := page(s.hits, s.pos, s.size)
	out := fresh
	if s.repeat > 0 && s.pos > 0 && len(fresh) > 0 {
		out = append(append([]SearchHit(nil), s.hits[max(0, s.pos-s.repeat):s.pos]...), fresh...)
	}
	s.pos += len(fresh)
	return out
}

func (f *fakeCluster) Scroll(_ context.Context, scrollID string, _ time.Duration) (*SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.scrollCalls++
	if f.scrollFailAt > 0 && f.scrollCalls >= f.scrollFailAt {
		return nil, errorx.UnavailableErrorf("connection reset while scrolling")
	}

	s, ok := f.scrolls[scrollID]
	if !ok {
		return nil, errorx.NotFoundErrorf("No search context found for id [%s]", scrollID)
	}

	res := &SearchResponse{ScrollID: scrollID}
	res.Hits.Total = SearchTotal{Value: int64(len(s.hits)), Relation: "eq"}
	res.Hits.Hits = s.next()
	return res, nil
}

func (f *fakeCluster) ClearScroll(_ context.Context, scrollID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clearedScroll = append(f.clearedScroll, scrollID)
	delete(f.scrolls, scrollID)
	return f.fail("ClearScroll")
}

func (f *fakeCluster) Count(_ context.Context, index string, body []byte) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("Count"); err != nil {
		return 0, err
	}
	hits, err := f.matching(index, body)
	if err != nil {
		return 0, err
	}
	return int64(len(hits)), nil
}

func (f *fakeCluster) IndexExists(_ context.Context, index string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("IndexExists"); err != nil {
		return false, err
	}
	_, ok := f.indices[index]
	return ok, nil
}

func (f *fakeCluster) CreateIndex(_ context.Context, index string, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("CreateIndex"); err != nil {
		return err
	}
	if _, ok := f.indices[index]; ok {
		return classify(400, resourceAlreadyExistsErrorType, fmt.Sprintf("index [%s] already exists", index))
	}
	f.index(index)
	return nil
}

func (f *fakeCluster) PutMapping(_ context.Context, index string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.fail("PutMapping"); err != nil {
		return err
	}
	if _, ok := f.indices[index]; !ok {
		return classify(404, "index_not_found_exception", "no such index ["+index+"]")
	}
	f.mappings[index] = append([]byte(nil), body...)
	return nil
}

func (f *fakeCluster) Refresh(context.Context, ...string) error {
	return f.fail("Refresh")
}

func (f *fakeCluster) ClusterStats(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"cluster_name":"grid","nodes":{"count":{"total":1}}}`), f.fail("ClusterStats")
}

func (f *fakeCluster) PendingTasks(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"tasks":[]}`), f.fail("PendingTasks")
}

func (f *fakeCluster) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	return nil
}
