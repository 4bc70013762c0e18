package elasticx

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/gridsearch/x/errorx"
	"github.com/tidwall/gjson"
)

// Fields is an insertion-ordered document body. It encodes to a JSON object whose
// members appear in the order they were first set.
type Fields struct {
	keys   []string
	values map[string]interface{}
}

var (
	_ json.Marshaler   = (*Fields)(nil)
	_ json.Unmarshaler = (*Fields)(nil)
)

func NewFields() *Fields {
	return &Fields{
		values: map[string]interface{}{},
	}
}

// FieldsFromMap copies m into a new Fields, ordering the keys alphabetically.
func FieldsFromMap(m map[string]interface{}) *Fields {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := NewFields()
	for _, k := range keys {
		f.Set(k, m[k])
	}
	return f
}

// Set stores v under k. An existing key keeps its position.
func (f *Fields) Set(k string, v interface{}) *Fields {
	if f.values == nil {
		f.values = map[string]interface{}{}
	}
	if _, ok := f.values[k]; !ok {
		f.keys = append(f.keys, k)
	}
	f.values[k] = v
	return f
}

func (f *Fields) Get(k string) (interface{}, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[k]
	return v, ok
}

func (f *Fields) Has(k string) bool {
	_, ok := f.Get(k)
	return ok
}

// Delete removes k and returns its previous value.
func (f *Fields) Delete(k string) (interface{}, bool) {
	if f == nil {
		return nil, false
	}
	v, ok := f.values[k]
	if !ok {
		return nil, false
	}
	delete(f.values, k)
	for i, key := range f.keys {
		if key == k {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
	return v, true
}

func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	return append([]string(nil), f.keys...)
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Map returns an unordered copy.
func (f *Fields) Map() map[string]interface{} {
	m := make(map[string]interface{}, f.Len())
	if f == nil {
		return m
	}
	for k, v := range f.values {
		m[k] = v
	}
	return m
}

// Clone returns a shallow copy; nested values are shared.
func (f *Fields) Clone() *Fields {
	c := NewFields()
	if f == nil {
		return c
	}
	for _, k := range f.keys {
		c.Set(k, f.values[k])
	}
	return c
}

func (f *Fields) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	if f != nil {
		for i, k := range f.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(f.values[k])
			if err != nil {
				return nil, errorx.InvalidArgumentErrorf("field '%s' cannot be encoded: %v", k, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the member order of the input.
// Numbers decode as json.Number so large integers keep their exact value,
// nested objects as map[string]interface{}.
func (f *Fields) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errorx.InvalidArgumentErrorf("fields are not valid json")
	}
	r := gjson.ParseBytes(data)
	if !r.IsObject() {
		return errorx.InvalidArgumentErrorf("fields must be a json object")
	}

	f.keys = nil
	f.values = map[string]interface{}{}
	r.ForEach(func(k, v gjson.Result) bool {
		f.Set(k.String(), jsonValue(v))
		return true
	})
	return nil
}

func jsonValue(v gjson.Result) interface{} {
	switch {
	case v.Type == gjson.Number:
		return json.Number(v.Raw)
	case v.IsObject():
		m := map[string]interface{}{}
		v.ForEach(func(k, e gjson.Result) bool {
			m[k.String()] = jsonValue(e)
			return true
		})
		return m
	case v.IsArray():
		a := []interface{}{}
		v.ForEach(func(_, e gjson.Result) bool {
			a = append(a, jsonValue(e))
			return true
		})
		return a
	default:
		return v.Value()
	}
}

// decodeSource decodes a document source into a map, numbers as json.Number.
func decodeSource(data []byte) (map[string]interface{}, error) {
	m := map[string]interface{}{}
	if len(data) == 0 {
		return m, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}
