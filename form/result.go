package form

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/bytedance/sonic"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Result holds answers in the order fields were visited. A nil value marks a
// skipped optional field.
type Result struct {
	m *orderedmap.OrderedMap[string, any]
}

func NewResult() *Result {
	return &Result{m: orderedmap.New[string, any]()}
}

func (r *Result) Set(name string, v any) {
	r.m.Set(name, v)
}

func (r *Result) Get(name string) (any, bool) {
	return r.m.Get(name)
}

func (r *Result) Has(name string) bool {
	_, ok := r.m.Get(name)
	return ok
}

func (r *Result) Delete(name string) {
	r.m.Delete(name)
}

func (r *Result) Len() int {
	return r.m.Len()
}

func (r *Result) Keys() []string {
	keys := make([]string, 0, r.m.Len())
	for pair := r.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Map returns a plain copy of the answers.
func (r *Result) Map() map[string]any {
	out := make(map[string]any, r.m.Len())
	for pair := r.m.Oldest(); pair != nil; pair = pair.Next() {
		out[pair.Key] = pair.Value
	}
	return out
}

// Entry is one persisted answer.
type Entry struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

func EncodeValue(f Field, v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", f.Base().Name, err)
	}
	return data, nil
}

// DecodeValue restores a value written by EncodeValue into the field's value type.
func DecodeValue(f Field, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	ptr := reflect.New(f.ValueType())
	if err := sonic.Unmarshal(raw, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.Base().Name, err)
	}
	v := ptr.Elem().Interface()
	if n, ok := f.(valueNormalizer); ok {
		v = n.normalize(v)
	}
	if c, ok := f.(valueChecker); ok {
		if err := c.checkValue(v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", f.Base().Name, err)
		}
	}
	return v, nil
}

func (f *Form) EncodeResult(r *Result) ([]Entry, error) {
	entries := make([]Entry, 0, r.Len())
	for pair := r.m.Oldest(); pair != nil; pair = pair.Next() {
		fld, ok := f.byName[pair.Key]
		if !ok {
			return nil, fmt.Errorf("result has unknown field %q", pair.Key)
		}
		raw, err := EncodeValue(fld, pair.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Field: pair.Key, Value: raw})
	}
	return entries, nil
}

func (f *Form) DecodeResult(entries []Entry) (*Result, error) {
	r := NewResult()
	for _, e := range entries {
		fld, ok := f.byName[e.Field]
		if !ok {
			return nil, fmt.Errorf("stored result has unknown field %q", e.Field)
		}
		v, err := DecodeValue(fld, e.Value)
		if err != nil {
			return nil, err
		}
		r.Set(e.Field, v)
	}
	return r, nil
}

// ResultFromMap builds a result from loosely typed values, e.g. an initial
// result supplied by application code. Values are normalised through the field
// codec; names are taken in form declaration order.
func (f *Form) ResultFromMap(values map[string]any) (*Result, error) {
	r := NewResult()
	for _, fld := range f.fields {
		name := fld.Base().Name
		v, ok := values[name]
		if !ok {
			continue
		}
		raw, err := EncodeValue(fld, v)
		if err != nil {
			return nil, err
		}
		decoded, err := DecodeValue(fld, raw)
		if err != nil {
			return nil, err
		}
		r.Set(name, decoded)
	}
	for name := range values {
		if _, ok := f.byName[name]; !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
	}
	return r, nil
}

// CloneResult copies r through the field codec, so no value is shared.
func (f *Form) CloneResult(r *Result) (*Result, error) {
	entries, err := f.EncodeResult(r)
	if err != nil {
		return nil, err
	}
	return f.DecodeResult(entries)
}

// ResultJSON renders the result as a JSON object keyed by field name.
func (f *Form) ResultJSON(r *Result) ([]byte, error) {
	entries, err := f.EncodeResult(r)
	if err != nil {
		return nil, err
	}
	obj := make(map[string]json.RawMessage, len(entries))
	for _, e := range entries {
		obj[e.Field] = e.Value
	}
	return sonic.Marshal(obj)
}

// ResultInto decodes the result into a struct whose json tags name fields.
func (f *Form) ResultInto(r *Result, dst any) error {
	data, err := f.ResultJSON(r)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, dst)
}
