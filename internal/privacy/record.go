package privacy

import "sort"

// Value is a field value as seen by the detectors. Present is false for
// fields whose payload value was null.
type Value struct {
	Text    string
	Present bool
	empty   bool
}

// Text builds a present value
func Text(s string) Value {
	return Value{Text: s, Present: true}
}

// Empty builds a present value that holds nothing, such as a zero, false,
// {} or []. Text keeps its literal form for matching.
func Empty(s string) Value {
	return Value{Text: s, Present: true, empty: true}
}

// Null is the value of a field that exists but holds nothing
var Null = Value{}

// Truthy reports whether the value is present and non-empty
func (v Value) Truthy() bool {
	return v.Present && !v.empty && v.Text != ""
}

// Field is a single named value of a record
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for a field holding text
func F(name, text string) Field {
	return Field{Name: name, Value: Text(text)}
}

// Record is an ordered, immutable mapping from field name to value.
// The zero value is an empty record.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord builds a record from fields in order. A repeated name keeps its
// first position and takes the last value.
func NewRecord(fields ...Field) Record {
	r := Record{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if i, ok := r.index[f.Name]; ok {
			r.fields[i].Value = f.Value
			continue
		}
		r.index[f.Name] = len(r.fields)
		r.fields = append(r.fields, f)
	}
	return r
}

// FromMap builds a record from a plain map, ordering keys lexically
func FromMap(m map[string]string) Record {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, len(names))
	for i, name := range names {
		fields[i] = F(name, m[name])
	}
	return NewRecord(fields...)
}

// Len returns the number of fields
func (r Record) Len() int {
	return len(r.fields)
}

// Get returns the value stored under name
func (r Record) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Keys returns field names in order
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the fields in order
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Map flattens the record into a map of present values
func (r Record) Map() map[string]string {
	m := make(map[string]string, len(r.fields))
	for _, f := range r.fields {
		if f.Value.Present {
			m[f.Name] = f.Value.Text
		}
	}
	return m
}

// replace returns a copy of r with the given texts substituted. Names not
// already in r are ignored so the key set never changes.
func (r Record) replace(texts map[string]string) Record {
	if len(texts) == 0 {
		return r
	}
	out := Record{
		fields: make([]Field, len(r.fields)),
		index:  r.index,
	}
	copy(out.fields, r.fields)
	for name, text := range texts {
		if i, ok := r.index[name]; ok {
			out.fields[i].Value = Text(text)
		}
	}
	return out
}
