package persist

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Record is the persisted form of one key: a (name, type, textual value)
// triple.
type Record struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

type document struct {
	Vars []Record `yaml:"vars"`
}

type rawDocument struct {
	Vars []yaml.Node `yaml:"vars"`
}

// Records returns one record per key in lexical key order.
func (s *Store) Records() []Record {
	keys := s.Keys()
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		v := s.values[k]
		out = append(out, Record{Name: k, Type: v.tag.String(), Value: v.Text()})
	}
	return out
}

// Decode turns a record into a name and value. Records written by older
// saves carry the type inside the value ("System.Int32,5"); commas after the
// first one belong to the value.
func (r Record) Decode() (string, Value, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return "", Value{}, ErrEmptyName
	}
	typ, text := r.Type, r.Value
	if strings.TrimSpace(typ) == "" {
		head, tail, found := strings.Cut(text, ",")
		if !found {
			return "", Value{}, fmt.Errorf("%s: %w: missing type", name, ErrUnknownTag)
		}
		typ, text = head, tail
	}
	tag, err := ParseTag(typ)
	if err != nil {
		return "", Value{}, fmt.Errorf("%s: %w", name, err)
	}
	v, err := ParseValue(tag, text)
	if err != nil {
		return "", Value{}, fmt.Errorf("%s: %w", name, err)
	}
	return name, v, nil
}

// FromRecords builds a store from records. Malformed records are skipped and
// reported in the returned slice; later records win over earlier ones with
// the same name.
func FromRecords(records []Record) (*Store, []error) {
	s := New()
	var skipped []error
	for _, r := range records {
		name, v, err := r.Decode()
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		s.values[name] = v
	}
	return s, skipped
}

// Marshal encodes the store as a YAML record set.
func Marshal(s *Store) ([]byte, error) {
	return yaml.Marshal(document{Vars: s.Records()})
}

// Unmarshal decodes a record set produced by Marshal. Individual records
// that cannot be decoded are skipped and reported; only a document that is
// not YAML at all fails the whole load.
func Unmarshal(data []byte) (*Store, []error, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("decode persistent record set: %w", err)
	}
	records := make([]Record, 0, len(raw.Vars))
	var skipped []error
	for i := range raw.Vars {
		var r Record
		if err := raw.Vars[i].Decode(&r); err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		records = append(records, r)
	}
	s, bad := FromRecords(records)
	return s, append(skipped, bad...), nil
}
