package rbac

import (
	"encoding/json"
	"sort"
)

// StringSet is an unordered set of strings. It marshals as a sorted JSON
// array so wire output is deterministic, but callers must not rely on
// ordering: set-shaped envelope fields are mathematically sets.
type StringSet map[string]struct{}

// NewStringSet builds a set from the given values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

func (s StringSet) Add(v string) {
	s[v] = struct{}{}
}

func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Slice returns the members sorted ascending.
func (s StringSet) Slice() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

func (s *StringSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	set := make(StringSet, len(values))
	for _, v := range values {
		set.Add(v)
	}
	*s = set
	return nil
}
