package domain

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Well-known tag keys the surrounding platform uses to build context
// hierarchies. The pipeline treats every tag key and value as opaque.
const (
	TagNamespace   = "namespace"
	TagApplication = "app"
	TagProgram     = "program"
	TagRunID       = "run_id"
	TagComponent   = "component"
	TagInstance    = "instance"
)

// TagSet is an immutable, key-unique set of dimension tags identifying one
// aggregation bucket. Equality is structural and independent of the order
// tags were added in.
type TagSet struct {
	tags map[string]string
	key  string
}

// NewTagSet builds a TagSet from the given map. The map is copied, so the
// caller may reuse or mutate it afterwards.
func NewTagSet(tags map[string]string) TagSet {
	if len(tags) == 0 {
		return TagSet{}
	}
	cp := make(map[string]string, len(tags))
	maps.Copy(cp, tags)
	return TagSet{tags: cp, key: canonicalKey(cp)}
}

// Extend returns a new TagSet carrying one additional pair. It fails with
// ErrInvalidTag when name is already present in the lineage: re-tagging a
// dimension is a programming error, not a silent overwrite.
func (t TagSet) Extend(name, value string) (TagSet, error) {
	if _, ok := t.tags[name]; ok {
		return TagSet{}, fmt.Errorf("%w: %q already set", ErrInvalidTag, name)
	}
	cp := make(map[string]string, len(t.tags)+1)
	maps.Copy(cp, t.tags)
	cp[name] = value
	return TagSet{tags: cp, key: canonicalKey(cp)}, nil
}

// Key returns the canonical "k=v,..." form with keys sorted. Buckets in the
// aggregation table are indexed by it.
func (t TagSet) Key() string { return t.key }

// Len reports the number of tags.
func (t TagSet) Len() int { return len(t.tags) }

// Value returns the value stored under name.
func (t TagSet) Value(name string) (string, bool) {
	v, ok := t.tags[name]
	return v, ok
}

// Map returns a copy of the underlying tag map.
func (t TagSet) Map() map[string]string {
	cp := make(map[string]string, len(t.tags))
	maps.Copy(cp, t.tags)
	return cp
}

// Equal reports whether both TagSets hold the same pairs.
func (t TagSet) Equal(o TagSet) bool { return t.key == o.key }

func (t TagSet) String() string { return t.key }

// MarshalJSON encodes the TagSet as its plain tag map.
func (t TagSet) MarshalJSON() ([]byte, error) {
	if t.tags == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t.tags)
}

// UnmarshalJSON decodes a plain tag map.
func (t *TagSet) UnmarshalJSON(b []byte) error {
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*t = NewTagSet(m)
	return nil
}

func canonicalKey(tags map[string]string) string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(tags[k])
	}
	return sb.String()
}
