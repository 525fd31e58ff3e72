// Package variant implements the canonical variant key used to index
// per-combination stock, plus the stock mapping and its display form.
//
// A key is the selection of one value per attribute, sorted by attribute
// name and serialized as "Name:Value,Name:Value". Sorting uses plain Go
// string comparison (byte order of the UTF-8 encoding), so the same selection
// always yields the same key regardless of the order it was supplied in.
package variant

import (
	"sort"
	"strings"
)

const (
	pairSeparator  = ","
	valueSeparator = ":"
)

// HasReservedChars reports whether s contains a key separator and so cannot
// be used as an attribute name or value
func HasReservedChars(s string) bool {
	return strings.ContainsAny(s, pairSeparator+valueSeparator)
}

// Pair is one attribute choice inside a Key
type Pair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Key is the structured form of a variant key, sorted by attribute name
type Key []Pair

// NewKey sorts a selection into its canonical structured form
func NewKey(selection map[string]string) Key {
	key := make(Key, 0, len(selection))
	for name, value := range selection {
		key = append(key, Pair{Name: name, Value: value})
	}
	sort.Slice(key, func(i, j int) bool {
		if key[i].Name == key[j].Name {
			return key[i].Value < key[j].Value
		}
		return key[i].Name < key[j].Name
	})
	return key
}

// String serializes the key as "Name:Value,Name:Value"
func (k Key) String() string {
	if len(k) == 0 {
		return ""
	}
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = p.Name + valueSeparator + p.Value
	}
	return strings.Join(parts, pairSeparator)
}

// Selection converts the key back to an attribute -> value mapping
func (k Key) Selection() map[string]string {
	selection := make(map[string]string, len(k))
	for _, p := range k {
		selection[p.Name] = p.Value
	}
	return selection
}

// BuildKey returns the canonical key for a selection. An empty selection
// yields the empty key.
func BuildKey(selection map[string]string) string {
	return NewKey(selection).String()
}

// ParseKeyPairs splits a key into pairs in the order they appear. It never
// fails: empty segments are skipped and a segment without ':' becomes a pair
// with an empty name and the whole segment as its value.
func ParseKeyPairs(key string) Key {
	if strings.TrimSpace(key) == "" {
		return nil
	}

	var pairs Key
	for _, segment := range strings.Split(key, pairSeparator) {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		name, value, found := strings.Cut(segment, valueSeparator)
		if !found {
			pairs = append(pairs, Pair{Value: strings.TrimSpace(segment)})
			continue
		}
		pairs = append(pairs, Pair{
			Name:  strings.TrimSpace(name),
			Value: strings.TrimSpace(value),
		})
	}
	return pairs
}

// ParseKey is the inverse of BuildKey
func ParseKey(key string) map[string]string {
	return ParseKeyPairs(key).Selection()
}

// Canonicalize rewrites a key so that segment order no longer matters
func Canonicalize(key string) string {
	return BuildKey(ParseKey(key))
}
