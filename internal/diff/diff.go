// Package diff compares two snapshots of an item by flattening their
// metadata maps into path/value pairs and listing additions, removals and
// changes in sorted path order.
package diff

import (
	"fmt"
	"sort"
	"strings"
)

// Kind classifies one diff entry.
type Kind int

const (
	Added Kind = iota
	Removed
	Changed
)

// Entry is one difference between two flattened snapshots.
type Entry struct {
	Path string
	Kind Kind
	Old  string
	New  string
}

// String renders the entry in the one-line form shown to operators.
func (e Entry) String() string {
	switch e.Kind {
	case Added:
		return "+ " + e.Path + ": " + e.New
	case Removed:
		return "- " + e.Path + ": " + e.Old
	default:
		return "~ " + e.Path + ": " + e.Old + " -> " + e.New
	}
}

// Flatten converts a nested metadata map into path/value pairs. Map fields
// become dotted paths, list elements indexed paths ("lore[0]"). Scalar
// values are rendered with fmt.Sprint.
func Flatten(m map[string]any) map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", m)
	return out
}

func flattenInto(out map[string]string, prefix string, v any) {
	switch val := v.(type) {
	case map[string]any:
		for k, sub := range val {
			flattenInto(out, joinPath(prefix, k), sub)
		}
	case map[string]int:
		for k, sub := range val {
			out[joinPath(prefix, k)] = fmt.Sprint(sub)
		}
	case map[string]string:
		for k, sub := range val {
			out[joinPath(prefix, k)] = sub
		}
	case []string:
		for i, sub := range val {
			out[fmt.Sprintf("%s[%d]", prefix, i)] = sub
		}
	case []any:
		for i, sub := range val {
			flattenInto(out, fmt.Sprintf("%s[%d]", prefix, i), sub)
		}
	default:
		out[prefix] = fmt.Sprint(val)
	}
}

func joinPath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Compute lists the differences between two flattened snapshots, ordered by
// path, compared case-insensitively. Equal values produce no entry.
func Compute(old, new map[string]string) []Entry {
	paths := make([]string, 0, len(old)+len(new))
	seen := make(map[string]struct{}, len(old)+len(new))
	for p := range old {
		paths = append(paths, p)
		seen[p] = struct{}{}
	}
	for p := range new {
		if _, ok := seen[p]; !ok {
			paths = append(paths, p)
		}
	}
	sort.Slice(paths, func(i, j int) bool {
		return strings.ToLower(paths[i]) < strings.ToLower(paths[j])
	})

	var out []Entry
	for _, p := range paths {
		ov, inOld := old[p]
		nv, inNew := new[p]
		switch {
		case inOld && !inNew:
			out = append(out, Entry{Path: p, Kind: Removed, Old: ov})
		case !inOld && inNew:
			out = append(out, Entry{Path: p, Kind: Added, New: nv})
		case ov != nv:
			out = append(out, Entry{Path: p, Kind: Changed, Old: ov, New: nv})
		}
	}
	return out
}
