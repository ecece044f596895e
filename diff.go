package cookielab

import (
	"sort"
	"strings"
)

// Change classifies one cookie's state between two snapshots.
type Change string

const (
	// ChangeAdded means the cookie exists only in the after snapshot.
	ChangeAdded Change = "ADDED"
	// ChangeRemoved means the cookie exists only in the before snapshot.
	ChangeRemoved Change = "REMOVED"
	// ChangeChanged means the cookie exists in both snapshots with differing values.
	ChangeChanged Change = "CHANGED"
	// ChangeUnchanged means the cookie exists in both snapshots with equal values.
	ChangeUnchanged Change = "UNCHANGED"
)

// DiffResult is the per-cookie outcome of comparing two snapshots. Hashes are
// value digests; an empty hash means the cookie was absent on that side.
type DiffResult struct {
	Change     Change
	BeforeHash string
	AfterHash  string
}

// identityMap keys cookies by (name, domain, path). First occurrence wins when
// a browser reports duplicates, matching snapshot dedup semantics.
func identityMap(cookies []Cookie) map[Identity]Cookie {
	m := make(map[Identity]Cookie, len(cookies))
	for _, c := range cookies {
		k := c.Identity()
		if _, ok := m[k]; ok {
			continue
		}
		m[k] = c
	}
	return m
}

// Diff classifies every identity in before ∪ after as added, removed, changed
// or unchanged. Value equality is judged on digests, never raw values.
func Diff(before, after []Cookie) map[Identity]DiffResult {
	bmap := identityMap(before)
	amap := identityMap(after)

	out := make(map[Identity]DiffResult, len(bmap)+len(amap))
	for k, bc := range bmap {
		bh := Digest(bc.Value)
		ac, ok := amap[k]
		if !ok {
			out[k] = DiffResult{Change: ChangeRemoved, BeforeHash: bh}
			continue
		}
		ah := Digest(ac.Value)
		change := ChangeUnchanged
		if bh != ah {
			change = ChangeChanged
		}
		out[k] = DiffResult{Change: change, BeforeHash: bh, AfterHash: ah}
	}
	for k, ac := range amap {
		if _, ok := bmap[k]; ok {
			continue
		}
		out[k] = DiffResult{Change: ChangeAdded, AfterHash: Digest(ac.Value)}
	}
	return out
}

// ChangedNames returns the distinct names of cookies whose identity was added,
// removed or changed between the snapshots, sorted case-insensitively. Unchanged
// cookies never appear, which keeps dynamic column growth bounded.
func ChangedNames(before, after []Cookie) []string {
	seen := make(map[string]struct{})
	for k, r := range Diff(before, after) {
		if r.Change == ChangeUnchanged {
			continue
		}
		seen[k.Name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sortFold(names)
	return names
}

// TargetValues extracts the first-found value for every canonical target key in
// one snapshot. Multiple raw cookies mapping to one key (differing domain/path)
// collapse to the first value seen, a deliberate lossy simplification for
// single-merchant audit runs.
func TargetValues(cookies []Cookie, spec *TargetSpec) map[string]string {
	out := make(map[string]string)
	for _, c := range cookies {
		canon, ok := spec.Classify(c.Name)
		if !ok {
			continue
		}
		if _, ok := out[canon]; ok {
			continue
		}
		out[canon] = c.Value
	}
	return out
}

// DiffTargets compares the two snapshots restricted to the target taxonomy,
// keyed by canonical key. Every key present on either side gets exactly one of
// the four change states.
func DiffTargets(before, after []Cookie, spec *TargetSpec) map[string]DiffResult {
	bvals := TargetValues(before, spec)
	avals := TargetValues(after, spec)

	out := make(map[string]DiffResult, len(bvals)+len(avals))
	for canon, bv := range bvals {
		bh := Digest(bv)
		av, ok := avals[canon]
		if !ok {
			out[canon] = DiffResult{Change: ChangeRemoved, BeforeHash: bh}
			continue
		}
		ah := Digest(av)
		change := ChangeUnchanged
		if bh != ah {
			change = ChangeChanged
		}
		out[canon] = DiffResult{Change: change, BeforeHash: bh, AfterHash: ah}
	}
	for canon, av := range avals {
		if _, ok := bvals[canon]; ok {
			continue
		}
		out[canon] = DiffResult{Change: ChangeAdded, AfterHash: Digest(av)}
	}
	return out
}

// sortFold sorts names alphabetically ignoring case, for reproducible column order.
func sortFold(names []string) {
	sort.Slice(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li == lj {
			return names[i] < names[j]
		}
		return li < lj
	})
}

// sortedKeysFold returns the union of the maps' keys, sorted case-insensitively.
func sortedKeysFold(maps ...map[string]string) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, m := range maps {
		for k := range m {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	sortFold(keys)
	return keys
}
