// Package records defines the user record shared by the stores, the save
// coordinator and the transport adapters.
package records

import (
	"encoding/json"
	"fmt"
	"sort"

	jsonpatch "github.com/evanphx/json-patch"
)

// Record is a single user row. ID is immutable once created; 0 is a valid id.
type Record struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Patch is a partial record. Only the editable columns are present,
// so an id can never be patched.
type Patch struct {
	Name     *string `json:"name,omitempty"`
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Update pairs a record id with the changes to merge into it.
type Update struct {
	ID      int
	Changes Patch
}

// Pair is an id and the record seeded for it.
type Pair struct {
	ID     int
	Record Record
}

// String returns a pointer to s, for building patches inline.
func String(s string) *string {
	return &s
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Username == nil && p.Email == nil
}

// Apply returns r with the patch fields merged in. The id is left untouched.
func (p Patch) Apply(r Record) Record {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Username != nil {
		r.Username = *p.Username
	}
	if p.Email != nil {
		r.Email = *p.Email
	}
	return r
}

// FullPatch returns a patch that sets every editable field of r.
func FullPatch(r Record) Patch {
	return Patch{
		Name:     String(r.Name),
		Username: String(r.Username),
		Email:    String(r.Email),
	}
}

// DecodePatch parses a JSON object into a Patch. The id key and unknown keys
// are ignored.
func DecodePatch(data []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return Patch{}, fmt.Errorf("records: decode patch: %w", err)
	}
	return p, nil
}

// MergeJSON applies an RFC 7386 merge patch to r and returns the result.
// The record id always survives, whatever the patch says about it.
func MergeJSON(r Record, patch []byte) (Record, error) {
	doc, err := json.Marshal(r)
	if err != nil {
		return r, fmt.Errorf("records: marshal record %d: %w", r.ID, err)
	}

	merged, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return r, fmt.Errorf("records: merge patch into %d: %w", r.ID, err)
	}

	var out Record
	if err := json.Unmarshal(merged, &out); err != nil {
		return r, fmt.Errorf("records: decode merged record %d: %w", r.ID, err)
	}
	out.ID = r.ID
	return out, nil
}

// SortedIDs returns the keys of m in ascending order.
func SortedIDs(m map[int]Record) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// CopyMap returns a shallow copy of m. Records are values, so the copy is
// independent of the source.
func CopyMap(m map[int]Record) map[int]Record {
	out := make(map[int]Record, len(m))
	for id, r := range m {
		out[id] = r
	}
	return out
}
