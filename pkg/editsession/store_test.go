package editsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/usergrid/pkg/records"
)

var (
	userA = records.Record{ID: 0, Name: "a", Username: "ua", Email: "a@test.com"}
	userB = records.Record{ID: 1, Name: "b", Username: "ub", Email: "b@test.com"}
)

func TestStartEditReplacesDrafts(t *testing.T) {
	s := New()
	s.StartEdit([]records.Pair{{ID: 0, Record: userA}})
	s.StartEdit([]records.Pair{{ID: 1, Record: userB}})

	assert.False(t, s.IsEditing(0))
	assert.True(t, s.IsEditing(1))
	assert.Equal(t, 1, s.Len())
}

func TestStartEditKeepsBulkFlag(t *testing.T) {
	s := New()
	s.SetBulkInProgress(true)
	s.StartEdit([]records.Pair{{ID: 0, Record: userA}})

	assert.True(t, s.IsBulkInProgress())
}

func TestStartEditAllRaisesBulkFlag(t *testing.T) {
	s := New()
	s.StartEdit([]records.Pair{{ID: 5, Record: records.Record{ID: 5}}})
	s.StartEditAll([]records.Record{userA, userB})

	assert.True(t, s.IsBulkInProgress())
	assert.Equal(t, map[int]records.Record{0: userA, 1: userB}, s.Drafts())
}

func TestPatchDraftAbsentIsNoop(t *testing.T) {
	s := New()
	s.StartEdit([]records.Pair{{ID: 0, Record: userA}})
	before := s.Drafts()

	changed := s.PatchDraft(3, records.Patch{Name: records.String("x")})

	assert.False(t, changed)
	assert.Equal(t, before, s.Drafts())
}

func TestPatchDraftMerges(t *testing.T) {
	s := New()
	s.StartEdit([]records.Pair{{ID: 0, Record: userA}})

	require.True(t, s.PatchDraft(0, records.Patch{Name: records.String("a2")}))

	d, ok := s.Draft(0)
	require.True(t, ok)
	assert.Equal(t, "a2", d.Name)
	assert.Equal(t, "ua", d.Username)
	assert.Equal(t, 0, d.ID)
}

func TestDraftsAreIndependentCopies(t *testing.T) {
	s := New()
	s.StartEdit([]records.Pair{{ID: 0, Record: userA}})

	view := s.Drafts()
	view[0] = records.Record{ID: 0, Name: "tampered"}
	delete(view, 0)

	d, ok := s.Draft(0)
	require.True(t, ok)
	assert.Equal(t, "a", d.Name)
}

func TestSubscriberSnapshotSurvivesLaterPatches(t *testing.T) {
	s := New()
	var seen []Session
	s.Subscribe(func(sess Session) { seen = append(seen, sess) })

	s.StartEdit([]records.Pair{{ID: 0, Record: userA}})
	s.PatchDraft(0, records.Patch{Name: records.String("a2")})

	require.Len(t, seen, 2)
	assert.Equal(t, "a", seen[0].Drafts[0].Name)
	assert.Equal(t, "a2", seen[1].Drafts[0].Name)
}

func TestPatchDraftJSON(t *testing.T) {
	s := New()
	s.StartEdit([]records.Pair{{ID: 0, Record: userA}})

	require.NoError(t, s.PatchDraftJSON(0, []byte(`{"id": 4, "email": "x@test.com"}`)))
	require.NoError(t, s.PatchDraftJSON(9, []byte(`{"email": "ignored"}`)))

	d, _ := s.Draft(0)
	assert.Equal(t, 0, d.ID)
	assert.Equal(t, "x@test.com", d.Email)
	assert.False(t, s.IsEditing(9))

	assert.Error(t, s.PatchDraftJSON(0, []byte(`{not json`)))
}

func TestDiscardLeavesOthers(t *testing.T) {
	s := New()
	s.StartEditAll([]records.Record{userA, userB})

	assert.True(t, s.Discard(0))
	assert.False(t, s.Discard(0))
	assert.True(t, s.IsEditing(1))
	assert.True(t, s.IsBulkInProgress())
}

func TestReset(t *testing.T) {
	s := New()
	s.StartEditAll([]records.Record{userA, userB})
	s.Reset()

	assert.Zero(t, s.Len())
	assert.False(t, s.IsBulkInProgress())
}
