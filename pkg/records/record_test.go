package records

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatchApplyKeepsUnsetFields(t *testing.T) {
	r := Record{ID: 3, Name: "a", Username: "ua", Email: "a@test.com"}

	got := Patch{Name: String("a2")}.Apply(r)

	assert.Equal(t, Record{ID: 3, Name: "a2", Username: "ua", Email: "a@test.com"}, got)
	assert.Equal(t, "a", r.Name, "source record must not change")
}

func TestDecodePatchIgnoresID(t *testing.T) {
	p, err := DecodePatch([]byte(`{"id": 99, "email": "new@test.com", "age": 4}`))
	require.NoError(t, err)

	assert.Nil(t, p.Name)
	require.NotNil(t, p.Email)
	assert.Equal(t, "new@test.com", *p.Email)

	got := p.Apply(Record{ID: 1, Email: "old@test.com"})
	assert.Equal(t, 1, got.ID)
}

func TestDecodePatchRejectsNonObject(t *testing.T) {
	_, err := DecodePatch([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestMergeJSONRestoresID(t *testing.T) {
	r := Record{ID: 0, Name: "a", Username: "ua", Email: "a@test.com"}

	got, err := MergeJSON(r, []byte(`{"id": 7, "username": "ua2"}`))
	require.NoError(t, err)

	assert.Equal(t, 0, got.ID)
	assert.Equal(t, "ua2", got.Username)
	assert.Equal(t, "a", got.Name)
}

func TestMergeJSONNullClearsField(t *testing.T) {
	got, err := MergeJSON(Record{ID: 1, Name: "a"}, []byte(`{"name": null}`))
	require.NoError(t, err)
	assert.Equal(t, "", got.Name)
}

func TestSortedIDs(t *testing.T) {
	m := map[int]Record{5: {ID: 5}, 0: {ID: 0}, 2: {ID: 2}}
	assert.Equal(t, []int{0, 2, 5}, SortedIDs(m))
}

func TestFullPatchIsNotEmpty(t *testing.T) {
	assert.True(t, Patch{}.IsEmpty())
	assert.False(t, FullPatch(Record{}).IsEmpty())
}
