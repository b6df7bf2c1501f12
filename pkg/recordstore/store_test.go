package recordstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/usergrid/pkg/records"
)

func twoUsers() []records.Record {
	return []records.Record{
		{ID: 0, Name: "api-name1", Username: "api-username1", Email: "api-email1@test.com"},
		{ID: 1, Name: "api-name2", Username: "api-username2", Email: "api-email2@test.com"},
	}
}

func TestSetAllReplacesCollection(t *testing.T) {
	s := New()
	s.SetAll(twoUsers())
	s.SetAll([]records.Record{{ID: 9, Name: "z"}})

	assert.Equal(t, 1, s.Len())
	_, ok := s.Lookup(0)
	assert.False(t, ok)
	assert.Equal(t, []int{9}, s.IDs())
}

func TestSetAllKeepsInputOrder(t *testing.T) {
	s := New()
	n := s.SetAll([]records.Record{{ID: 3}, {ID: 1, Name: "first"}, {ID: 2}, {ID: 1, Name: "last"}})

	assert.Equal(t, 3, n)
	assert.Equal(t, []int{3, 1, 2}, s.IDs())
	r, _ := s.Lookup(1)
	assert.Equal(t, "last", r.Name)
}

func TestUpdateOneMerges(t *testing.T) {
	s := New()
	s.SetAll(twoUsers())

	ok := s.UpdateOne(1, records.Patch{Email: records.String("new@test.com")})
	require.True(t, ok)

	r, found := s.Lookup(1)
	require.True(t, found)
	assert.Equal(t, "new@test.com", r.Email)
	assert.Equal(t, "api-name2", r.Name)
}

func TestUpdateOneUnknownIDIsNoop(t *testing.T) {
	s := New()
	s.SetAll(twoUsers())
	calls := 0
	s.Subscribe(func([]records.Record) { calls++ })

	assert.False(t, s.UpdateOne(42, records.Patch{Name: records.String("x")}))
	assert.Zero(t, calls)
	assert.Equal(t, twoUsers(), s.List())
}

func TestUpdateManyPublishesOnce(t *testing.T) {
	s := New()
	s.SetAll(twoUsers())

	var lists [][]records.Record
	s.Subscribe(func(l []records.Record) { lists = append(lists, l) })

	applied := s.UpdateMany([]records.Update{
		{ID: 0, Changes: records.Patch{Name: records.String("a2")}},
		{ID: 7, Changes: records.Patch{Name: records.String("ghost")}},
		{ID: 1, Changes: records.Patch{Name: records.String("b2")}},
		{ID: 0, Changes: records.Patch{Username: records.String("ua2")}},
	})

	assert.Equal(t, 3, applied)
	require.Len(t, lists, 1)
	assert.Equal(t, "a2", lists[0][0].Name)
	assert.Equal(t, "ua2", lists[0][0].Username)
	assert.Equal(t, "b2", lists[0][1].Name)
}

func TestListIsASnapshot(t *testing.T) {
	s := New()
	s.SetAll(twoUsers())

	before := s.List()
	s.UpdateOne(0, records.Patch{Name: records.String("changed")})

	assert.Equal(t, "api-name1", before[0].Name)
	assert.Equal(t, "changed", s.List()[0].Name)
}

func TestUpsertAppendsUnknownID(t *testing.T) {
	s := New()
	s.SetAll(twoUsers())

	s.Upsert(records.Record{ID: 5, Name: "new"})
	s.Upsert(records.Record{ID: 0, Name: "replaced"})

	assert.Equal(t, []int{0, 1, 5}, s.IDs())
	r, _ := s.Lookup(0)
	assert.Equal(t, records.Record{ID: 0, Name: "replaced"}, r)
}
