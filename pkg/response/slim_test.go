package response

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/usergrid/pkg/coordinator"
	"github.com/kittclouds/usergrid/pkg/editsession"
	"github.com/kittclouds/usergrid/pkg/records"
)

func TestMarshalSessionOrdersDrafts(t *testing.T) {
	s := editsession.Session{
		Drafts: map[int]records.Record{
			2: {ID: 2, Name: "c"},
			0: {ID: 0, Name: "a"},
		},
		BulkInProgress: true,
	}

	data, err := MarshalSession(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"drafts": [
			{"id": 0, "name": "a", "username": "", "email": ""},
			{"id": 2, "name": "c", "username": "", "email": ""}
		],
		"bulkInProgress": true
	}`, string(data))
}

func TestEmptySessionHasEmptyList(t *testing.T) {
	data, err := MarshalSession(editsession.Session{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"drafts": [], "bulkInProgress": false}`, string(data))
}

func TestFromOutcome(t *testing.T) {
	assert.Equal(t, SlimOutcome{Outcome: coordinator.OutcomeSaved}, FromOutcome(coordinator.OutcomeSaved, nil))

	got := FromOutcome(coordinator.OutcomeFailed, errors.New("boom"))
	assert.Equal(t, "boom", got.Error)
}
