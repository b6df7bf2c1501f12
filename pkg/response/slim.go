// Package response provides the JSON views handed to UI clients
// (the wasm bridge and the CLI's --json output).
package response

import (
	"encoding/json"

	"github.com/kittclouds/usergrid/pkg/coordinator"
	"github.com/kittclouds/usergrid/pkg/editsession"
	"github.com/kittclouds/usergrid/pkg/records"
)

// SlimSession is an edit session with drafts as an id-ordered list.
// JS clients iterate it directly instead of walking an id-keyed object.
type SlimSession struct {
	Drafts         []records.Record `json:"drafts"`
	BulkInProgress bool             `json:"bulkInProgress"`
}

// SlimOutcome is the result of a save.
type SlimOutcome struct {
	Outcome coordinator.Outcome `json:"outcome"`
	Error   string              `json:"error,omitempty"`
}

// FromSession converts a session snapshot.
func FromSession(s editsession.Session) SlimSession {
	out := SlimSession{
		Drafts:         make([]records.Record, 0, len(s.Drafts)),
		BulkInProgress: s.BulkInProgress,
	}
	for _, id := range records.SortedIDs(s.Drafts) {
		out.Drafts = append(out.Drafts, s.Drafts[id])
	}
	return out
}

// FromOutcome pairs an outcome with its error, if any.
func FromOutcome(outcome coordinator.Outcome, err error) SlimOutcome {
	out := SlimOutcome{Outcome: outcome}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

// MarshalSession is json.Marshal(FromSession(s)).
func MarshalSession(s editsession.Session) ([]byte, error) {
	return json.Marshal(FromSession(s))
}
