// Package policy authorizes reply-requested actions against a static,
// declarative rank table. Authorization is a pure function: identical inputs
// always yield identical decisions and ranks missing from the table are denied
// every kind.
package policy

import (
	"fmt"
	"sort"

	"github.com/hupe1980/sentinel/core"
)

// Decision is the result of an authorization check. It is never persisted.
type Decision struct {
	Allowed bool            `json:"allowed"`
	Rank    core.Rank       `json:"rank"`
	Kind    core.ActionKind `json:"kind"`
	Reason  string          `json:"reason,omitempty"`
}

// Table maps a rank to its permitted action kinds. The zero Table denies everything.
type Table struct {
	permits map[core.Rank]map[core.ActionKind]struct{}
}

// NewTable builds a table from rank → kinds. Unknown kinds and RankUnknown are rejected.
func NewTable(grants map[core.Rank][]core.ActionKind) (Table, error) {
	t := Table{permits: make(map[core.Rank]map[core.ActionKind]struct{}, len(grants))}
	for rank, kinds := range grants {
		if rank == core.RankUnknown {
			return Table{}, fmt.Errorf("policy: rank %d is not a known rank", int(rank))
		}
		set := make(map[core.ActionKind]struct{}, len(kinds))
		for _, k := range kinds {
			if !k.Valid() {
				return Table{}, fmt.Errorf("policy: unknown action kind %q for rank %s", k, rank)
			}
			set[k] = struct{}{}
		}
		t.permits[rank] = set
	}
	return t, nil
}

// DefaultTable grants Commanders every kind and Captains project creation and
// environment manipulation. All other ranks are denied.
func DefaultTable() Table {
	t, _ := NewTable(map[core.Rank][]core.ActionKind{
		core.RankCommander: core.ActionKinds(),
		core.RankCaptain:   {core.ActionCreateProject, core.ActionManipulateEnvironment},
	})
	return t
}

// Permitted returns the sorted kinds granted to rank (empty when absent).
func (t Table) Permitted(rank core.Rank) []core.ActionKind {
	set := t.permits[rank]
	out := make([]core.ActionKind, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Authorize decides whether rank may request kind. It has no side effects.
func (t Table) Authorize(rank core.Rank, kind core.ActionKind) Decision {
	d := Decision{Rank: rank, Kind: kind}
	if !kind.Valid() {
		d.Reason = fmt.Sprintf("unknown action kind %q", kind)
		return d
	}
	if _, ok := t.permits[rank][kind]; !ok {
		d.Reason = fmt.Sprintf("rank %s is not permitted to perform %s", rank, kind)
		return d
	}
	d.Allowed = true
	return d
}

// Authorizer is the interface the engine depends on.
type Authorizer interface {
	Authorize(rank core.Rank, kind core.ActionKind) Decision
}

var _ Authorizer = Table{}
