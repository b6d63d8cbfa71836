package reconcile

import (
	"errors"

	"github.com/qverisai/qveris-cli/store"
)

// TransitionKind classifies what happened to the installed version
// since the previous run.
type TransitionKind int

const (
	Unchanged TransitionKind = iota
	FirstRun
	Upgraded
)

// Transition is computed once at startup and passed into the
// reconciler instead of being re-read ad hoc.
type Transition struct {
	Kind TransitionKind
	From string
	To   string
}

// Force reports whether reconciliation should replace generated content
// even when it already looks applied.
func (t Transition) Force() bool {
	return t.Kind != Unchanged
}

// DetectTransition compares the stored last-seen version against the
// running one.
func DetectTransition(st *store.Store, running string) (Transition, error) {
	last, err := st.GetState(store.StateLastVersion)
	if errors.Is(err, store.ErrNotFound) || (err == nil && last == "") {
		return Transition{Kind: FirstRun, To: running}, nil
	}
	if err != nil {
		return Transition{}, err
	}
	if last != running {
		return Transition{Kind: Upgraded, From: last, To: running}, nil
	}
	return Transition{Kind: Unchanged, From: last, To: running}, nil
}

// Commit records the running version as seen, ending the FirstRun or
// Upgraded state for subsequent startups.
func (t Transition) Commit(st *store.Store) error {
	return st.SetState(store.StateLastVersion, t.To)
}
