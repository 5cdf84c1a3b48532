package flow

import (
	"context"
	"fmt"

	"gaflow/internal/syncbarrier"
)

// filterEntry records, for one branch ID, whether that branch is allowed
// through the filter and, if so, its filtered ID: a dense 0..allowedCount-1
// index among the branches currently passing.
type filterEntry struct {
	allowed    bool
	filteredID int
}

// Filter gates a subset of a branch group's branches through a
// FilteredStep, per spec.md §4.6. It is sized when created and reindexed
// by SetAllowed and Resize; a change of the branch group's branch count
// does not resize it, Resize has to be called for that.
type Filter struct {
	active       bool
	entries      []filterEntry
	allowedCount int
}

// NewFilter creates a filter sized for branchCount branches, all allowed by
// default, with active reporting false until explicitly activated.
func NewFilter(branchCount int) *Filter {
	f := &Filter{entries: make([]filterEntry, branchCount)}
	f.allowAll()
	return f
}

// Active reports whether this filter is currently in effect. An inactive
// filter allows every branch through, regardless of its entries.
func (f *Filter) Active() bool { return f.active }

// SetActive toggles whether the filter is in effect.
func (f *Filter) SetActive(active bool) { f.active = active }

// Allowed reports whether branchID passes this filter.
func (f *Filter) Allowed(branchID int) (bool, error) {
	if branchID < 0 || branchID >= len(f.entries) {
		return false, fmt.Errorf("flow: filter query for out-of-range branch id %d (size %d)", branchID, len(f.entries))
	}
	if !f.active {
		return true, nil
	}
	return f.entries[branchID].allowed, nil
}

// FilteredID returns the dense index of branchID among currently allowed
// branches. It is only meaningful when Allowed(branchID) is true.
func (f *Filter) FilteredID(branchID int) (int, error) {
	if branchID < 0 || branchID >= len(f.entries) {
		return 0, fmt.Errorf("flow: filter query for out-of-range branch id %d (size %d)", branchID, len(f.entries))
	}
	if !f.active {
		return branchID, nil
	}
	return f.entries[branchID].filteredID, nil
}

// AllowedCount returns the number of branches currently passing the
// filter.
func (f *Filter) AllowedCount() int {
	if !f.active {
		return len(f.entries)
	}
	return f.allowedCount
}

// Size returns the branch count this filter is sized for.
func (f *Filter) Size() int { return len(f.entries) }

// SetAllowed changes whether branchID passes, recomputing the dense
// filtered-ID assignment for every allowed branch in ascending branch-ID
// order.
func (f *Filter) SetAllowed(branchID int, allowed bool) error {
	if branchID < 0 || branchID >= len(f.entries) {
		return fmt.Errorf("flow: filter set for out-of-range branch id %d (size %d)", branchID, len(f.entries))
	}
	f.entries[branchID].allowed = allowed
	f.reindex()
	return nil
}

// Resize grows or shrinks the filter to branchCount, preserving every
// surviving branch's allow/disallow flag and recomputing filtered IDs.
func (f *Filter) Resize(branchCount int) {
	resized := make([]filterEntry, branchCount)
	for i := range resized {
		if i < len(f.entries) {
			resized[i].allowed = f.entries[i].allowed
		} else {
			resized[i].allowed = true
		}
	}
	f.entries = resized
	f.reindex()
}

func (f *Filter) allowAll() {
	for i := range f.entries {
		f.entries[i].allowed = true
	}
	f.reindex()
}

func (f *Filter) reindex() {
	next := 0
	for i := range f.entries {
		if f.entries[i].allowed {
			f.entries[i].filteredID = next
			next++
		} else {
			f.entries[i].filteredID = -1
		}
	}
	f.allowedCount = next
}

// FilteredStep is a step that only a subset of branches execute, per
// spec.md §4.6: branches rejected by the filter skip Run entirely, and the
// branches that do run optionally resynchronize on Exit through the step's
// own barrier before continuing past it as a team again.
type FilteredStep struct {
	connectionSet
	id       int
	work     WorkFunc
	outbound *Connection
	syncExit bool
	barrier  *syncbarrier.Barrier
}

// NewFilteredStep creates a filtered step. When syncExit is true, allowed
// branches that carry a filter rendezvous on a barrier before Exit
// returns, so they leave the step together.
func NewFilteredStep(id int, fn WorkFunc, syncExit bool) *FilteredStep {
	s := &FilteredStep{id: id, work: fn, syncExit: syncExit}
	if syncExit {
		s.barrier = syncbarrier.New()
	}
	return s
}

func (s *FilteredStep) ID() int { return s.id }

// Enter consults the branch's current filter (if any); a branch with no
// filter set, or an inactive filter, is always allowed through.
func (s *FilteredStep) Enter(ctx BranchContext) bool {
	filter := ctx.Filter()
	if filter == nil {
		return true
	}
	allowed, err := filter.Allowed(ctx.BranchID())
	if err != nil {
		return false
	}
	return allowed
}

func (s *FilteredStep) Run(ctx BranchContext) error {
	if s.work == nil {
		return nil
	}
	_, err := s.work(ctx)
	return err
}

// Exit rendezvouses allowed branches on the step's barrier when syncExit is
// set. A branch with no filter set does not rendezvous: the step does not
// know the team size without one. A filter with zero allowed branches
// makes the barrier a no-op: with
// nobody entering, nobody calls Exit either, so the barrier is never
// touched for that phase.
func (s *FilteredStep) Exit(ctx BranchContext) {
	if !s.syncExit {
		return
	}
	filter := ctx.Filter()
	expected := s.teamSize(filter)
	if expected <= 0 {
		return
	}
	_, _ = s.barrier.Enter(context.Background(), expected, true)
}

func (s *FilteredStep) teamSize(filter *Filter) int {
	if filter == nil {
		return 0
	}
	return filter.AllowedCount()
}

func (s *FilteredStep) FlowUpdated(branchCount int) {}

func (s *FilteredStep) GetNext(ctx BranchContext) (Step, error) {
	if s.outbound == nil {
		return nil, nil
	}
	return s.outbound.To, nil
}

// AttachOutbound wires this step's sole outbound slot.
func (s *FilteredStep) AttachOutbound(conn *Connection) error {
	if s.outbound != nil {
		return fmt.Errorf("flow: filtered step %d already has an outbound connection", s.id)
	}
	s.outbound = conn
	return nil
}

// DetachOutbound clears the sole outbound slot.
func (s *FilteredStep) DetachOutbound() { s.outbound = nil }

// Outbound returns the step's sole outbound connection, if any.
func (s *FilteredStep) Outbound() *Connection { return s.outbound }
