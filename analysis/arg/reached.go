// Package arg implements the abstract reachability graph built by the
// explicit-value analysis, together with the reached-set operations used by
// refinement.
package arg

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/precision"
	"github.com/cs-au-dk/cegar/analysis/value"
	"github.com/cs-au-dk/cegar/utils/graph"
	"github.com/cs-au-dk/cegar/utils/pq"
	W "github.com/cs-au-dk/cegar/utils/worklist"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/container/intsets"
)

// ErrForeignState is reported when a reached-set operation receives a state
// that is not part of the reached set.
var ErrForeignState = errors.New("state is not part of the reached set")

// ReachedSet holds the ARG and the waitlist of states whose successors
// have not been computed yet.
type ReachedSet struct {
	cfa      *cfa.CFA
	root     *State
	states   map[int]*State
	byNode   map[*cfa.Node][]*State
	waitlist pq.PriorityQueue[*State]
	priority graph.SCCDecomposition[*cfa.Node]
	nextID   int
}

// New creates a reached set containing only the initial state of the
// program, computed under the given precision.
func New(c *cfa.CFA, prec precision.Composite) *ReachedSet {
	r := &ReachedSet{
		cfa:      c,
		states:   make(map[int]*State),
		byNode:   make(map[*cfa.Node][]*State),
		priority: c.Graph().SCC([]*cfa.Node{c.Entry()}),
	}
	r.waitlist = pq.Empty[*State](r.less)
	r.root = r.newState(nil, nil, c.Entry(), nil, value.Empty(), prec)
	r.waitlist.Add(r.root)
	return r
}

// less prioritizes states at locations closer to the end of the program,
// following the reverse topological order of the CFA's strongly connected
// components. Within a component the most recent state is preferred.
func (r *ReachedSet) less(a, b *State) bool {
	ca, cb := r.priority.ComponentOf(a.node), r.priority.ComponentOf(b.node)
	if ca != cb {
		return ca < cb
	}
	return a.id > b.id
}

func (r *ReachedSet) newState(
	parent *State,
	edge *cfa.Edge,
	node *cfa.Node,
	stack *CallStack,
	val value.State,
	prec precision.Composite,
) *State {
	s := &State{
		id:     r.nextID,
		node:   node,
		stack:  stack,
		value:  val,
		prec:   prec,
		parent: parent,
		edge:   edge,
	}
	r.nextID++
	r.states[s.id] = s
	r.byNode[node] = append(r.byNode[node], s)
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

func (r *ReachedSet) CFA() *cfa.CFA {
	return r.cfa
}

func (r *ReachedSet) Root() *State {
	return r.root
}

func (r *ReachedSet) Size() int {
	return len(r.states)
}

// Contains checks whether the state is part of the reached set.
func (r *ReachedSet) Contains(s *State) bool {
	return s != nil && r.states[s.id] == s
}

// States returns all states ordered by ID.
func (r *ReachedSet) States() []*State {
	res := make([]*State, 0, len(r.states))
	for _, s := range r.states {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].id < res[j].id
	})
	return res
}

// Targets returns the target states ordered by ID.
func (r *ReachedSet) Targets() (res []*State) {
	for _, s := range r.States() {
		if s.IsTarget() {
			res = append(res, s)
		}
	}
	return
}

// HasWaitingState checks whether some state still needs to be expanded.
func (r *ReachedSet) HasWaitingState() bool {
	return !r.waitlist.IsEmpty()
}

func (r *ReachedSet) WaitlistSize() int {
	return r.waitlist.Len()
}

// PopFromWaitlist removes the state with the highest priority from the
// waitlist.
func (r *ReachedSet) PopFromWaitlist() *State {
	return r.waitlist.GetNext()
}

// Add inserts the successor of parent along edge. The successor inherits
// the precision of its parent. Target states are not added to the waitlist.
func (r *ReachedSet) Add(parent *State, edge *cfa.Edge, stack *CallStack, val value.State) *State {
	s := r.newState(parent, edge, edge.Succ, stack, val, parent.prec)
	if !s.IsTarget() {
		r.waitlist.Add(s)
	}
	return s
}

// AddCovered inserts the successor of parent along edge as a state covered
// by an existing state. Covered states are never expanded.
func (r *ReachedSet) AddCovered(parent *State, edge *cfa.Edge, stack *CallStack, val value.State, by *State) *State {
	s := r.newState(parent, edge, edge.Succ, stack, val, parent.prec)
	s.coveredBy = by
	by.covers = append(by.covers, s)
	return s
}

// FindCovering looks for an uncovered state at the same location and call
// stack which subsumes the given value.
func (r *ReachedSet) FindCovering(node *cfa.Node, stack *CallStack, val value.State) (*State, bool) {
	for _, s := range r.byNode[node] {
		if !s.IsCovered() && s.stack.Equal(stack) && val.LessOrEqual(s.value) {
			return s, true
		}
	}
	return nil, false
}

// PathTo extracts the path of the ARG from the root to the given state.
func (r *ReachedSet) PathTo(target *State) (Path, error) {
	if !r.Contains(target) {
		return Path{}, errors.Wrapf(ErrForeignState, "path to %s", target)
	}

	states := []*State{}
	for s := target; s != nil; s = s.parent {
		states = append(states, s)
	}

	p := Path{
		States: make([]*State, len(states)),
		Edges:  make([]*cfa.Edge, len(states)-1),
	}
	for i, s := range states {
		p.States[len(states)-1-i] = s
	}
	for i := range p.Edges {
		p.Edges[i] = p.States[i+1].edge
	}
	return p, nil
}

// SubtreePrecision joins the value precisions of all states in the subtree
// rooted at the given state.
func (r *ReachedSet) SubtreePrecision(root *State) precision.VariablePrecision {
	prec := root.prec.Value()
	W.Start(root, func(s *State, add func(*State)) {
		prec = prec.Join(s.prec.Value())
		for _, c := range s.children {
			add(c)
		}
	})
	return prec
}

// Graph exposes the tree edges of the ARG.
func (r *ReachedSet) Graph() graph.Graph[*State] {
	return graph.OfHashable(func(s *State) []*State {
		return s.children
	})
}

// RemoveSubtree removes the subtree rooted at the given state, together
// with every state covered by a removed state. The surviving parents of the
// removed states are re-added to the waitlist, with their precision
// component of the same kind replaced by prec. Removing the ARG root
// replaces it by a fresh initial state.
//
// If an error is returned the reached set is unchanged.
func (r *ReachedSet) RemoveSubtree(root *State, prec precision.Precision) error {
	if !r.Contains(root) {
		return errors.Wrapf(ErrForeignState, "removing subtree of %s", root)
	}
	if prec == nil {
		return errors.New("removing subtree without a precision")
	}

	// Collect the states to remove before touching the ARG.
	var removed intsets.Sparse
	W.Start(root, func(s *State, add func(*State)) {
		if !removed.Insert(s.id) {
			return
		}
		for _, c := range s.children {
			add(c)
		}
		for _, c := range s.covers {
			add(c)
		}
	})

	readd := map[*State]struct{}{}
	for _, id := range removed.AppendTo(nil) {
		if p := r.states[id].parent; p != nil && !removed.Has(p.id) {
			readd[p] = struct{}{}
		}
	}

	log.WithFields(log.Fields{
		"root":    root.String(),
		"removed": removed.Len(),
		"readded": len(readd),
	}).Debug("Removing ARG subtree")

	for _, id := range removed.AppendTo(nil) {
		s := r.states[id]
		s.removed = true
		delete(r.states, id)
		if cov := s.coveredBy; cov != nil && !removed.Has(cov.id) {
			cov.covers = filter(cov.covers, func(o *State) bool { return o != s })
		}
	}
	for node, ss := range r.byNode {
		r.byNode[node] = filter(ss, func(s *State) bool { return !removed.Has(s.id) })
	}
	for p := range readd {
		p.children = filter(p.children, func(s *State) bool { return !removed.Has(s.id) })
	}
	r.waitlist.Filter(func(s *State) bool { return !removed.Has(s.id) })

	if root == r.root {
		old := r.root
		r.root = r.newState(nil, nil, old.node, old.stack, old.value, old.prec.Replace(prec))
		r.waitlist.Add(r.root)
		return nil
	}

	for p := range readd {
		p.prec = p.prec.Replace(prec)
		r.waitlist.Add(p)
	}
	return nil
}

func filter(ss []*State, keep func(*State) bool) []*State {
	res := ss[:0]
	for _, s := range ss {
		if keep(s) {
			res = append(res, s)
		}
	}
	return res
}

// Snapshot renders the complete ARG structure and waitlist. Two snapshots
// are equal iff the reached set was not modified in between.
func (r *ReachedSet) Snapshot() string {
	var sb strings.Builder
	for _, s := range r.States() {
		parent := -1
		if s.parent != nil {
			parent = s.parent.id
		}
		fmt.Fprintf(&sb, "S%d@N%d parent=%d prec=%d", s.id, s.node.ID(), parent, s.prec.Value().Size())
		if s.coveredBy != nil {
			fmt.Fprintf(&sb, " covered=%d", s.coveredBy.id)
		}
		sb.WriteString("\n")
	}

	waiting := []int{}
	for _, s := range r.waitlist.Elements() {
		waiting = append(waiting, s.id)
	}
	sort.Ints(waiting)
	fmt.Fprintf(&sb, "waitlist=%v\n", waiting)
	return sb.String()
}
