package arg

import (
	"fmt"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/precision"
	"github.com/cs-au-dk/cegar/analysis/value"
	"github.com/cs-au-dk/cegar/utils"

	"github.com/fatih/color"
)

var colorize = struct {
	State  func(...interface{}) string
	Target func(...interface{}) string
}{
	State: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiYellow).SprintFunc())(is...)
	},
	Target: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiRed, color.Bold).SprintFunc())(is...)
	},
}

// State is a node of the abstract reachability graph: a program location
// with its call stack and abstract value, computed under a precision.
type State struct {
	id        int
	node      *cfa.Node
	stack     *CallStack
	value     value.State
	prec      precision.Composite
	parent    *State
	edge      *cfa.Edge
	children  []*State
	coveredBy *State
	covers    []*State
	removed   bool
}

func (s *State) ID() int {
	return s.id
}

// Node is the program location of the state.
func (s *State) Node() *cfa.Node {
	return s.node
}

func (s *State) CallStack() *CallStack {
	return s.stack
}

func (s *State) Value() value.State {
	return s.value
}

// Precision is the precision under which the successors of the state are
// computed.
func (s *State) Precision() precision.Composite {
	return s.prec
}

// Parent is nil for the root of the ARG.
func (s *State) Parent() *State {
	return s.parent
}

// IncomingEdge is the CFA edge from the parent to the state.
func (s *State) IncomingEdge() *cfa.Edge {
	return s.edge
}

func (s *State) Children() []*State {
	return s.children
}

// IsTarget checks whether the state is at an error location.
func (s *State) IsTarget() bool {
	return s.node.IsError()
}

// IsCovered checks whether another state subsumes this one.
func (s *State) IsCovered() bool {
	return s.coveredBy != nil
}

func (s *State) CoveredBy() *State {
	return s.coveredBy
}

// IsRemoved holds for states that were removed from the reached set.
func (s *State) IsRemoved() bool {
	return s.removed
}

// IsAncestorOf checks whether o is in the subtree rooted at s.
func (s *State) IsAncestorOf(o *State) bool {
	for ; o != nil; o = o.parent {
		if o == s {
			return true
		}
	}
	return false
}

func (s *State) Depth() (depth int) {
	for p := s.parent; p != nil; p = p.parent {
		depth++
	}
	return
}

func (s *State) Hash() uint32 {
	return utils.HashInt(s.id)
}

func (s *State) Equal(o *State) bool {
	return s == o
}

func (s *State) String() string {
	str := fmt.Sprintf("S%d@N%d", s.id, s.node.ID())
	if s.IsTarget() {
		return colorize.Target(str)
	}
	return colorize.State(str)
}

// Label renders the state with its abstract value.
func (s *State) Label() string {
	str := fmt.Sprintf("S%d@N%d %s", s.id, s.node.ID(), s.value.Compact())
	if s.IsCovered() {
		str += fmt.Sprintf(" ⊑ S%d", s.coveredBy.id)
	}
	return str
}
