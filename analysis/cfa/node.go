package cfa

import (
	"fmt"
	"go/token"
	"strings"

	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/utils"

	"github.com/fatih/color"
)

var colorize = struct {
	Node func(...interface{}) string
	Edge func(...interface{}) string
	Err  func(...interface{}) string
}{
	Node: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
	},
	Edge: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiWhite, color.Faint).SprintFunc())(is...)
	},
	Err: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
	},
}

type NodeKind int

const (
	PlainNode NodeKind = iota
	FunctionEntryNode
	FunctionExitNode
	ErrorNode
)

// Node is a program location of a control-flow automaton.
type Node struct {
	id       int
	function string
	kind     NodeKind
	leaving  []*Edge
	entering []*Edge
}

func (n *Node) ID() int {
	return n.id
}

// Function is the name of the function the location belongs to.
func (n *Node) Function() string {
	return n.function
}

func (n *Node) Kind() NodeKind {
	return n.kind
}

// IsError checks whether the location is a target location.
func (n *Node) IsError() bool {
	return n.kind == ErrorNode
}

func (n *Node) Leaving() []*Edge {
	return n.leaving
}

func (n *Node) Entering() []*Edge {
	return n.entering
}

func (n *Node) Hash() uint32 {
	return utils.HashInt(n.id)
}

func (n *Node) Equal(o *Node) bool {
	return n == o
}

func (n *Node) String() string {
	str := fmt.Sprintf("N%d", n.id)
	if n.kind == ErrorNode {
		return colorize.Err(str)
	}
	return colorize.Node(str)
}

type EdgeKind int

const (
	BlankEdge EdgeKind = iota
	DeclarationEdge
	StatementEdge
	AssumeEdge
	FunctionCallEdge
	FunctionReturnEdge
	ReturnStatementEdge
	MultiEdge
)

func (k EdgeKind) String() string {
	switch k {
	case BlankEdge:
		return "blank"
	case DeclarationEdge:
		return "declaration"
	case StatementEdge:
		return "statement"
	case AssumeEdge:
		return "assume"
	case FunctionCallEdge:
		return "call"
	case FunctionReturnEdge:
		return "return"
	case ReturnStatementEdge:
		return "return-statement"
	case MultiEdge:
		return "multi"
	}
	return fmt.Sprintf("edge-kind(%d)", int(k))
}

// Edge is a transition between two program locations.
//
// Which of the fields are meaningful depends on the kind of the edge:
//   - Declaration and Statement edges assign Expr to Lhs. A declaration
//     without an initializer has a nil Expr, which behaves like Nondet.
//   - Assume edges continue if Expr evaluates to Truth.
//   - FunctionCall edges bind Args (evaluated in the caller) to the
//     parameters of Callee, and record the ReturnSite in the caller.
//   - ReturnStatement edges assign Expr to the return variable of the
//     enclosing function.
//   - FunctionReturn edges lead from the exit of Callee to the return site.
//     If Lhs is set it receives the return value of the callee.
//   - Multi edges execute Edges in sequence.
type Edge struct {
	Kind       EdgeKind
	Pred, Succ *Node
	Lhs        *memloc.MemoryLocation
	Expr       Expr
	Truth      bool
	Callee     *Function
	Args       []Expr
	ReturnSite *Node
	Edges      []*Edge
	// Pos is the source position the edge was translated from, if any.
	Pos token.Pos
}

// Function is the name of the function executing the edge.
func (e *Edge) Function() string {
	if e.Pred == nil {
		return ""
	}
	return e.Pred.function
}

// IsAssume checks whether the edge is a branch condition.
func (e *Edge) IsAssume() bool {
	return e.Kind == AssumeEdge
}

// AssignedVariables collects the memory locations written by the edge.
func (e *Edge) AssignedVariables() memloc.Set {
	res := memloc.NewSet()
	switch e.Kind {
	case DeclarationEdge, StatementEdge:
		if e.Lhs != nil {
			res = res.Add(*e.Lhs)
		}
	case ReturnStatementEdge:
		res = res.Add(ReturnVariable(e.Function()))
	case FunctionCallEdge:
		for _, p := range e.Callee.Params {
			res = res.Add(p)
		}
	case FunctionReturnEdge:
		if e.Lhs != nil {
			res = res.Add(*e.Lhs)
		}
	case MultiEdge:
		for _, inner := range e.Edges {
			res = res.Union(inner.AssignedVariables())
		}
	}
	return res
}

// Assigns checks whether the edge writes any of the given memory locations.
func (e *Edge) Assigns(ls memloc.Set) bool {
	assigns := false
	e.AssignedVariables().ForEach(func(l memloc.MemoryLocation) {
		assigns = assigns || ls.Contains(l)
	})
	return assigns
}

// UsedVariables collects the memory locations read by the edge.
func (e *Edge) UsedVariables() memloc.Set {
	res := Vars(e.Expr)
	switch e.Kind {
	case FunctionCallEdge:
		for _, arg := range e.Args {
			res = res.Union(Vars(arg))
		}
	case FunctionReturnEdge:
		if e.Lhs != nil {
			res = res.Add(ReturnVariable(e.Callee.Name))
		}
	case MultiEdge:
		for _, inner := range e.Edges {
			res = res.Union(inner.UsedVariables())
		}
	}
	return res
}

func (e *Edge) Label() string {
	switch e.Kind {
	case BlankEdge:
		return ""
	case DeclarationEdge:
		if e.Expr == nil {
			return fmt.Sprintf("var %s", e.Lhs)
		}
		return fmt.Sprintf("var %s = %s", e.Lhs, e.Expr)
	case StatementEdge:
		return fmt.Sprintf("%s := %s", e.Lhs, e.Expr)
	case AssumeEdge:
		if e.Truth {
			return fmt.Sprintf("[%s]", e.Expr)
		}
		return fmt.Sprintf("[!%s]", e.Expr)
	case FunctionCallEdge:
		args := []string{}
		for _, arg := range e.Args {
			args = append(args, arg.String())
		}
		return fmt.Sprintf("%s(%s)", e.Callee.Name, strings.Join(args, ", "))
	case ReturnStatementEdge:
		if e.Expr == nil {
			return "return"
		}
		return fmt.Sprintf("return %s", e.Expr)
	case FunctionReturnEdge:
		if e.Lhs != nil {
			return fmt.Sprintf("%s := ret %s", e.Lhs, e.Callee.Name)
		}
		return fmt.Sprintf("ret %s", e.Callee.Name)
	case MultiEdge:
		strs := []string{}
		for _, inner := range e.Edges {
			strs = append(strs, inner.Label())
		}
		return strings.Join(strs, "; ")
	}
	return "?"
}

func (e *Edge) String() string {
	return fmt.Sprintf("%s -{%s}-> %s", e.Pred, colorize.Edge(e.Label()), e.Succ)
}

// ReturnVariable is the memory location holding the return value of a function.
func ReturnVariable(fun string) memloc.MemoryLocation {
	return memloc.Local(fun, "__retval")
}
