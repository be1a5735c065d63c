package cfa

import (
	"fmt"
	"sort"

	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/utils/graph"

	"github.com/pkg/errors"
)

// Function groups the locations of a function between its entry and exit.
type Function struct {
	Name   string
	Entry  *Node
	Exit   *Node
	Params []memloc.MemoryLocation
	nodes  []*Node
}

func (f *Function) Nodes() []*Node {
	return f.nodes
}

// CFA is a control-flow automaton for a whole program.
type CFA struct {
	entry     *Node
	main      *Function
	nodes     []*Node
	functions map[string]*Function
	globals   []memloc.MemoryLocation
}

// Entry is the location where program execution starts.
func (c *CFA) Entry() *Node {
	return c.entry
}

func (c *CFA) Main() *Function {
	return c.main
}

// Nodes returns all locations ordered by ID.
func (c *CFA) Nodes() []*Node {
	return c.nodes
}

func (c *CFA) Node(id int) (*Node, bool) {
	if id < 0 || id >= len(c.nodes) {
		return nil, false
	}
	return c.nodes[id], true
}

func (c *CFA) Function(name string) (*Function, bool) {
	f, ok := c.functions[name]
	return f, ok
}

// Functions returns all functions ordered by name.
func (c *CFA) Functions() []*Function {
	res := make([]*Function, 0, len(c.functions))
	for _, f := range c.functions {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name < res[j].Name
	})
	return res
}

func (c *CFA) Globals() []memloc.MemoryLocation {
	return c.globals
}

// ErrorNodes returns all target locations.
func (c *CFA) ErrorNodes() (res []*Node) {
	for _, n := range c.nodes {
		if n.IsError() {
			res = append(res, n)
		}
	}
	return
}

// Edges returns all edges ordered by their predecessor.
func (c *CFA) Edges() (res []*Edge) {
	for _, n := range c.nodes {
		res = append(res, n.leaving...)
	}
	return
}

// Graph exposes the successor relation of the CFA, including
// interprocedural call and return edges.
func (c *CFA) Graph() graph.Graph[*Node] {
	return graph.OfHashable(func(n *Node) (succs []*Node) {
		for _, e := range n.leaving {
			succs = append(succs, e.Succ)
		}
		return
	})
}

// Builder constructs control-flow automata.
type Builder struct {
	cfa       *CFA
	globalSet map[string]bool
	inits     []*Edge
	err       error
}

func NewBuilder() *Builder {
	return &Builder{
		cfa: &CFA{
			functions: make(map[string]*Function),
		},
		globalSet: make(map[string]bool),
	}
}

func (b *Builder) newNode(fun string, kind NodeKind) *Node {
	n := &Node{
		id:       len(b.cfa.nodes),
		function: fun,
		kind:     kind,
	}
	b.cfa.nodes = append(b.cfa.nodes, n)
	if f, ok := b.cfa.functions[fun]; ok {
		f.nodes = append(f.nodes, n)
	}
	return n
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Global declares a global variable. The declarations are executed in order
// before the entry of the main function. A nil initializer leaves the
// variable undetermined.
func (b *Builder) Global(name string, init Expr) memloc.MemoryLocation {
	l := memloc.Global(name)
	if b.globalSet[name] {
		b.fail(errors.Errorf("global %s declared twice", name))
	}
	b.globalSet[name] = true
	b.cfa.globals = append(b.cfa.globals, l)
	b.inits = append(b.inits, &Edge{Kind: DeclarationEdge, Lhs: &l, Expr: init})
	return l
}

// Function creates a function with the given parameters, together with its
// entry and exit locations.
func (b *Builder) Function(name string, params ...string) *FunctionBuilder {
	if _, ok := b.cfa.functions[name]; ok {
		b.fail(errors.Errorf("function %s declared twice", name))
	}

	f := &Function{Name: name}
	b.cfa.functions[name] = f
	f.Entry = b.newNode(name, FunctionEntryNode)
	f.Exit = b.newNode(name, FunctionExitNode)
	for _, p := range params {
		f.Params = append(f.Params, memloc.Local(name, p))
	}

	fb := &FunctionBuilder{b: b, fun: f, locals: map[string]bool{}}
	for _, p := range params {
		fb.locals[p] = true
	}
	return fb
}

// Build finalizes the CFA with `main` as the program entry function.
func (b *Builder) Build(main string) (*CFA, error) {
	if b.err != nil {
		return nil, b.err
	}

	f, ok := b.cfa.functions[main]
	if !ok {
		return nil, errors.Errorf("entry function %s not found", main)
	}
	b.cfa.main = f

	// Global initializers run on a chain of locations leading into main.
	entry := f.Entry
	for i := len(b.inits) - 1; i >= 0; i-- {
		pred := b.newNode(main, PlainNode)
		e := b.inits[i]
		e.Pred, e.Succ = pred, entry
		pred.leaving = append(pred.leaving, e)
		entry.entering = append(entry.entering, e)
		entry = pred
	}
	b.cfa.entry = entry

	for _, n := range b.cfa.nodes {
		for _, e := range n.leaving {
			if e.Kind == FunctionCallEdge && e.ReturnSite == nil {
				return nil, errors.Errorf("call edge %s has no return site", e)
			}
		}
	}

	// Nodes are renumbered in breadth-first order from the entry, which makes
	// node identifiers independent of construction order.
	order := []*Node{}
	b.cfa.Graph().BFS(b.cfa.entry, func(n *Node) bool {
		order = append(order, n)
		return false
	})
	seen := map[*Node]bool{}
	for _, n := range order {
		seen[n] = true
	}
	for _, n := range b.cfa.nodes {
		if !seen[n] {
			order = append(order, n)
		}
	}
	for i, n := range order {
		n.id = i
	}
	b.cfa.nodes = order

	cfa := b.cfa
	b.cfa = nil
	return cfa, nil
}

// FunctionBuilder adds locations and edges to a function.
type FunctionBuilder struct {
	b      *Builder
	fun    *Function
	locals map[string]bool
}

func (fb *FunctionBuilder) Function() *Function {
	return fb.fun
}

func (fb *FunctionBuilder) Entry() *Node {
	return fb.fun.Entry
}

func (fb *FunctionBuilder) Exit() *Node {
	return fb.fun.Exit
}

// Node creates a fresh location in the function.
func (fb *FunctionBuilder) Node() *Node {
	return fb.b.newNode(fb.fun.Name, PlainNode)
}

// ErrorNode creates a fresh target location in the function.
func (fb *FunctionBuilder) ErrorNode() *Node {
	return fb.b.newNode(fb.fun.Name, ErrorNode)
}

// Loc resolves a variable name to a local of the function if one was
// declared with that name, and to a global otherwise.
func (fb *FunctionBuilder) Loc(name string) memloc.MemoryLocation {
	if fb.locals[name] {
		return memloc.Local(fb.fun.Name, name)
	}
	if !fb.b.globalSet[name] {
		fb.b.fail(errors.Errorf("%s: undeclared variable %s", fb.fun.Name, name))
	}
	return memloc.Global(name)
}

// Local declares a local variable without an initializing edge. It is used
// for variables that are first written by a call or a parallel assignment.
func (fb *FunctionBuilder) Local(name string) memloc.MemoryLocation {
	fb.locals[name] = true
	return memloc.Local(fb.fun.Name, name)
}

// Var creates an expression reading the named variable.
func (fb *FunctionBuilder) Var(name string) Expr {
	return Var{fb.Loc(name)}
}

func (fb *FunctionBuilder) addEdge(e *Edge) *Edge {
	if e.Pred.function != fb.fun.Name {
		fb.b.fail(errors.Errorf("edge %s leaves function %s", e, fb.fun.Name))
	}
	e.Pred.leaving = append(e.Pred.leaving, e)
	e.Succ.entering = append(e.Succ.entering, e)
	return e
}

// Blank adds a no-op edge.
func (fb *FunctionBuilder) Blank(from, to *Node) *Edge {
	return fb.addEdge(&Edge{Kind: BlankEdge, Pred: from, Succ: to})
}

// Declare adds a local declaration. A nil initializer leaves the variable
// undetermined.
func (fb *FunctionBuilder) Declare(from, to *Node, name string, init Expr) *Edge {
	fb.locals[name] = true
	l := memloc.Local(fb.fun.Name, name)
	return fb.addEdge(&Edge{Kind: DeclarationEdge, Pred: from, Succ: to, Lhs: &l, Expr: init})
}

// Assign adds an assignment to a declared variable.
func (fb *FunctionBuilder) Assign(from, to *Node, name string, rhs Expr) *Edge {
	l := fb.Loc(name)
	return fb.addEdge(&Edge{Kind: StatementEdge, Pred: from, Succ: to, Lhs: &l, Expr: rhs})
}

// Assume adds a branch condition.
func (fb *FunctionBuilder) Assume(from, to *Node, cond Expr, truth bool) *Edge {
	return fb.addEdge(&Edge{Kind: AssumeEdge, Pred: from, Succ: to, Expr: cond, Truth: truth})
}

// Branch adds both outcomes of a branch condition.
func (fb *FunctionBuilder) Branch(from *Node, cond Expr, then, els *Node) (*Edge, *Edge) {
	return fb.Assume(from, then, cond, true), fb.Assume(from, els, cond, false)
}

// Return adds a return statement leading to the exit of the function.
func (fb *FunctionBuilder) Return(from *Node, value Expr) *Edge {
	return fb.addEdge(&Edge{Kind: ReturnStatementEdge, Pred: from, Succ: fb.fun.Exit, Expr: value})
}

// Call adds a call of `callee` from `from`, returning to `returnSite`.
// If lhs is non-empty the return value is assigned to the named variable.
func (fb *FunctionBuilder) Call(from, returnSite *Node, callee *Function, args []Expr, lhs string) (*Edge, *Edge) {
	if len(args) != len(callee.Params) {
		fb.b.fail(errors.Errorf("call of %s with %d arguments, expected %d",
			callee.Name, len(args), len(callee.Params)))
	}

	call := &Edge{
		Kind:       FunctionCallEdge,
		Pred:       from,
		Succ:       callee.Entry,
		Callee:     callee,
		Args:       args,
		ReturnSite: returnSite,
	}
	from.leaving = append(from.leaving, call)
	callee.Entry.entering = append(callee.Entry.entering, call)

	ret := &Edge{
		Kind:       FunctionReturnEdge,
		Pred:       callee.Exit,
		Succ:       returnSite,
		Callee:     callee,
		ReturnSite: returnSite,
	}
	if lhs != "" {
		l := fb.Loc(lhs)
		ret.Lhs = &l
	}
	callee.Exit.leaving = append(callee.Exit.leaving, ret)
	returnSite.entering = append(returnSite.entering, ret)
	return call, ret
}

// Multi adds an edge executing the given edges in sequence.
// The given edges must not have been added to the function.
func (fb *FunctionBuilder) Multi(from, to *Node, edges ...*Edge) *Edge {
	for _, e := range edges {
		e.Pred, e.Succ = from, to
	}
	return fb.addEdge(&Edge{Kind: MultiEdge, Pred: from, Succ: to, Edges: edges})
}

// AssignEdge creates a detached assignment for use in Multi.
func (fb *FunctionBuilder) AssignEdge(name string, rhs Expr) *Edge {
	l := fb.Loc(name)
	return &Edge{Kind: StatementEdge, Lhs: &l, Expr: rhs}
}

// DeclareEdge creates a detached declaration for use in Multi.
func (fb *FunctionBuilder) DeclareEdge(name string, init Expr) *Edge {
	fb.locals[name] = true
	l := memloc.Local(fb.fun.Name, name)
	return &Edge{Kind: DeclarationEdge, Lhs: &l, Expr: init}
}

func (c *CFA) String() (str string) {
	for _, n := range c.nodes {
		for _, e := range n.leaving {
			str += fmt.Sprintf("%s\n", e)
		}
	}
	return
}
