// Package frontend translates Go programs in SSA form to control-flow
// automata.
//
// Only integer and boolean values are modelled. Locals and parameters of
// such types become variables of their function, and package-level globals
// become global variables. Static calls to functions of the analyzed package
// or of other local packages become call and return edges. Calls to
// functions whose name starts with "nondet" produce arbitrary values, and
// `panic` leads to an error location. Every other value is havocked.
package frontend

import (
	"fmt"
	"go/constant"
	"go/token"
	"go/types"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cs-au-dk/cegar/analysis"
	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/stats"
	"github.com/cs-au-dk/cegar/pkgutil"
	"github.com/cs-au-dk/cegar/utils"
	"github.com/cs-au-dk/cegar/utils/graph"
	"github.com/cs-au-dk/cegar/utils/worklist"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// ErrNoEntry is reported when the entry function does not exist.
var ErrNoEntry = errors.New("entry function not found")

// NondetPrefix marks functions returning arbitrary values.
const NondetPrefix = "nondet"

type Statistics struct {
	Functions int
	Globals   int
	Edges     int
	Havocked  int
	Errors    int
	Loops     int
	Recursive int
	// ErrorComponents counts the components of the call graph from which an
	// error location can be reached.
	ErrorComponents int
}

func (s *Statistics) Name() string {
	return "CFA construction"
}

func (s *Statistics) Print(w io.Writer) {
	stats.Line(w, "Functions", s.Functions)
	stats.Line(w, "Global variables", s.Globals)
	stats.Line(w, "Translated instructions", s.Edges)
	stats.Line(w, "Havocked values", s.Havocked)
	stats.Line(w, "Error locations", s.Errors)
	stats.Line(w, "Loops", s.Loops)
	stats.Line(w, "Recursive components", s.Recursive)
	stats.Line(w, "Components reaching an error", s.ErrorComponents)
}

type translator struct {
	pkg     *ssa.Package
	local   map[*ssa.Package]bool
	b       *cfa.Builder
	funs    map[*ssa.Function]*cfa.FunctionBuilder
	globals map[*ssa.Global]string
	entry   *ssa.Function
	init    *ssa.Function
	stats   *Statistics
}

// Supported checks whether values of the type are modelled.
func Supported(typ types.Type) bool {
	b, ok := typ.Underlying().(*types.Basic)
	return ok && b.Info()&(types.IsInteger|types.IsBoolean) != 0
}

// Build translates the functions of the package reachable from `entry`.
// Package-level variables are initialized by the package initializer before
// the entry function runs.
func Build(pkg *ssa.Package, entry string, st *Statistics) (*cfa.CFA, error) {
	return build(pkg, nil, entry, st)
}

func build(pkg *ssa.Package, local map[*ssa.Package]bool, entry string, st *Statistics) (*cfa.CFA, error) {
	fn := pkg.Func(entry)
	if fn == nil || len(fn.Blocks) == 0 {
		return nil, errors.Wrapf(ErrNoEntry, "%s in package %s", entry, pkg.Pkg.Path())
	}
	if st == nil {
		st = &Statistics{}
	}

	t := &translator{
		pkg:     pkg,
		local:   local,
		b:       cfa.NewBuilder(),
		funs:    make(map[*ssa.Function]*cfa.FunctionBuilder),
		globals: make(map[*ssa.Global]string),
		entry:   fn,
		stats:   st,
	}

	names := make([]string, 0, len(pkg.Members))
	for name, m := range pkg.Members {
		if g, ok := m.(*ssa.Global); ok && Supported(deref(g.Type())) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		t.b.Global(name, cfa.Int(0))
		t.globals[pkg.Members[name].(*ssa.Global)] = name
	}
	t.stats.Globals = len(names)

	if init := pkg.Func("init"); len(names) > 0 && init != nil && len(init.Blocks) > 0 {
		t.init = init
	}

	pending := worklist.Empty[*ssa.Function]()
	t.function(fn, pending.Add)
	pending.Process(func(fn *ssa.Function, add func(*ssa.Function)) {
		t.body(fn, add)

		blocks := graph.FromBasicBlocks(fn)
		for _, comp := range blocks.SCC([]int{0}).Components {
			if cyclic(blocks, comp) {
				t.stats.Loops++
			}
		}
	})

	// Only calls between translated functions become edges of the automaton.
	cg := graph.FromCallGraph(static.CallGraph(pkg.Prog), false)
	calls := graph.OfHashable(func(f *ssa.Function) (res []*ssa.Function) {
		for _, g := range cg.Edges(f) {
			if _, ok := t.funs[g]; ok {
				res = append(res, g)
			}
		}
		return
	})
	scc := calls.SCC([]*ssa.Function{fn})

	// Recursion is rejected by the reachability analysis, so warn early.
	for _, comp := range scc.Components {
		if cyclic(calls, comp) {
			t.stats.Recursive++
			log.WithField("function", comp[0].String()).Warn("Recursive functions are not supported")
		}
	}

	failing := analysis.SCCAnalysis(scc, panics, func(a, b bool) bool { return a || b })
	for _, f := range failing {
		if f {
			t.stats.ErrorComponents++
		}
	}
	if !failing[scc.ComponentOf(fn)] && (t.init == nil || !panics(t.init)) {
		log.WithField("function", t.name(fn)).Info("No error location is reachable")
	}

	return t.b.Build(t.name(fn))
}

// panics checks whether a function panics directly.
func panics(fn *ssa.Function) bool {
	for _, blk := range fn.Blocks {
		for _, instr := range blk.Instrs {
			if _, ok := instr.(*ssa.Panic); ok {
				return true
			}
		}
	}
	return false
}

// cyclic checks whether a strongly connected component contains a cycle.
func cyclic[T comparable](g graph.Graph[T], comp []T) bool {
	if len(comp) > 1 {
		return true
	}
	for _, succ := range g.Edges(comp[0]) {
		if succ == comp[0] {
			return true
		}
	}
	return false
}

// FromPackages builds the SSA form of the loaded packages and translates
// the main package. Calls into other local packages are followed.
func FromPackages(pkgs []*packages.Package, entry string, st *Statistics) (*cfa.CFA, *ssa.Program, error) {
	if len(pkgs) == 0 {
		return nil, nil, errors.New("no packages to translate")
	}

	prog, spkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	var (
		main  *ssa.Package
		local map[*ssa.Package]bool
	)
	if mains := ssautil.MainPackages(prog.AllPackages()); len(mains) > 0 {
		main = pkgutil.GetMain(mains)
		var err error
		if local, err = pkgutil.LocalPackages(mains, prog.AllPackages()); err != nil {
			return nil, prog, err
		}
	}
	if main == nil {
		for _, p := range spkgs {
			if p != nil {
				main = p
				break
			}
		}
	}
	if main == nil {
		return nil, prog, errors.New("no package with SSA form")
	}

	c, err := build(main, local, entry, st)
	return c, prog, err
}

func deref(typ types.Type) types.Type {
	if p, ok := typ.Underlying().(*types.Pointer); ok {
		return p.Elem()
	}
	return typ
}

func (t *translator) name(fn *ssa.Function) string {
	return fn.RelString(t.pkg.Pkg)
}

// translatable checks whether calls of the function are followed.
func (t *translator) translatable(fn *ssa.Function) bool {
	return (fn.Pkg == t.pkg || t.local[fn.Pkg]) && len(fn.Blocks) > 0 && len(fn.FreeVars) == 0
}

// function returns the builder of a function, scheduling the translation of
// its body on first use.
func (t *translator) function(fn *ssa.Function, add func(*ssa.Function)) *cfa.FunctionBuilder {
	if fb, ok := t.funs[fn]; ok {
		return fb
	}

	params := make([]string, 0, len(fn.Params))
	for _, p := range fn.Params {
		params = append(params, p.Name())
	}
	fb := t.b.Function(t.name(fn), params...)
	t.funs[fn] = fb
	t.stats.Functions++
	add(fn)
	return fb
}

func (t *translator) body(fn *ssa.Function, add func(*ssa.Function)) {
	fb := t.funs[fn]
	utils.Opts().OnVerbose(func() {
		utils.PrintSSAFunWithPos(os.Stdout, fn.Prog.Fset, fn)
	})

	starts := make([]*cfa.Node, len(fn.Blocks))
	for i := range fn.Blocks {
		if i == 0 {
			starts[i] = fb.Entry()
		} else {
			starts[i] = fb.Node()
		}
	}

	if fn == t.entry && t.init != nil {
		n := fb.Node()
		fb.Call(starts[0], n, t.function(t.init, add).Function(), nil, "")
		starts[0] = n
	}

	for _, blk := range fn.Blocks {
		cur := starts[blk.Index]
		for _, instr := range blk.Instrs {
			cur = t.instruction(fb, fn, cur, instr, starts, add)
			if cur == nil {
				break
			}
		}
	}
}

func (t *translator) operand(fn *ssa.Function, v ssa.Value) cfa.Expr {
	if !Supported(v.Type()) {
		return cfa.Nondet{}
	}

	switch c := v.(type) {
	case *ssa.Const:
		if c.Value == nil {
			return cfa.Int(0)
		}
		switch c.Value.Kind() {
		case constant.Bool:
			return cfa.Bool(constant.BoolVal(c.Value))
		case constant.Int:
			if i, exact := constant.Int64Val(c.Value); exact {
				return cfa.Int(i)
			}
		}
		return cfa.Nondet{}
	case *ssa.Parameter, ssa.Instruction:
		return cfa.Local(t.name(fn), v.Name())
	}
	return cfa.Nondet{}
}

// instruction translates a single instruction starting at `cur` and returns
// the location after it, or nil if the instruction ends the block.
func (t *translator) instruction(
	fb *cfa.FunctionBuilder,
	fn *ssa.Function,
	cur *cfa.Node,
	instr ssa.Instruction,
	starts []*cfa.Node,
	add func(*ssa.Function),
) *cfa.Node {
	step := func(mk func(to *cfa.Node) *cfa.Edge) *cfa.Node {
		to := fb.Node()
		mk(to).Pos = instr.Pos()
		t.stats.Edges++
		return to
	}
	declare := func(name string, e cfa.Expr) *cfa.Node {
		return step(func(to *cfa.Node) *cfa.Edge {
			return fb.Declare(cur, to, name, e)
		})
	}
	havoc := func(v ssa.Value) *cfa.Node {
		if !Supported(v.Type()) {
			return cur
		}
		log.WithFields(log.Fields{
			"function": t.name(fn),
			"value":    utils.SSAValString(v),
			"instr":    fmt.Sprintf("%T", instr),
		}).Debug("Havocking unsupported value")
		t.stats.Havocked++
		return declare(v.Name(), nil)
	}

	blk := instr.Block()
	switch i := instr.(type) {
	case *ssa.Phi, *ssa.DebugRef:
		return cur

	case *ssa.BinOp:
		if !Supported(i.Type()) {
			return cur
		}
		return declare(i.Name(), cfa.Bin(i.Op, t.operand(fn, i.X), t.operand(fn, i.Y)))

	case *ssa.UnOp:
		switch i.Op {
		case token.SUB, token.NOT, token.XOR:
			if Supported(i.Type()) {
				return declare(i.Name(), cfa.Unary{Op: i.Op, X: t.operand(fn, i.X)})
			}
		case token.MUL:
			if g, ok := i.X.(*ssa.Global); ok {
				if name, ok := t.globals[g]; ok {
					return declare(i.Name(), cfa.Global(name))
				}
			}
		}
		return havoc(i)

	case *ssa.Convert:
		if Supported(i.X.Type()) {
			return declare(i.Name(), t.operand(fn, i.X))
		}
		return havoc(i)

	case *ssa.ChangeType:
		if Supported(i.X.Type()) {
			return declare(i.Name(), t.operand(fn, i.X))
		}
		return havoc(i)

	case *ssa.Store:
		if g, ok := i.Addr.(*ssa.Global); ok {
			if name, ok := t.globals[g]; ok {
				return step(func(to *cfa.Node) *cfa.Edge {
					return fb.Assign(cur, to, name, t.operand(fn, i.Val))
				})
			}
		}
		return cur

	case *ssa.Call:
		return t.call(fb, fn, cur, i, add, declare, havoc)

	case *ssa.If:
		cond := t.operand(fn, i.Cond)
		for k, truth := range []bool{true, false} {
			succ := blk.Succs[k]
			phis := t.phis(fb, fn, blk, succ)
			if len(phis) == 0 {
				fb.Assume(cur, starts[succ.Index], cond, truth).Pos = i.Pos()
				continue
			}
			mid := fb.Node()
			fb.Assume(cur, mid, cond, truth).Pos = i.Pos()
			fb.Multi(mid, starts[succ.Index], phis...)
		}
		t.stats.Edges++
		return nil

	case *ssa.Jump:
		succ := blk.Succs[0]
		if phis := t.phis(fb, fn, blk, succ); len(phis) > 0 {
			fb.Multi(cur, starts[succ.Index], phis...).Pos = i.Pos()
		} else {
			fb.Blank(cur, starts[succ.Index]).Pos = i.Pos()
		}
		return nil

	case *ssa.Return:
		var res cfa.Expr
		if len(i.Results) == 1 && Supported(i.Results[0].Type()) {
			res = t.operand(fn, i.Results[0])
		}
		fb.Return(cur, res).Pos = i.Pos()
		t.stats.Edges++
		return nil

	case *ssa.Panic:
		fb.Blank(cur, fb.ErrorNode()).Pos = i.Pos()
		t.stats.Errors++
		return nil

	case ssa.Value:
		return havoc(i)
	}
	return cur
}

func (t *translator) call(
	fb *cfa.FunctionBuilder,
	fn *ssa.Function,
	cur *cfa.Node,
	i *ssa.Call,
	add func(*ssa.Function),
	declare func(string, cfa.Expr) *cfa.Node,
	havoc func(ssa.Value) *cfa.Node,
) *cfa.Node {
	common := i.Common()
	callee := common.StaticCallee()

	switch {
	case callee != nil && strings.HasPrefix(callee.Name(), NondetPrefix):
		if !Supported(i.Type()) {
			return cur
		}
		return declare(i.Name(), cfa.Nondet{})

	case callee != nil && t.translatable(callee):
		args := make([]cfa.Expr, 0, len(common.Args))
		for _, a := range common.Args {
			args = append(args, t.operand(fn, a))
		}

		lhs := ""
		if Supported(i.Type()) {
			fb.Local(i.Name())
			lhs = i.Name()
		}

		ret := fb.Node()
		c, r := fb.Call(cur, ret, t.function(callee, add).Function(), args, lhs)
		c.Pos, r.Pos = i.Pos(), i.Pos()
		t.stats.Edges++
		return ret
	}
	return havoc(i)
}

// phis creates the parallel assignment of the φ-nodes of `succ` along the
// edge from `pred`. Temporaries are introduced when a φ-node reads another
// φ-node of the same block.
func (t *translator) phis(fb *cfa.FunctionBuilder, fn *ssa.Function, pred, succ *ssa.BasicBlock) []*cfa.Edge {
	idx := -1
	for k, p := range succ.Preds {
		if p == pred {
			idx = k
			break
		}
	}
	if idx < 0 {
		return nil
	}

	var phis []*ssa.Phi
	swap := false
	for _, instr := range succ.Instrs {
		phi, ok := instr.(*ssa.Phi)
		if !ok {
			break
		}
		if !Supported(phi.Type()) {
			continue
		}
		phis = append(phis, phi)
		if op, ok := phi.Edges[idx].(*ssa.Phi); ok && op.Block() == succ {
			swap = true
		}
	}

	var edges []*cfa.Edge
	if !swap {
		for _, phi := range phis {
			edges = append(edges, fb.DeclareEdge(phi.Name(), t.operand(fn, phi.Edges[idx])))
		}
		return edges
	}

	for _, phi := range phis {
		edges = append(edges, fb.DeclareEdge(phi.Name()+"'", t.operand(fn, phi.Edges[idx])))
	}
	for _, phi := range phis {
		edges = append(edges, fb.DeclareEdge(phi.Name(), cfa.Local(t.name(fn), phi.Name()+"'")))
	}
	return edges
}
