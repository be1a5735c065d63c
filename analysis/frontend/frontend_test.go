package frontend

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"sort"
	"testing"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/memloc"
	"github.com/cs-au-dk/cegar/pkgutil"

	"github.com/pkg/errors"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

func load(t *testing.T, src string) *ssa.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "main.go", src, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	pkg, _, err := ssautil.BuildPackage(
		&types.Config{Importer: importer.Default()},
		fset, types.NewPackage("main", "main"), []*ast.File{f},
		ssa.SanityCheckFunctions,
	)
	if err != nil {
		t.Fatal(err)
	}
	return pkg
}

func translate(t *testing.T, src string) (*cfa.CFA, *Statistics) {
	t.Helper()
	st := &Statistics{}
	c, err := Build(load(t, src), "main", st)
	if err != nil {
		t.Fatal(err)
	}
	return c, st
}

func functions(c *cfa.CFA) (res []string) {
	for _, f := range c.Functions() {
		res = append(res, f.Name)
	}
	sort.Strings(res)
	return
}

// edges collects the edges satisfying the predicate, including the inner
// edges of multi edges.
func edges(c *cfa.CFA, pred func(*cfa.Edge) bool) (res []*cfa.Edge) {
	var visit func(e *cfa.Edge)
	visit = func(e *cfa.Edge) {
		if pred(e) {
			res = append(res, e)
		}
		for _, inner := range e.Edges {
			visit(inner)
		}
	}
	for _, e := range c.Edges() {
		visit(e)
	}
	return
}

func TestBranch(t *testing.T) {
	c, st := translate(t, `package main

func main() {
	x := 0
	if x == 1 {
		panic("unreachable")
	}
}`)

	if len(c.ErrorNodes()) != 1 || st.Errors != 1 {
		t.Errorf("Expected a single error location, got %v", c.ErrorNodes())
	}
	if fs := functions(c); len(fs) != 1 || fs[0] != "main" {
		t.Errorf("Expected only main, got %v", fs)
	}
	if len(c.Globals()) != 0 {
		t.Errorf("Unexpected globals %v", c.Globals())
	}

	assumes := edges(c, (*cfa.Edge).IsAssume)
	if len(assumes) != 2 {
		t.Fatalf("Expected both outcomes of the branch, got %v", assumes)
	}
	for _, e := range assumes {
		if !e.Pos.IsValid() {
			t.Errorf("%v has no position", e)
		}
	}
}

func TestGlobals(t *testing.T) {
	c, st := translate(t, `package main

var g = 5

func set() {
	g = 7
}

func main() {
	set()
	if g != 7 {
		panic(g)
	}
}`)

	found := false
	for _, l := range c.Globals() {
		found = found || l == memloc.Global("g")
	}
	if !found {
		t.Errorf("Expected global g, got %v", c.Globals())
	}

	fs := functions(c)
	for _, name := range []string{"init", "main", "set"} {
		i := sort.SearchStrings(fs, name)
		if i == len(fs) || fs[i] != name {
			t.Errorf("Missing function %s in %v", name, fs)
		}
	}

	writes := edges(c, func(e *cfa.Edge) bool {
		return e.Kind == cfa.StatementEdge && e.Lhs != nil && *e.Lhs == memloc.Global("g")
	})
	// One write by the package initializer and one by set.
	if len(writes) != 2 {
		t.Errorf("Expected two writes of g, got %v", writes)
	}

	calls := edges(c, func(e *cfa.Edge) bool { return e.Kind == cfa.FunctionCallEdge })
	if len(calls) != 2 {
		t.Errorf("Expected calls of init and set, got %v", calls)
	}
	if st.ErrorComponents != 1 {
		t.Errorf("Expected only main to reach an error, got %d", st.ErrorComponents)
	}
}

func TestLoop(t *testing.T) {
	c, st := translate(t, `package main

func main() {
	i := 0
	for i < 3 {
		i++
	}
	if i != 3 {
		panic(i)
	}
}`)

	multis := edges(c, func(e *cfa.Edge) bool { return e.Kind == cfa.MultiEdge })
	if len(multis) == 0 {
		t.Fatal("Expected the loop variable to be assigned on incoming edges")
	}
	for _, e := range multis {
		if e.AssignedVariables().Empty() {
			t.Errorf("%v assigns nothing", e)
		}
	}
	cyclic := false
	for _, comp := range c.Graph().SCC([]*cfa.Node{c.Entry()}).Components {
		cyclic = cyclic || len(comp) > 1
	}
	if !cyclic || st.Loops != 1 {
		t.Errorf("Expected a single loop, got %d", st.Loops)
	}
}

func TestRecursion(t *testing.T) {
	_, st := translate(t, `package main

func even(n int) bool {
	if n == 0 {
		return true
	}
	return odd(n - 1)
}

func odd(n int) bool {
	if n == 0 {
		return false
	}
	return even(n - 1)
}

func main() {
	if !even(4) {
		panic(0)
	}
}`)

	if st.Recursive != 1 {
		t.Errorf("Expected one recursive component, got %d", st.Recursive)
	}
	// main panics, and the recursive component does not.
	if st.ErrorComponents != 1 {
		t.Errorf("Expected one component reaching an error, got %d", st.ErrorComponents)
	}
}

func TestSwappingPhis(t *testing.T) {
	c, _ := translate(t, `package main

func nondet() bool { return false }

func main() {
	a, b := 1, 2
	for nondet() {
		a, b = b, a
	}
	if a+b != 3 {
		panic(0)
	}
}`)

	for _, e := range edges(c, func(e *cfa.Edge) bool { return e.Kind == cfa.MultiEdge }) {
		if len(e.Edges) == 4 {
			return
		}
	}
	t.Error("Expected a parallel assignment through temporaries")
}

func TestNondet(t *testing.T) {
	c, _ := translate(t, `package main

func nondet() int { return 0 }

func main() {
	x := nondet()
	if x == 2 {
		panic(x)
	}
}`)

	if fs := functions(c); len(fs) != 1 {
		t.Errorf("Nondeterministic functions should not be translated, got %v", fs)
	}
	if len(edges(c, func(e *cfa.Edge) bool { _, ok := e.Expr.(cfa.Nondet); return ok })) != 1 {
		t.Error("Expected a nondeterministic declaration")
	}
}

func TestCallWithResult(t *testing.T) {
	c, _ := translate(t, `package main

func inc(x int) int {
	return x + 1
}

func main() {
	if inc(1) != 2 {
		panic(0)
	}
}`)

	rets := edges(c, func(e *cfa.Edge) bool { return e.Kind == cfa.FunctionReturnEdge })
	if len(rets) != 1 || rets[0].Lhs == nil {
		t.Fatalf("Expected a return edge with result, got %v", rets)
	}
	inc, ok := c.Function("inc")
	if !ok || len(inc.Params) != 1 || inc.Params[0] != memloc.Local("inc", "x") {
		t.Errorf("Unexpected callee %v", inc)
	}
	if len(edges(c, func(e *cfa.Edge) bool { return e.Kind == cfa.ReturnStatementEdge && e.Expr != nil })) != 1 {
		t.Error("Expected inc to return a value")
	}
}

func TestUnsupported(t *testing.T) {
	c, st := translate(t, `package main

func main() {
	s := []int{1, 2}
	if len(s) == 3 {
		panic(0)
	}
}`)

	if st.Havocked == 0 {
		t.Error("Expected havocked values")
	}
	if len(edges(c, func(e *cfa.Edge) bool { return e.Kind == cfa.DeclarationEdge && e.Expr == nil })) == 0 {
		t.Error("Expected declarations without initializer")
	}
}

func TestMissingEntry(t *testing.T) {
	pkg := load(t, "package main\n\nfunc main() {}\n")
	if _, err := Build(pkg, "verify", nil); errors.Cause(err) != ErrNoEntry {
		t.Errorf("Expected %v, got %v", ErrNoEntry, err)
	}
}

func TestSupported(t *testing.T) {
	for _, test := range []struct {
		typ types.Type
		exp bool
	}{
		{types.Typ[types.Int], true},
		{types.Typ[types.Uint8], true},
		{types.Typ[types.Bool], true},
		{types.Typ[types.String], false},
		{types.Typ[types.Float64], false},
		{types.NewPointer(types.Typ[types.Int]), false},
	} {
		if got := Supported(test.typ); got != test.exp {
			t.Errorf("Supported(%v) = %v, expected %v", test.typ, got, test.exp)
		}
	}
}

func TestFromPackages(t *testing.T) {
	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{
		GoPath:     "../../examples",
		ModulePath: "../../examples/src/pkg-with-module",
	}, "unrelated-name/...")
	if err != nil {
		t.Fatal(err)
	}

	st := &Statistics{}
	c, prog, err := FromPackages(pkgs, "main", st)
	if err != nil {
		t.Fatal(err)
	}
	if prog == nil {
		t.Fatal("Expected an SSA program")
	}
	if _, ok := c.Function("unrelated-name/counter.Count"); !ok {
		t.Errorf("Calls into local packages should be translated, got %v", functions(c))
	}
	if st.Loops != 1 {
		t.Errorf("Expected the loop of Count, got %d", st.Loops)
	}
}
