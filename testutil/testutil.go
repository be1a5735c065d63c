package testutil

import (
	"bytes"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cs-au-dk/cegar/analysis/cfa"
	"github.com/cs-au-dk/cegar/analysis/frontend"
	"github.com/cs-au-dk/cegar/pkgutil"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
)

// LoadResult contains relevant information obtained after loading a Go program.
// It includes the SSA representation of the program and the control-flow
// automaton translated from its main function.
type LoadResult struct {
	// MainPkg is the package focused by the analysis.
	MainPkg *packages.Package
	// Prog is the SSA representation of the entire program.
	Prog *ssa.Program
	// CFA is the control-flow automaton of the main package.
	CFA *cfa.CFA
	// Stats are the statistics of the translation.
	Stats *frontend.Statistics
}

// LoadExampleAsPackages loads an example package to be used for a test.
func LoadExampleAsPackages(t *testing.T, pathToRoot string, pkg string) []*packages.Package {
	// Invoking the package tools is slow because it uses `go list` under the hood.
	// If the package doesn't have imports we can take a fast path by loading the
	// code manually and parsing it ourselves.
	srcDir := pathToRoot + "/examples/src/" + pkg
	if entries, err := os.ReadDir(srcDir); err == nil {
		if len(entries) == 1 {
			entry := entries[0]
			if !entry.IsDir() && entry.Name() == "main.go" {
				if content, err := os.ReadFile(srcDir + "/main.go"); err == nil &&
					// Assert no imports
					!bytes.Contains(content, []byte("import")) {
					return LoadSourceAsPackages(t, pkg, string(content))
				}
			}
		}
	}

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{GoPath: pathToRoot + "/examples"}, pkg)
	if err != nil {
		t.Fatal(err)
	}

	if len(pkgs) != 1 {
		t.Fatal("Example contains more than just a main package?")
	}
	return pkgs
}

func LoadExamplePackage(t *testing.T, pathToRoot string, pkg string) LoadResult {
	return LoadResultFromPackages(t, LoadExampleAsPackages(t, pathToRoot, pkg))
}

func LoadResultFromPackages(t *testing.T, pkgs []*packages.Package) (res LoadResult) {
	res.MainPkg = pkgs[0]
	res.Stats = &frontend.Statistics{}

	c, prog, err := frontend.FromPackages(pkgs, "main", res.Stats)
	if err != nil {
		t.Fatal(err)
	}
	res.Prog, res.CFA = prog, c
	return
}

func LoadSourceAsPackages(t *testing.T, importPath string, content string) []*packages.Package {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(
		fset,
		"main.go",
		content,
		parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	files := []*ast.File{file}

	// First argument is package path, the second is name.
	pkg := types.NewPackage(importPath, "main")
	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Instances:  make(map[*ast.Ident]types.Instance),
		Scopes:     make(map[ast.Node]*types.Scope),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
	}
	if err := types.NewChecker(
		&types.Config{Importer: importer.Default()},
		fset, pkg, info).Files(files); err != nil {
		t.Fatal(err)
	}

	// If the package does not have imports we can take a fast path.
	if len(pkg.Imports()) == 0 {
		return []*packages.Package{{
			ID:        "pkg-loaded-from-src",
			Name:      pkg.Name(),
			PkgPath:   pkg.Path(),
			Types:     pkg,
			Fset:      fset,
			Syntax:    files,
			TypesInfo: info,
		}}
	}

	// Otherwise we need to invoke the packages tool that can import code for
	// dependencies. The reason to not just do this for all packages is that
	// it's a lot slower than the above because it needs to invoke the go tool
	// in a subprocess.
	pkgs, err := pkgutil.LoadPackagesFromSource(content)
	if err != nil {
		t.Fatal(err)
	}
	return pkgs
}

func LoadPackageFromSource(t *testing.T, importPath string, content string) LoadResult {
	return LoadResultFromPackages(t, LoadSourceAsPackages(t, importPath, content))
}

// ListExamples lists the example packages below examples/src/<dir>. Every
// directory containing a main.go file is a package.
func ListExamples(t *testing.T, pathToRoot string, dir string, blacklist ...string) []string {
	root := filepath.Join(pathToRoot, "examples", "src")
	skip := make(map[string]bool, len(blacklist))
	for _, b := range blacklist {
		skip[b] = true
	}

	packages := []string{}
	err := filepath.WalkDir(filepath.Join(root, dir), func(path string, d os.DirEntry, e error) error {
		if e != nil {
			return e
		}
		if d.IsDir() || d.Name() != "main.go" {
			return nil
		}

		pkg, err := filepath.Rel(root, filepath.Dir(path))
		if err != nil {
			return err
		}
		if !skip[filepath.Base(pkg)] {
			packages = append(packages, filepath.ToSlash(pkg))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	sort.Strings(packages)
	return packages
}
