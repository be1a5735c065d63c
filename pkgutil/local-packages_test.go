package pkgutil

import (
	"testing"

	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

func TestLocalPackages(t *testing.T) {
	pkgs, err := LoadPackages(LoadConfig{
		GoPath:     "../examples",
		ModulePath: "../examples/src/pkg-with-module",
	}, "unrelated-name/...")
	if err != nil {
		t.Fatal(err)
	}

	prog, _ := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()
	mains := ssautil.MainPackages(prog.AllPackages())
	if len(mains) != 1 {
		t.Fatalf("Expected a single main package, got %v", mains)
	}

	local, err := LocalPackages(mains, prog.AllPackages())
	if err != nil {
		t.Fatal(err)
	}
	if len(local) != 2 {
		t.Errorf("Expected the main and counter packages to be local, got %v", local)
	}
	for p := range local {
		if CheckPkgInGoroot(p.Pkg) {
			t.Errorf("%v is in GOROOT", p)
		}
	}

	if _, err := LocalPackages(nil, prog.AllPackages()); err == nil {
		t.Error("Expected an error without main packages")
	}
}
