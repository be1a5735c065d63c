package pkgutil

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/tools/go/ssa"
)

func pkgQualifiedPath(pkg *ssa.Package) []string {
	path := strings.Split(strings.TrimSuffix(pkg.Pkg.Path(), ".test"), "/")

	if path[0] == "vendor" {
		path = path[1:]
	}

	return path
}

// LocalPackages gathers the packages sharing the first three path
// components with the main package. Packages in GOROOT are never local.
func LocalPackages(mains []*ssa.Package, pkgs []*ssa.Package) (map[*ssa.Package]bool, error) {
	if len(mains) == 0 {
		return nil, errors.New("gather local packages error: no main packages found")
	}

	local := make(map[*ssa.Package]bool)
	mp := GetMain(mains)
	if mp == nil {
		// If there is no non-test main package, just pick one of the test
		// packages.
		mp = mains[0]
	}

	mainpath := pkgQualifiedPath(mp)

	for _, p := range pkgs {
		if p.Pkg == nil || (p != mp && CheckPkgInGoroot(p.Pkg)) {
			continue
		}
		pkgpath := pkgQualifiedPath(p)
		isLocal := true
		for i := 0; isLocal && i < 3 && i < len(mainpath) && i < len(pkgpath); i++ {
			isLocal = isLocal && mainpath[i] == pkgpath[i]
		}
		if isLocal {
			local[p] = true
		}
	}

	opts.OnVerbose(func() {
		fmt.Println("Main packages:")
		for _, p := range mains {
			fmt.Println(p.Pkg.Path())
		}

		fmt.Println("Local packages:")
		for p := range local {
			fmt.Println(p)
		}
	})

	return local, nil
}
