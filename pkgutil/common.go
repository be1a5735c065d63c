package pkgutil

import (
	"go/types"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/cs-au-dk/cegar/utils"

	"golang.org/x/tools/go/ssa"
)

// opts is a shorthand for the CLI option API.
var opts = utils.Opts()

// CheckPkgInGoroot checks whether a package is declared in GOROOT.
func CheckPkgInGoroot(pkg *types.Package) bool {
	path := filepath.Join(runtime.GOROOT(), "src", pkg.Path())
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return true
	}
	return false
}

// GetMain determines what is the main package as follows:
// 1. Take the package with the most members
// 2. Skip the package suffixed with .test
func GetMain(mains []*ssa.Package) (main *ssa.Package) {
	for _, mp := range mains {
		if strings.HasSuffix(mp.String(), ".test") {
			continue
		}
		if main == nil || len(main.Members) < len(mp.Members) {
			main = mp
		}
	}
	return
}
