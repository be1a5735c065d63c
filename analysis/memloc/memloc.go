package memloc

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/cegar/utils"

	"github.com/fatih/color"
)

// colorize is used for pretty-printing.
var colorize = struct {
	Scope func(...interface{}) string
	Name  func(...interface{}) string
}{
	Scope: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiBlue).SprintFunc())(is...)
	},
	Name: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiGreen).SprintFunc())(is...)
	},
}

// MemoryLocation identifies a variable. Variables declared inside a function
// are scoped to the stack frame of that function, while global variables
// have an empty function scope.
type MemoryLocation struct {
	Function string
	Name     string
}

// Global creates the memory location of a global variable.
func Global(name string) MemoryLocation {
	return MemoryLocation{Name: name}
}

// Local creates the memory location of a variable on the stack frame of the
// given function.
func Local(function, name string) MemoryLocation {
	return MemoryLocation{Function: function, Name: name}
}

// Parse is the inverse of MemoryLocation.Identifier.
func Parse(identifier string) MemoryLocation {
	if i := strings.Index(identifier, "::"); i >= 0 {
		return Local(identifier[:i], identifier[i+2:])
	}
	return Global(identifier)
}

func (l MemoryLocation) IsGlobal() bool {
	return l.Function == ""
}

// IsOnFunctionStack checks whether the location belongs to the stack frame of
// the given function.
func (l MemoryLocation) IsOnFunctionStack(function string) bool {
	return !l.IsGlobal() && l.Function == function
}

func (l MemoryLocation) Hash() uint32 {
	return utils.HashCombine(utils.HashString(l.Function), utils.HashString(l.Name))
}

func (l MemoryLocation) Equal(o MemoryLocation) bool {
	return l == o
}

// Compare orders memory locations by scope and then by name.
// Globals come first.
func (l MemoryLocation) Compare(o MemoryLocation) int {
	if c := strings.Compare(l.Function, o.Function); c != 0 {
		return c
	}
	return strings.Compare(l.Name, o.Name)
}

// Identifier returns an uncolored, parseable name for the location.
func (l MemoryLocation) Identifier() string {
	if l.IsGlobal() {
		return l.Name
	}
	return l.Function + "::" + l.Name
}

func (l MemoryLocation) String() string {
	if l.IsGlobal() {
		return colorize.Name(l.Name)
	}
	return fmt.Sprintf("%s::%s", colorize.Scope(l.Function), colorize.Name(l.Name))
}

// Hasher is the hasher used for memory locations as keys of immutable maps.
var Hasher = utils.HashableHasher[MemoryLocation]()
