package utils

import (
	"fmt"
	"go/token"
	"io"

	"github.com/fatih/color"
	"golang.org/x/tools/go/ssa"
)

var blkColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
}
var nameColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiGreen).SprintFunc())(is...)
}
var insColor = func(is ...interface{}) string {
	return CanColorize(color.New(color.FgHiWhite, color.Faint).SprintFunc())(is...)
}

// SSAValString renders a value together with the block defining it.
func SSAValString(v ssa.Value) string {
	if v == nil {
		return ""
	}
	name := v.Name()
	if i, ok := v.(ssa.Instruction); ok {
		blk := fmt.Sprintf("%s:%d", i.Parent().Name(), i.Block().Index)
		return blkColor(blk) + ": " + nameColor(name) + " = " + insColor(i.String())
	}
	return insColor(v.String())
}

// PrintSSAFunWithPos writes the instructions of a function block by block,
// annotated with their source positions.
func PrintSSAFunWithPos(w io.Writer, fset *token.FileSet, fun *ssa.Function) {
	fmt.Fprintln(w, fun.Name())
	for bi, b := range fun.Blocks {
		fmt.Fprintln(w, bi, ":")
		for _, i := range b.Instrs {
			switch v := i.(type) {
			case *ssa.DebugRef:
				// skip
			case ssa.Value:
				fmt.Fprintln(w, " ", nameColor(v.Name()), "=", v, "at position:", fset.Position(v.Pos()))
			default:
				fmt.Fprintln(w, " ", i, "at position:", fset.Position(i.Pos()))
			}
		}
	}
}
