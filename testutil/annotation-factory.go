package testutil

import (
	"fmt"
	"strings"

	"golang.org/x/tools/go/expect"
)

var (
	id_VERDICT        = "verdict"
	id_REACHABLE      = "reachable"
	id_FALSE_POSITIVE = "fp"
	id_FALSE_NEGATIVE = "fn"
)

// Convert expect.Identifier to string.
func idToStr(x interface{}) string {
	return string(x.(expect.Identifier))
}

type annFactory struct{}

// Factory for creating annotation strings. Interpolate
// results with Go source code. Wrap multiple factory calls
// in the At function to concatenate multiple annotations
// on the same line and prefix with "//@ "
var Ann = annFactory{}

// Create a verdict annotation. It specifies the verdict the analysis is
// expected to reach for the program. One of "safe", "unsafe" or "unknown".
func (annFactory) Verdict(v string) string {
	return id_VERDICT + "(" + v + ")"
}

// Create a reachability annotation. It specifies that the counterexample
// of an unsafe program ends at the error location of the annotated line.
func (annFactory) Reachable() string {
	return id_REACHABLE
}

// False negative tag.
func (annFactory) FalseNegative() string {
	return id_FALSE_NEGATIVE
}

// False positive tag.
func (annFactory) FalsePositive() string {
	return id_FALSE_POSITIVE
}

func At(anns ...string) string {
	ann := "//@ " + strings.Join(anns, ", ")
	return ann
}

func (mgr NotesManager) CreateAnnotation(note *expect.Note) (Annotation, error) {
	basic := basicAnnotation{note, mgr}

	switch note.Name {
	case id_VERDICT:
		if len(note.Args) != 1 {
			return nil, fmt.Errorf("%s: expected a single verdict, got %v", basic, note.Args)
		}
		v, ok := note.Args[0].(expect.Identifier)
		if !ok {
			return nil, fmt.Errorf("%s: verdict is not an identifier", basic)
		}
		switch verdict := idToStr(v); verdict {
		case "safe", "unsafe", "unknown":
			return AnnVerdict{basic, verdict}, nil
		default:
			return nil, fmt.Errorf("%s: unknown verdict %s", basic, verdict)
		}
	case id_REACHABLE:
		return AnnReachable{basic}, nil
	case id_FALSE_POSITIVE:
		return AnnFalsePositive{basic}, nil
	case id_FALSE_NEGATIVE:
		return AnnFalseNegative{basic}, nil
	}
	return nil, fmt.Errorf("%s: unknown annotation", basic)
}
