package testutil

import (
	"github.com/cs-au-dk/cegar/analysis/cfa"

	"golang.org/x/tools/go/expect"
)

type Annotation interface {
	// Returns related annotations (created from notes on the same line).
	Related() annList
	String() string

	Note() *expect.Note
	// Edges translated from the annotated line.
	Edges() []*cfa.Edge
	Manager() NotesManager
}

// AnnVerdict states the expected verdict of the program.
type AnnVerdict struct {
	basicAnnotation
	verdict string
}

func (a AnnVerdict) Verdict() string {
	return a.verdict
}

func (a AnnVerdict) String() string {
	npos := a.mgr.position(a.note)
	return At(Ann.Verdict(a.verdict) + " at " + npos.String())
}

// AnnReachable marks the error location a counterexample must end at.
type AnnReachable struct {
	basicAnnotation
}

func (a AnnReachable) String() string {
	npos := a.mgr.position(a.note)
	return At(id_REACHABLE + " at " + npos.String())
}

// Matches checks whether the edge leads to an error location on the
// annotated line.
func (a AnnReachable) Matches(e *cfa.Edge) bool {
	if !e.Succ.IsError() {
		return false
	}
	for _, e2 := range a.Edges() {
		if e == e2 {
			return true
		}
	}
	return false
}

type AnnFalsePositive struct {
	basicAnnotation
}

func (a AnnFalsePositive) String() string {
	npos := a.mgr.position(a.note)
	return At(id_FALSE_POSITIVE + " at " + npos.String())
}

type AnnFalseNegative struct {
	basicAnnotation
}

func (a AnnFalseNegative) String() string {
	npos := a.mgr.position(a.note)
	return At(id_FALSE_NEGATIVE + " at " + npos.String())
}
