package testutil

import (
	"fmt"
	"go/token"
	"testing"

	"github.com/cs-au-dk/cegar/analysis/cfa"

	"golang.org/x/tools/go/expect"
)

type NotesManager struct {
	anns  map[*expect.Note]Annotation
	notes []*expect.Note

	// Book-keeping of notes on the same line
	related map[*expect.Note]map[*expect.Note]struct{}
	loadRes LoadResult
}

func MakeNotesManager(
	t *testing.T,
	loadRes LoadResult) (n NotesManager) {
	n.loadRes = loadRes
	n.anns = make(map[*expect.Note]Annotation)

	for _, file := range loadRes.MainPkg.Syntax {
		notes, err := expect.ExtractGo(loadRes.Prog.Fset, file)
		if err != nil {
			t.Fatal(err)
		}

		n.notes = append(n.notes, notes...)
	}

	n.related = make(map[*expect.Note]map[*expect.Note]struct{})
	for _, note1 := range n.notes {
		if _, found := n.related[note1]; !found {
			n.related[note1] = make(map[*expect.Note]struct{})
		}

		npos1 := n.position(note1)

		for _, note2 := range n.notes {
			if note1 == note2 {
				continue
			}

			npos2 := n.position(note2)

			if npos1.Filename == npos2.Filename &&
				npos1.Line == npos2.Line {
				n.related[note1][note2] = struct{}{}
			}
		}
	}

	for _, note := range n.notes {
		ann, err := n.CreateAnnotation(note)
		if err != nil {
			t.Fatal(err)
		}
		n.anns[note] = ann
	}
	return
}

func (n NotesManager) position(note *expect.Note) token.Position {
	return n.loadRes.Prog.Fset.Position(note.Pos)
}

func (n NotesManager) ForEachNote(
	do func(i int, note *expect.Note),
) {
	for i, note := range n.notes {
		do(i, note)
	}
}

func (n NotesManager) ForEachAnnotation(do func(a Annotation)) {
	for _, note := range n.notes {
		do(n.anns[note])
	}
}

func (n NotesManager) AnnotationOf(note *expect.Note) Annotation {
	return n.anns[note]
}

func (n NotesManager) String() (str string) {
	str = "Note manager found the following notes:\n\n"
	for _, note := range n.notes {
		pos := n.position(note)

		str += fmt.Sprintf("%s(%v) at position: %s, with the following CFA edges:\n", note.Name, note.Args, pos)
		for _, e := range n.EdgesForNote(note) {
			str += "- " + e.String() + "\n"
		}
		str += "Annotation:\n" + n.anns[note].String() + "\n"
	}

	return
}

func (n NotesManager) LoadResult() LoadResult {
	return n.loadRes
}

// EdgesForNote finds the CFA edges translated from the line of the note.
func (n NotesManager) EdgesForNote(note *expect.Note) (res []*cfa.Edge) {
	fset := n.loadRes.Prog.Fset
	npos := fset.Position(note.Pos)

	for _, e := range n.loadRes.CFA.Edges() {
		if !e.Pos.IsValid() {
			continue
		}
		pos := fset.Position(e.Pos)
		if pos.Filename == npos.Filename && pos.Line == npos.Line {
			res = append(res, e)
		}
	}
	return
}

func (n NotesManager) Notes() []*expect.Note {
	return n.notes
}

func (n NotesManager) Annotations() map[*expect.Note]Annotation {
	return n.anns
}

func (n NotesManager) FindNote(find func(*expect.Note) bool) (*expect.Note, bool) {
	for _, note := range n.notes {
		if find(note) {
			return note, true
		}
	}
	return nil, false
}

func (n NotesManager) FindAllAnnotations(pred func(Annotation) bool) annList {
	res := []Annotation{}

	for _, note := range n.notes {
		if ann := n.anns[note]; pred(ann) {
			res = append(res, ann)
		}
	}

	return res
}

// NoteForEdge finds a note on the line the edge was translated from.
func (n NotesManager) NoteForEdge(e *cfa.Edge) (*expect.Note, bool) {
	if !e.Pos.IsValid() {
		return nil, false
	}
	fset := n.loadRes.Prog.Fset
	pos := fset.Position(e.Pos)

	return n.FindNote(func(note *expect.Note) bool {
		npos := fset.Position(note.Pos)
		return pos.Filename == npos.Filename && pos.Line == npos.Line
	})
}

// Verdict returns the expected verdict of the program.
func (n NotesManager) Verdict() (AnnVerdict, bool) {
	ann, found := n.FindAllAnnotations(func(a Annotation) bool {
		_, ok := a.(AnnVerdict)
		return ok
	}).Find(func(Annotation) bool { return true })
	if !found {
		return AnnVerdict{}, false
	}
	return ann.(AnnVerdict), true
}

// Reachable returns the annotated error locations.
func (n NotesManager) Reachable() (res []AnnReachable) {
	for _, ann := range n.FindAllAnnotations(func(a Annotation) bool {
		_, ok := a.(AnnReachable)
		return ok
	}) {
		res = append(res, ann.(AnnReachable))
	}
	return
}
