package testutil

import (
	"fmt"
	"go/ast"
	"sort"
	"testing"

	"golang.org/x/tools/go/expect"
)

// Shape annotations are placed on the line of a function declaration:
//
//	func f(x int) int { //@ loops(1), breaks(1)
//
// Each names a node kind and the number of such nodes expected in the
// structured body of the function.
const (
	ShapeLoops     = "loops"
	ShapeBreaks    = "breaks"
	ShapeContinues = "continues"
	ShapeIfs       = "ifs"
	ShapeSwitches  = "switches"
	ShapeReturns   = "returns"
	ShapeAborts    = "aborts"
)

var shapeNames = map[string]bool{
	ShapeLoops: true, ShapeBreaks: true, ShapeContinues: true, ShapeIfs: true,
	ShapeSwitches: true, ShapeReturns: true, ShapeAborts: true,
}

// NotesManager collects the shape annotations of a loaded package, grouped by
// the function declaration they are attached to.
type NotesManager struct {
	notes   []*expect.Note
	byFunc  map[string]map[string]int
	loadRes LoadResult
}

func MakeNotesManager(t *testing.T, loadRes LoadResult) (n NotesManager) {
	t.Helper()
	n.loadRes = loadRes
	n.byFunc = make(map[string]map[string]int)

	fset := loadRes.MainPkg.Fset
	for _, file := range loadRes.MainPkg.Syntax {
		notes, err := expect.ExtractGo(fset, file)
		if err != nil {
			t.Fatal(err)
		}

		for _, note := range notes {
			fun := enclosingFunc(file, note)
			if fun == "" {
				t.Fatalf("%s: annotation %s is not attached to a function", fset.Position(note.Pos), note.Name)
			}
			if !shapeNames[note.Name] {
				t.Fatalf("%s: unknown annotation %s", fset.Position(note.Pos), note.Name)
			}
			if len(note.Args) != 1 {
				t.Fatalf("%s: %s expects exactly one argument", fset.Position(note.Pos), note.Name)
			}
			count, ok := note.Args[0].(int64)
			if !ok {
				t.Fatalf("%s: %s expects an integer, got %v", fset.Position(note.Pos), note.Name, note.Args[0])
			}

			if n.byFunc[fun] == nil {
				n.byFunc[fun] = make(map[string]int)
			}
			n.byFunc[fun][note.Name] = int(count)
			n.notes = append(n.notes, note)
		}
	}
	return
}

// enclosingFunc is the name of the declaration whose first line holds note.
func enclosingFunc(file *ast.File, note *expect.Note) string {
	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}
		if fd.Pos() <= note.Pos && note.Pos <= fd.Body.End() {
			return fd.Name.Name
		}
	}
	return ""
}

// Functions lists the annotated functions in name order.
func (n NotesManager) Functions() []string {
	fs := make([]string, 0, len(n.byFunc))
	for f := range n.byFunc {
		fs = append(fs, f)
	}
	sort.Strings(fs)
	return fs
}

// Expected returns the annotated counts for fun.
func (n NotesManager) Expected(fun string) map[string]int {
	return n.byFunc[fun]
}

func (n NotesManager) LoadResult() LoadResult {
	return n.loadRes
}

func (n NotesManager) String() (str string) {
	str = "Note manager found the following notes:\n\n"
	fset := n.loadRes.MainPkg.Fset
	for _, note := range n.notes {
		str += fmt.Sprintf("%s(%v) at position: %s\n", note.Name, note.Args, fset.Position(note.Pos))
	}
	return
}
