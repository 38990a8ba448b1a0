package testutil

import (
	"github.com/cs-au-dk/restruct/analysis/ast"
)

// Shape counts the nodes of a structured tree by kind, keyed like the shape
// annotations.
func Shape(root ast.Node) map[string]int {
	m := map[string]int{}
	ast.Walk(root, func(n ast.Node, _ int) bool {
		switch n.(type) {
		case *ast.Loop:
			m[ShapeLoops]++
		case *ast.Break:
			m[ShapeBreaks]++
		case *ast.Continue:
			m[ShapeContinues]++
		case *ast.If:
			m[ShapeIfs]++
		case *ast.Switch:
			m[ShapeSwitches]++
		case *ast.Return:
			m[ShapeReturns]++
		case *ast.Abort:
			m[ShapeAborts]++
		}
		return true
	})
	return m
}
