package testutil

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/cs-au-dk/restruct/pkgutil"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// LoadResult contains the SSA form of a Go program loaded for a test.
type LoadResult struct {
	// MainPkg is the package under test.
	MainPkg *packages.Package
	// Prog is the SSA representation of the entire program.
	Prog *ssa.Program
	// Pkg is the SSA package of MainPkg.
	Pkg *ssa.Package
}

// Func returns the function named name in the package under test.
func (res LoadResult) Func(t *testing.T, name string) *ssa.Function {
	t.Helper()
	fn := res.Pkg.Func(name)
	if fn == nil {
		t.Fatalf("no function %s in %s", name, res.Pkg.Pkg.Path())
	}
	return fn
}

func LoadResultFromPackages(t *testing.T, pkgs []*packages.Package) (res LoadResult) {
	t.Helper()
	res.MainPkg = pkgs[0]

	var spkgs []*ssa.Package
	res.Prog, spkgs = ssautil.AllPackages(pkgs, ssa.SanityCheckFunctions|ssa.InstantiateGenerics)
	res.Prog.Build()

	res.Pkg = spkgs[0]
	if res.Pkg == nil {
		t.Fatal("package under test has no SSA form")
	}
	return
}

// LoadSourceAsPackages type checks content as the single file of a package.
func LoadSourceAsPackages(t *testing.T, importPath string, content string) []*packages.Package {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "main.go", content, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}

	files := []*ast.File{file}

	pkg := types.NewPackage(importPath, file.Name.Name)
	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Instances:  make(map[*ast.Ident]types.Instance),
		Scopes:     make(map[ast.Node]*types.Scope),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
	}
	if err := types.NewChecker(
		&types.Config{Importer: importer.Default()},
		fset, pkg, info).Files(files); err != nil {
		t.Fatal(err)
	}

	// Without imports there is no need to run the go tool.
	if len(pkg.Imports()) == 0 {
		return []*packages.Package{{
			ID:        "pkg-loaded-from-src",
			Name:      pkg.Name(),
			PkgPath:   pkg.Path(),
			Types:     pkg,
			Fset:      fset,
			Syntax:    files,
			TypesInfo: info,
		}}
	}

	// Dependencies have to be loaded by the packages tool, which runs the go
	// tool in a subprocess.
	pkgs, err := pkgutil.LoadPackagesFromSource(content)
	if err != nil {
		t.Fatal(err)
	}
	return pkgs
}

func LoadPackageFromSource(t *testing.T, importPath string, content string) LoadResult {
	t.Helper()
	return LoadResultFromPackages(t, LoadSourceAsPackages(t, importPath, content))
}
