package frontend

import (
	"go/ast"
	"go/token"
	"go/types"
	"sort"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/cs-au-dk/restruct/analysis/cfg"
)

// Config selects the functions lowered from a program.
type Config struct {
	// Globals includes package initializers.
	Globals bool
	// Filter admits functions by their qualified name. Nil admits all.
	Filter func(name string) bool
}

// Program builds the SSA form of pkgs and lowers every function declared in
// them, sorted by name.
func Program(pkgs []*packages.Package, conf Config) ([]*cfg.Procedure, error) {
	prog, spkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	wanted := map[*ssa.Package]bool{}
	for _, spkg := range spkgs {
		if spkg != nil {
			wanted[spkg] = true
		}
	}

	var funs []*ssa.Function
	for fn := range declared(prog, pkgs) {
		if selected(fn, wanted, conf) {
			funs = append(funs, fn)
		}
	}
	sort.Slice(funs, func(i, j int) bool { return funs[i].String() < funs[j].String() })

	files := sourceFiles(pkgs)
	procs := make([]*cfg.Procedure, 0, len(funs))
	for _, fn := range funs {
		p, err := Function(fn)
		if err != nil {
			return nil, err
		}
		attachSource(p, fn, prog.Fset, files)
		procs = append(procs, p)
	}

	log.Debugf("Lowered %d functions from %d packages", len(procs), len(wanted))
	return procs, nil
}

// declared returns the functions reachable from the program roots together
// with every function and method declared in pkgs and their closures.
// Methods of unexported types are not roots, so nothing else finds them when
// they are never called.
func declared(prog *ssa.Program, pkgs []*packages.Package) map[*ssa.Function]bool {
	funs := ssautil.AllFunctions(prog)

	seen := map[*ssa.Function]bool{}
	var add func(fn *ssa.Function)
	add = func(fn *ssa.Function) {
		if fn == nil || seen[fn] {
			return
		}
		seen[fn] = true
		funs[fn] = true
		for _, anon := range fn.AnonFuncs {
			add(anon)
		}
	}

	for _, pkg := range pkgs {
		if pkg.TypesInfo == nil {
			continue
		}
		for _, obj := range pkg.TypesInfo.Defs {
			// Interface methods have no function value.
			if f, ok := obj.(*types.Func); ok {
				add(prog.FuncValue(f))
			}
		}
	}
	return funs
}

func selected(fn *ssa.Function, wanted map[*ssa.Package]bool, conf Config) bool {
	if len(fn.Blocks) == 0 || !wanted[fn.Pkg] {
		return false
	}
	// Instances share the body of their generic origin.
	if fn.Origin() != nil {
		return false
	}
	if kindOf(fn) == cfg.Global {
		if !conf.Globals {
			return false
		}
	} else if fn.Synthetic != "" {
		return false
	}
	return conf.Filter == nil || conf.Filter(fn.String())
}

func sourceFiles(pkgs []*packages.Package) (files []*ast.File) {
	packages.Visit(pkgs, nil, func(pkg *packages.Package) {
		files = append(files, pkg.Syntax...)
	})
	return
}

// attachSource records the span of the declaration of fn and the comments
// inside it.
func attachSource(p *cfg.Procedure, fn *ssa.Function, fset *token.FileSet, files []*ast.File) {
	syntax := fn.Syntax()
	if syntax == nil || !fn.Pos().IsValid() {
		return
	}

	start, end := fset.Position(syntax.Pos()), fset.Position(syntax.End())
	p.Span = cfg.Span{
		File:    start.Filename,
		Line:    start.Line,
		Col:     start.Column,
		EndLine: end.Line,
		EndCol:  end.Column,
	}

	for _, file := range files {
		if file.Pos() > syntax.Pos() || syntax.End() > file.End() {
			continue
		}
		for _, cg := range file.Comments {
			if cg.Pos() < syntax.Pos() || cg.End() > syntax.End() {
				continue
			}
			text := strings.TrimSuffix(cg.Text(), "\n")
			p.Comments = append(p.Comments, cfg.LineComment{
				Line:  fset.Position(cg.Pos()).Line,
				Lines: strings.Split(text, "\n"),
			})
		}
		return
	}
}

// ErrNoFunctions is reported when the filter rejects every function.
var ErrNoFunctions = errors.New("no functions selected")
