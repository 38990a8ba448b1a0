package pkgutil

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/tools/go/packages"
)

// LoadConfig selects how Go packages are located. With a ModulePath, packages
// are loaded in module-aware mode from that directory; otherwise GOPATH mode
// is used with GoPath as the GOPATH. IncludeTests also loads the test variants
// of the packages.
type LoadConfig struct {
	GoPath, ModulePath string
	IncludeTests       bool
}

// loadMode is everything go/ssa needs to build function bodies.
const loadMode packages.LoadMode = packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
	packages.NeedImports | packages.NeedTypes | packages.NeedTypesSizes | packages.NeedSyntax |
	packages.NeedTypesInfo | packages.NeedDeps

var (
	moduleRegex = regexp.MustCompile(`(?m)^module\s+(.*)$`)

	cwd = func() string {
		dir, err := os.Getwd()
		if err != nil {
			panic(err)
		}
		return dir
	}()
)

// relativizingParseFile parses with file names relative to the working
// directory, so that source spans in the output do not depend on where the
// tool runs.
func relativizingParseFile(fset *token.FileSet, filename string, src []byte) (*ast.File, error) {
	if rel, err := filepath.Rel(cwd, filename); err == nil {
		filename = rel
	}
	const mode = parser.AllErrors | parser.ParseComments
	return parser.ParseFile(fset, filename, src, mode)
}

// ModuleName reads the module path declared by the go.mod file in dir.
func ModuleName(dir string) (string, error) {
	contents, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", errors.Wrapf(err, "unable to load 'go.mod' file at %s", dir)
	}

	m := moduleRegex.FindSubmatch(contents)
	if len(m) <= 1 {
		return "", errors.Errorf("unable to locate module name in %s", filepath.Join(dir, "go.mod"))
	}
	return string(m[1]), nil
}

// LoadPackages loads the packages matching pattern.
func LoadPackages(cfg LoadConfig, pattern string) ([]*packages.Package, error) {
	gopath, err := filepath.Abs(cfg.GoPath)
	if err != nil {
		return nil, err
	}

	config := &packages.Config{
		Mode:      loadMode,
		Tests:     cfg.IncludeTests,
		ParseFile: relativizingParseFile,
	}

	if modulePath := cfg.ModulePath; modulePath != "" {
		pkgPath, err := filepath.Abs(modulePath)
		if err != nil {
			return nil, err
		}
		module, err := ModuleName(pkgPath)
		if err != nil {
			return nil, err
		}
		log.Debugf("Loading %s in module %s", pattern, module)

		config.Dir = pkgPath
		config.Env = append(os.Environ(), "GOPATH="+gopath, "GO111MODULE=on")
	} else {
		log.Debugf("Loading %s from GOPATH %s", pattern, gopath)
		config.Env = append(os.Environ(), "GOPATH="+gopath, "GO111MODULE=off")
	}

	return loadPackagesWithConfig(config, pattern)
}

// LoadPackagesFromSource loads a single-file package given as a string.
// It is mainly useful for testing.
func LoadPackagesFromSource(source string) ([]*packages.Package, error) {
	// The overlay lets the go tool see a file that does not exist on disk.
	config := &packages.Config{
		Mode: loadMode,
		Env:  append(os.Environ(), "GO111MODULE=off", "GOPATH=/fake"),
		Overlay: map[string][]byte{
			"/fake/testpackage/main.go": []byte(source),
		},
	}

	return loadPackagesWithConfig(config, "/fake/testpackage/main.go")
}

func loadPackagesWithConfig(config *packages.Config, query string) ([]*packages.Package, error) {
	pkgs, err := packages.Load(config, query)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", query)
	} else if n := packages.PrintErrors(pkgs); n > 0 {
		return nil, errors.Errorf("%d errors encountered while loading %s", n, query)
	}
	if config.Tests {
		// Packages with tests are returned twice, once with and once without
		// their test files. Keeping both would duplicate every function.
		packageIDs := map[string]bool{}
		for _, pkg := range pkgs {
			packageIDs[pkg.ID] = true
		}

		filtered := []*packages.Package{}
		for _, pkg := range pkgs {
			if !packageIDs[fmt.Sprintf("%s [%s.test]", pkg.ID, pkg.ID)] {
				filtered = append(filtered, pkg)
			}
		}
		pkgs = filtered
	}
	if len(pkgs) == 0 {
		return nil, errors.Errorf("no packages match %s", query)
	}
	return pkgs, nil
}
