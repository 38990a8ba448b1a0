package utils

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type options struct {
	minlen        uint
	nodesep       float64
	jobs          int
	maxNodes      int
	nodesPerBlock int
	function      string
	outputFormat  string
	outputPath    string
	render        string
	renderer      string
	gopath        string
	modulePath    string
	configFile    string
	metrics       bool
	noColorize    bool
	verbose       bool
	includeTests  bool
	includeGlobal bool
}

const (
	_FORMAT_TEXT = iota
	_FORMAT_YAML
	_FORMAT_MSGPACK
)

const (
	_RENDERER_BUILTIN = iota
	_RENDERER_DOT
)

func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%v", len(is)), is...)
		}
	}
	return col
}

var formats = []struct{ flag, explanation string }{{
	"text",
	"Colored pretty-printed structured bodies",
}, {
	"yaml",
	"Structured bodies as a YAML document",
}, {
	"msgpack",
	"Structured bodies as a MessagePack stream (one value per body)",
}}

var renderers = []struct{ flag, explanation string }{{
	"builtin",
	"Render Dot graphs in-process with the embedded graphviz library",
}, {
	"dot",
	"Render Dot graphs with the external 'dot' program found on PATH",
}}

var opts = &options{}

type optInterface struct{}

type formatInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) NoColorize() bool {
	return opts.noColorize
}
func (optInterface) Minlen() uint {
	return opts.minlen
}
func (optInterface) Nodesep() float64 {
	return opts.nodesep
}
func (optInterface) Jobs() int {
	if opts.jobs <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return opts.jobs
}

// MaxNodes is the per-procedure node budget of the structurer. Zero means unbounded.
func (optInterface) MaxNodes() int {
	return opts.maxNodes
}

// NodesPerBlock scales the node budget with the size of each procedure. Zero
// disables the scaled budget.
func (optInterface) NodesPerBlock() int {
	return opts.nodesPerBlock
}
func (optInterface) Function() string {
	return opts.function
}
func (optInterface) OutputPath() string {
	return opts.outputPath
}
func (optInterface) Render() string {
	return opts.render
}
func (optInterface) UseDotExecutable() bool {
	return opts.renderer == renderers[_RENDERER_DOT].flag
}
func (optInterface) GoPath() string {
	return opts.gopath
}
func (optInterface) ModulePath() string {
	return opts.modulePath
}
func (optInterface) Metrics() bool {
	return opts.metrics
}
func (optInterface) Verbose() bool {
	return opts.verbose
}
func (optInterface) IncludeTests() bool {
	return opts.includeTests
}
func (optInterface) IncludeGlobals() bool {
	return opts.includeGlobal
}
func (optInterface) Format() formatInterface {
	return formatInterface{}
}
func (formatInterface) IsText() bool {
	return opts.outputFormat == formats[_FORMAT_TEXT].flag
}
func (formatInterface) IsYAML() bool {
	return opts.outputFormat == formats[_FORMAT_YAML].flag
}
func (formatInterface) IsMsgpack() bool {
	return opts.outputFormat == formats[_FORMAT_MSGPACK].flag
}

// SelectsFunction reports whether the -fun filter admits the given procedure name.
// An empty filter or "." admits everything.
func (optInterface) SelectsFunction(name string) bool {
	return opts.function == "" || opts.function == "." ||
		name == opts.function || strings.HasSuffix(name, "."+opts.function)
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}

func explain(choices []struct{ flag, explanation string }) string {
	str := "\n"
	for _, c := range choices {
		str += c.flag + " -- " + c.explanation + "\n"
	}
	return str
}

// BindFlags registers all options on the given flag set. It is meant to be
// called with the persistent flag set of the root command.
func BindFlags(fs *pflag.FlagSet) {
	fs.UintVar(&(opts.minlen), "minlen", 2, "Minimum edge length (for wider output).")
	fs.Float64Var(&(opts.nodesep), "nodesep", 0.35, "Minimum space between two adjacent nodes in the same rank (for taller output).")
	fs.IntVarP(&(opts.jobs), "jobs", "j", 0, "Number of procedures structured concurrently (0 uses GOMAXPROCS).")
	fs.IntVar(&(opts.maxNodes), "max-nodes", 0, "Abandon a procedure whose structured tree exceeds this many nodes (0 disables the fixed budget).")
	fs.IntVar(&(opts.nodesPerBlock), "nodes-per-block", 256, "Abandon a procedure whose structured tree exceeds this many nodes per block and statement (0 disables the scaled budget).")
	fs.StringVar(&(opts.function), "fun", "", "Only process procedures with the given name. Names need not be package qualified. Use '.' for all procedures.")
	fs.StringVar(&(opts.outputFormat), "format", formats[_FORMAT_TEXT].flag, "Output format. Options:"+explain(formats))
	fs.StringVarP(&(opts.outputPath), "out", "o", "", "Write output to the given file instead of stdout.")
	fs.StringVar(&(opts.render), "render", "", "Render Dot graphs to the given image format [svg | png | jpg | ...]. Empty keeps only the .dot file.")
	fs.StringVar(&(opts.renderer), "renderer", renderers[_RENDERER_BUILTIN].flag, "Dot renderer. Options:"+explain(renderers))
	fs.StringVar(&(opts.gopath), "gopath", "", "Specify GOPATH to be used for packages.Load.")
	fs.StringVar(&(opts.modulePath), "modulepath", "", `Specify a path to a directory containing a Go module.
If provided, package loading runs in "module-aware" mode (GO111MODULE=on).`)
	fs.StringVar(&(opts.configFile), "config", "", "YAML file with option defaults. Flags given on the command line take precedence.")
	fs.BoolVar(&(opts.metrics), "metrics", false, "Print per-procedure structuring metrics at the end of the run.")
	fs.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization.")
	fs.BoolVarP(&(opts.verbose), "verbose", "v", false, "Enable verbose output.")
	fs.BoolVar(&(opts.includeTests), "include-tests", false, "Include test files when loading Go packages.")
	fs.BoolVar(&(opts.includeGlobal), "globals", true, "Structure package initializers as global bodies.")
}

// Finalize loads the configuration file (if any) and validates option values.
// Options set explicitly on the command line are never overridden by the file.
func Finalize(fs *pflag.FlagSet) error {
	if opts.configFile != "" {
		if err := applyConfigFile(fs, opts.configFile); err != nil {
			return err
		}
	}

	if err := checkChoice("format", opts.outputFormat, formats); err != nil {
		return err
	}
	if err := checkChoice("renderer", opts.renderer, renderers); err != nil {
		return err
	}
	if opts.maxNodes < 0 {
		return errors.Errorf("--max-nodes must not be negative, got %d", opts.maxNodes)
	}
	if opts.nodesPerBlock < 0 {
		return errors.Errorf("--nodes-per-block must not be negative, got %d", opts.nodesPerBlock)
	}

	if !Opts().Format().IsText() {
		opts.noColorize = true
	}
	if opts.verbose {
		log.SetLevel(log.DebugLevel)
	}
	return nil
}

func checkChoice(name, value string, choices []struct{ flag, explanation string }) error {
	for _, c := range choices {
		if c.flag == value {
			return nil
		}
	}
	return errors.Errorf("value %q is not valid for --%s", value, name)
}

func applyConfigFile(fs *pflag.FlagSet, path string) error {
	contents, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading configuration file")
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(contents, &values); err != nil {
		return errors.Wrapf(err, "parsing configuration file %s", path)
	}

	for key, value := range values {
		f := fs.Lookup(key)
		if f == nil {
			return errors.Errorf("%s: unknown option %q", path, key)
		}
		if f.Changed {
			continue
		}
		if err := fs.Set(key, fmt.Sprint(value)); err != nil {
			return errors.Wrapf(err, "%s: option %q", path, key)
		}
	}
	return nil
}

func init() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
	log.SetOutput(os.Stderr)
}
