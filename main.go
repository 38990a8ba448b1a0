package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cs-au-dk/restruct/analysis/body"
	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/analysis/frontend"
	"github.com/cs-au-dk/restruct/analysis/structure"
	"github.com/cs-au-dk/restruct/pkgutil"
	"github.com/cs-au-dk/restruct/utils"
)

var opts = utils.Opts()

// status is the process exit code once the command has finished.
var status int

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "restruct",
		Short: "Recover structured control flow from control-flow graphs",
		Long: `restruct turns the unstructured control-flow graph of every selected procedure
into a tree of sequences, conditionals, switches and loops with labelled
break and continue statements.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return utils.Finalize(cmd.Flags())
		},
	}
	utils.BindFlags(root.PersistentFlags())

	root.AddCommand(&cobra.Command{
		Use:   "structure [file.yaml...]",
		Short: "Structure the procedures of YAML control-flow graph files (stdin if none)",
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := loadYAML(args)
			if err != nil {
				return err
			}
			return structureAndEmit(cmd.Context(), procs)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "go <package pattern>",
		Short: "Structure the functions of Go packages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := loadGo(args[0])
			if err != nil {
				return err
			}
			return structureAndEmit(cmd.Context(), procs)
		},
	})

	root.AddCommand(secondaryCommands()...)
	return root
}

func main() {
	if err := rootCommand().ExecuteContext(context.Background()); err != nil {
		log.Error(err)
		os.Exit(1)
	}
	os.Exit(status)
}

// loadYAML decodes the procedures of the given files, or of stdin when no
// files are given, and keeps those selected by --fun.
func loadYAML(paths []string) ([]*cfg.Procedure, error) {
	var procs []*cfg.Procedure
	decode := func(name string, r io.Reader) error {
		ps, err := cfg.Decode(r)
		if err != nil {
			return errors.WithMessage(err, name)
		}
		procs = append(procs, ps...)
		return nil
	}

	if len(paths) == 0 {
		if err := decode("<stdin>", os.Stdin); err != nil {
			return nil, err
		}
	}
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		err = decode(path, f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}

	selected := procs[:0]
	for _, p := range procs {
		if opts.SelectsFunction(p.Name) {
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return nil, frontend.ErrNoFunctions
	}
	return selected, nil
}

// loadGo lowers the functions of the packages matching pattern.
func loadGo(pattern string) ([]*cfg.Procedure, error) {
	defer utils.TimeTrack(time.Now(), "Loading "+pattern)

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{
		GoPath:       opts.GoPath(),
		ModulePath:   opts.ModulePath(),
		IncludeTests: opts.IncludeTests(),
	}, pattern)
	if err != nil {
		return nil, err
	}

	procs, err := frontend.Program(pkgs, frontend.Config{
		Globals: opts.IncludeGlobals(),
		Filter:  opts.SelectsFunction,
	})
	if err != nil {
		return nil, err
	}
	if len(procs) == 0 {
		return nil, frontend.ErrNoFunctions
	}
	return procs, nil
}

// output opens the --out file, or stdout.
func output() (io.WriteCloser, error) {
	if path := opts.OutputPath(); path != "" {
		return os.Create(path)
	}
	return nopCloser{os.Stdout}, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func emit(w io.Writer, bodies []*body.Body) error {
	switch f := opts.Format(); {
	case f.IsYAML():
		return body.EncodeYAML(w, bodies)
	case f.IsMsgpack():
		return body.EncodeMsgpack(w, bodies)
	default:
		return body.Fprint(w, bodies)
	}
}

func structureAndEmit(ctx context.Context, procs []*cfg.Procedure) error {
	start := time.Now()
	pl := pipeline{
		opts: structure.Options{
			MaxNodes:      opts.MaxNodes(),
			NodesPerBlock: opts.NodesPerBlock(),
		},
		jobs: opts.Jobs(),
	}
	results, err := pl.run(ctx, procs)
	if err != nil {
		return err
	}
	log.Debugf("Structured %s in %s", utils.Plural(len(procs), "procedure"), time.Since(start))

	w, err := output()
	if err != nil {
		return err
	}
	if err := emit(w, bodies(results)); err != nil {
		w.Close()
		return errors.Wrap(err, "writing output")
	}
	if err := w.Close(); err != nil {
		return err
	}

	opts.OnVerbose(func() {
		for _, r := range results {
			if r.failed() {
				fmt.Fprintf(os.Stderr, "%s\n", r.proc)
			}
		}
	})
	report(os.Stderr, results, opts.Metrics())
	status = exitCode(results)
	return nil
}
