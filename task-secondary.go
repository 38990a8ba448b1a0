package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cs-au-dk/restruct/analysis/cfg"
	"github.com/cs-au-dk/restruct/analysis/dominance"
	"github.com/cs-au-dk/restruct/graph"
	"github.com/cs-au-dk/restruct/utils"
)

// secondaryCommands are the tasks that inspect control-flow graphs without
// structuring them.
func secondaryCommands() []*cobra.Command {
	// load picks the Go frontend for a single argument that is not a YAML file.
	load := func(args []string) ([]*cfg.Procedure, error) {
		if len(args) == 1 && !isYAML(args[0]) {
			return loadGo(args[0])
		}
		return loadYAML(args)
	}

	return []*cobra.Command{{
		Use:   "dot [file.yaml... | package pattern]",
		Short: "Draw the control-flow graph of every procedure, with loops as clusters",
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := load(args)
			if err != nil {
				return err
			}
			return drawProcedures(procs)
		},
	}, {
		Use:   "print [file.yaml... | package pattern]",
		Short: "Print control-flow graphs",
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := load(args)
			if err != nil {
				return err
			}
			w, err := output()
			if err != nil {
				return err
			}
			defer w.Close()
			for i, p := range procs {
				if i > 0 {
					fmt.Fprintln(w)
				}
				fmt.Fprint(w, p)
			}
			return nil
		},
	}, {
		Use:   "lower <package pattern>",
		Short: "Write the control-flow graphs of Go functions as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := loadGo(args[0])
			if err != nil {
				return err
			}
			w, err := output()
			if err != nil {
				return err
			}
			if err := cfg.Encode(w, procs); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		},
	}}
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

// drawProcedures writes one graph per procedure into the --out directory
// (the working directory by default).
func drawProcedures(procs []*cfg.Procedure) error {
	dir := opts.OutputPath()
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, p := range procs {
		if err := p.Validate(); err != nil {
			log.Warn(err)
			continue
		}
		g := p.ToDot(nil)
		if info, err := dominance.Analyze(p); err == nil {
			g = graph.BuildGraph(p, info)
		} else {
			// Irreducible graphs are still worth looking at, without loops.
			var irr *dominance.IrreducibleError
			if !errors.As(err, &irr) {
				return err
			}
			log.Warn(err)
		}

		files, err := graph.Render(g, filepath.Join(dir, fileName(p.Name)), opts.Render(), opts.UseDotExecutable())
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Println(utils.NameColor(p.Name), "->", f)
		}
	}
	return nil
}

// fileName makes a procedure name usable as a file name.
func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '*', '(', ')', ' ', '$', '#', '[', ']':
			return '_'
		}
		return r
	}, name)
}
