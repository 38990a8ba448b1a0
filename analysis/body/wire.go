package body

import (
	"io"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/cs-au-dk/restruct/analysis/ast"
	"github.com/cs-au-dk/restruct/analysis/cfg"
)

// Wire is the serializable form of a body.
type Wire struct {
	Kind     string        `yaml:"kind" msgpack:"kind"`
	Name     string        `yaml:"name" msgpack:"name"`
	Span     *WireSpan     `yaml:"span,omitempty" msgpack:"span,omitempty"`
	ArgCount int           `yaml:"arg_count" msgpack:"arg_count"`
	Locals   []WireLocal   `yaml:"locals" msgpack:"locals"`
	Comments []WireComment `yaml:"comments,omitempty" msgpack:"comments,omitempty"`
	Body     []ast.Wire    `yaml:"body" msgpack:"body"`
}

type WireSpan struct {
	File    string `yaml:"file" msgpack:"file"`
	Line    int    `yaml:"line" msgpack:"line"`
	Col     int    `yaml:"col" msgpack:"col"`
	EndLine int    `yaml:"end_line" msgpack:"end_line"`
	EndCol  int    `yaml:"end_col" msgpack:"end_col"`
}

type WireLocal struct {
	Name string `yaml:"name,omitempty" msgpack:"name,omitempty"`
	Ty   string `yaml:"ty,omitempty" msgpack:"ty,omitempty"`
}

type WireComment struct {
	Line  int      `yaml:"line" msgpack:"line"`
	Lines []string `yaml:"lines" msgpack:"lines"`
}

func (b *Body) ToWire() Wire {
	w := Wire{
		Kind:     b.Kind.String(),
		Name:     b.Name,
		ArgCount: b.ArgCount,
		Body:     ast.ToWire(b.Tree),
	}
	if b.Span != (cfg.Span{}) {
		span := WireSpan(b.Span)
		w.Span = &span
	}
	for _, l := range b.Locals {
		w.Locals = append(w.Locals, WireLocal{l.Name, l.Ty})
	}
	for _, c := range b.Comments {
		w.Comments = append(w.Comments, WireComment{c.Line, c.Lines})
	}
	return w
}

// FromWire rebuilds a body. The tree is checked the same way Assemble checks
// it, but violations are reported as errors since the input is external.
func FromWire(w Wire) (*Body, error) {
	b := &Body{Name: w.Name, ArgCount: w.ArgCount}
	switch w.Kind {
	case cfg.Function.String():
		b.Kind = cfg.Function
	case cfg.Global.String():
		b.Kind = cfg.Global
	default:
		return nil, errors.Errorf("%s: unknown body kind %q", w.Name, w.Kind)
	}
	if w.Span != nil {
		b.Span = cfg.Span(*w.Span)
	}
	for i, l := range w.Locals {
		b.Locals = append(b.Locals, cfg.Local{ID: cfg.LocalID(i), Name: l.Name, Ty: l.Ty})
	}
	for _, c := range w.Comments {
		b.Comments = append(b.Comments, cfg.LineComment{Line: c.Line, Lines: c.Lines})
	}
	if b.ArgCount < 0 || len(b.Locals) < b.ArgCount+1 {
		return nil, errors.Errorf("%s: %d locals cannot hold the return place and %d arguments",
			w.Name, len(b.Locals), b.ArgCount)
	}

	tree, err := ast.FromWire(w.Body)
	if err != nil {
		return nil, errors.WithMessage(err, w.Name)
	}
	if err := ast.CheckLevels(tree); err != nil {
		return nil, errors.WithMessage(err, w.Name)
	}
	for _, id := range ast.Uses(tree) {
		if int(id) >= len(b.Locals) {
			return nil, errors.Errorf("%s: %s is not declared", w.Name, id)
		}
	}
	b.Tree = tree
	return b, nil
}

type fileWire struct {
	Bodies []Wire `yaml:"bodies"`
}

// EncodeYAML writes the bodies as a single YAML document.
func EncodeYAML(w io.Writer, bodies []*Body) error {
	file := fileWire{Bodies: make([]Wire, 0, len(bodies))}
	for _, b := range bodies {
		file.Bodies = append(file.Bodies, b.ToWire())
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return errors.Wrap(err, "encoding bodies")
	}
	return enc.Close()
}

func DecodeYAML(r io.Reader) ([]*Body, error) {
	var file fileWire
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		return nil, errors.Wrap(err, "decoding bodies")
	}
	bodies := make([]*Body, 0, len(file.Bodies))
	for _, w := range file.Bodies {
		b, err := FromWire(w)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, b)
	}
	return bodies, nil
}

// EncodeMsgpack writes one MessagePack value per body.
func EncodeMsgpack(w io.Writer, bodies []*Body) error {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	for _, b := range bodies {
		if err := enc.Encode(b.ToWire()); err != nil {
			return errors.Wrapf(err, "encoding %s", b.Name)
		}
	}
	return nil
}

// DecodeMsgpack reads the stream written by EncodeMsgpack until EOF.
func DecodeMsgpack(r io.Reader) ([]*Body, error) {
	dec := msgpack.NewDecoder(r)
	var bodies []*Body
	for {
		var w Wire
		if err := dec.Decode(&w); err != nil {
			if errors.Is(err, io.EOF) {
				return bodies, nil
			}
			return nil, errors.Wrap(err, "decoding bodies")
		}
		b, err := FromWire(w)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, b)
	}
}
