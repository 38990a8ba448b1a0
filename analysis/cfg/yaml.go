package cfg

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// The YAML input format mirrors the model one-to-one. Statements may be
// written as plain strings, in which case they are assignments whose uses are
// the _N tokens of the text. Terminators are tagged maps, or one of the plain
// strings "return" and "unreachable".

type fileDTO struct {
	Procedures []procedureDTO `yaml:"procedures"`
}

type procedureDTO struct {
	Name     string       `yaml:"name"`
	Kind     string       `yaml:"kind,omitempty"`
	Entry    int          `yaml:"entry"`
	ArgCount int          `yaml:"arg_count"`
	Locals   []localDTO   `yaml:"locals,omitempty"`
	Span     *spanDTO     `yaml:"span,omitempty"`
	Comments []commentDTO `yaml:"comments,omitempty"`
	Blocks   []blockDTO   `yaml:"blocks"`
}

type localDTO struct {
	Name string `yaml:"name,omitempty"`
	Ty   string `yaml:"ty,omitempty"`
}

type spanDTO struct {
	File    string `yaml:"file"`
	Line    int    `yaml:"line"`
	Col     int    `yaml:"col"`
	EndLine int    `yaml:"end_line"`
	EndCol  int    `yaml:"end_col"`
}

type commentDTO struct {
	Line  int      `yaml:"line"`
	Lines []string `yaml:"lines"`
}

type blockDTO struct {
	ID         int            `yaml:"id"`
	Statements []statementDTO `yaml:"statements,omitempty"`
	Terminator terminatorDTO  `yaml:"terminator"`
}

type statementDTO struct {
	Kind string `yaml:"kind"`
	Text string `yaml:"text"`
	Uses []int  `yaml:"uses,flow"`

	usesGiven bool
}

type terminatorDTO struct {
	Goto   *int       `yaml:"goto,omitempty"`
	If     *ifDTO     `yaml:"if,omitempty"`
	Switch *switchDTO `yaml:"switch,omitempty"`
	Return *struct{}  `yaml:"return,omitempty"`
	Abort  *abortDTO  `yaml:"abort,omitempty"`
}

type ifDTO struct {
	Cond string `yaml:"cond"`
	Then int    `yaml:"then"`
	Else int    `yaml:"else"`
}

type switchDTO struct {
	Discr     string   `yaml:"discr"`
	Ty        string   `yaml:"ty"`
	Arms      []armDTO `yaml:"arms,flow"`
	Otherwise int      `yaml:"otherwise"`
}

type armDTO struct {
	Value  string `yaml:"value"`
	Target int    `yaml:"target"`
}

type abortDTO struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name,omitempty"`
}

func (s *statementDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		s.Kind = Assign.String()
		s.Text = node.Value
		return nil
	}

	type plain statementDTO
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = statementDTO(p)
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "uses" {
			s.usesGiven = true
		}
	}
	if s.Kind == "" {
		s.Kind = Assign.String()
	}
	return nil
}

func (t *terminatorDTO) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		switch node.Value {
		case "return":
			t.Return = &struct{}{}
		case "unreachable":
			t.Abort = &abortDTO{Kind: UndefinedBehavior.String()}
		default:
			return errors.Errorf("line %d: unknown terminator %q", node.Line, node.Value)
		}
		return nil
	}

	type plain terminatorDTO
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*t = terminatorDTO(p)
	// "return:" with no value decodes to a nil pointer.
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "return" {
			t.Return = &struct{}{}
		}
	}
	return nil
}

var terminatorKeywords = map[string]bool{
	"goto": true, "if": true, "switch": true, "return": true, "abort": true,
}

// Decode reads every procedure of a YAML file. Syntax errors fail the whole
// file; a procedure that is readable but malformed is returned as is and
// rejected by its Validate.
func Decode(r io.Reader) ([]*Procedure, error) {
	var file fileDTO
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.Wrap(err, "decoding procedures")
	}

	procs := make([]*Procedure, 0, len(file.Procedures))
	for i, dto := range file.Procedures {
		p, err := dto.toProcedure()
		if err != nil {
			return nil, errors.Wrapf(err, "procedure #%d (%s)", i, dto.Name)
		}
		procs = append(procs, p)
	}
	return procs, nil
}

func (dto procedureDTO) toProcedure() (*Procedure, error) {
	p := &Procedure{
		Name:     dto.Name,
		Entry:    BlockID(dto.Entry),
		ArgCount: dto.ArgCount,
	}

	switch dto.Kind {
	case "", Function.String():
		p.Kind = Function
	case Global.String():
		p.Kind = Global
	default:
		return nil, errors.Errorf("unknown procedure kind %q", dto.Kind)
	}

	if dto.Span != nil {
		p.Span = Span(*dto.Span)
	}
	for _, c := range dto.Comments {
		p.Comments = append(p.Comments, LineComment{c.Line, c.Lines})
	}

	maxLocal := LocalID(dto.ArgCount)
	noteLocal := func(id LocalID) {
		if id > maxLocal {
			maxLocal = id
		}
	}

	p.Blocks = make([]*Block, len(dto.Blocks))
	for i, bdto := range dto.Blocks {
		blk := &Block{ID: BlockID(bdto.ID)}
		// Keep the declared id; Validate rejects blocks out of position.
		p.Blocks[i] = blk

		for _, sdto := range bdto.Statements {
			if terminatorKeywords[sdto.Kind] {
				p.defect = p.malformed(StatementAfterTerminator,
					fmt.Sprintf("%q is a terminator, not a statement", sdto.Kind), blk.ID)
				continue
			}
			kind, ok := ParseStatementKind(sdto.Kind)
			if !ok {
				return nil, errors.Errorf("block %d: unknown statement kind %q", bdto.ID, sdto.Kind)
			}
			stmt := Statement{Kind: kind, Text: sdto.Text}
			if sdto.usesGiven {
				for _, u := range sdto.Uses {
					stmt.Uses = append(stmt.Uses, LocalID(u))
				}
			} else {
				stmt.Uses = UsesOf(sdto.Text)
			}
			for _, u := range stmt.Uses {
				noteLocal(u)
			}
			blk.Statements = append(blk.Statements, stmt)
		}

		term, count, err := bdto.Terminator.toTerminator()
		if err != nil {
			return nil, errors.Wrapf(err, "block %d", bdto.ID)
		}
		if count > 1 {
			p.defect = p.malformed(StatementAfterTerminator, "block has several terminators", blk.ID)
		}
		blk.Terminator = term
		for _, op := range Operands(term) {
			if !op.IsConst {
				noteLocal(op.Local)
			}
		}
	}

	if len(dto.Locals) > 0 {
		for i, l := range dto.Locals {
			p.Locals = append(p.Locals, Local{LocalID(i), l.Name, l.Ty})
		}
	} else {
		for i := LocalID(0); i <= maxLocal; i++ {
			p.Locals = append(p.Locals, Local{ID: i})
		}
	}

	return p, nil
}

func (dto terminatorDTO) toTerminator() (term Terminator, count int, err error) {
	if dto.Goto != nil {
		term, count = &Goto{BlockID(*dto.Goto)}, count+1
	}
	if dto.If != nil {
		term, count = &If{
			Cond: ParseOperand(dto.If.Cond),
			Then: BlockID(dto.If.Then),
			Else: BlockID(dto.If.Else),
		}, count+1
	}
	if dto.Switch != nil {
		ty, err := ParseIntTy(dto.Switch.Ty)
		if err != nil {
			return nil, 0, err
		}
		sw := &SwitchInt{
			Discr:     ParseOperand(dto.Switch.Discr),
			Ty:        ty,
			Otherwise: BlockID(dto.Switch.Otherwise),
		}
		for _, arm := range dto.Switch.Arms {
			v, err := ParseScalar(ty, arm.Value)
			if err != nil {
				return nil, 0, err
			}
			sw.Arms = append(sw.Arms, Arm{v, BlockID(arm.Target)})
		}
		term, count = sw, count+1
	}
	if dto.Return != nil {
		term, count = &Return{}, count+1
	}
	if dto.Abort != nil {
		kind, ok := ParseAbortKind(dto.Abort.Kind)
		if !ok {
			return nil, 0, errors.Errorf("unknown abort kind %q", dto.Abort.Kind)
		}
		term, count = &Abort{kind, dto.Abort.Name}, count+1
	}
	return
}

// Encode writes the procedures in the format read by Decode.
func Encode(w io.Writer, procs []*Procedure) error {
	file := fileDTO{}
	for _, p := range procs {
		file.Procedures = append(file.Procedures, fromProcedure(p))
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(file); err != nil {
		return errors.Wrap(err, "encoding procedures")
	}
	return enc.Close()
}

func fromProcedure(p *Procedure) procedureDTO {
	dto := procedureDTO{
		Name:     p.Name,
		Kind:     p.Kind.String(),
		Entry:    int(p.Entry),
		ArgCount: p.ArgCount,
	}
	if p.Span != (Span{}) {
		span := spanDTO(p.Span)
		dto.Span = &span
	}
	for _, c := range p.Comments {
		dto.Comments = append(dto.Comments, commentDTO{c.Line, c.Lines})
	}
	for _, l := range p.Locals {
		dto.Locals = append(dto.Locals, localDTO{l.Name, l.Ty})
	}

	for _, blk := range p.Blocks {
		bdto := blockDTO{ID: int(blk.ID)}
		for _, stmt := range blk.Statements {
			sdto := statementDTO{Kind: stmt.Kind.String(), Text: stmt.Text, Uses: []int{}}
			for _, u := range stmt.Uses {
				sdto.Uses = append(sdto.Uses, int(u))
			}
			bdto.Statements = append(bdto.Statements, sdto)
		}

		switch t := blk.Terminator.(type) {
		case *Goto:
			target := int(t.Target)
			bdto.Terminator.Goto = &target
		case *If:
			bdto.Terminator.If = &ifDTO{t.Cond.String(), int(t.Then), int(t.Else)}
		case *SwitchInt:
			sw := &switchDTO{Discr: t.Discr.String(), Ty: t.Ty.String(), Otherwise: int(t.Otherwise)}
			for _, arm := range t.Arms {
				sw.Arms = append(sw.Arms, armDTO{arm.Value.String(), int(arm.Target)})
			}
			bdto.Terminator.Switch = sw
		case *Return:
			bdto.Terminator.Return = &struct{}{}
		case *Abort:
			bdto.Terminator.Abort = &abortDTO{t.Kind.String(), t.Name}
		}
		dto.Blocks = append(dto.Blocks, bdto)
	}
	return dto
}
