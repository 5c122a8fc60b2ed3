package compiler

import (
	"context"
	"os"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tacc/compiler/back"
	"github.com/slowlang/tacc/compiler/frame"
	"github.com/slowlang/tacc/compiler/sym"
	"github.com/slowlang/tacc/compiler/tac"
)

type (
	// Unit is a compilation unit file as the front end writes it.
	Unit struct {
		Globals []VarDecl  `yaml:"globals"`
		Funcs   []FuncDecl `yaml:"funcs"`

		// Code is one quad per line.
		Code string `yaml:"code"`
	}

	VarDecl struct {
		Name  string `yaml:"name"`
		Type  string `yaml:"type"`
		Size  int    `yaml:"size"`
		Array bool   `yaml:"array"`
	}

	FuncDecl struct {
		Name   string    `yaml:"name"`
		Type   string    `yaml:"type"`
		Params []VarDecl `yaml:"params"`
		Locals []VarDecl `yaml:"locals"`
	}

	// Program is a parsed unit ready for code generation.
	Program struct {
		Name  string
		Table *sym.Scope
		Code  []tac.Quad
	}
)

func LoadUnit(ctx context.Context, name string) (*Program, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(data), "name", name)

	return ParseUnit(ctx, name, data)
}

func ParseUnit(ctx context.Context, name string, data []byte) (p *Program, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "parse unit", "name", name)
	defer tr.Finish("err", &err)

	var u Unit

	err = yaml.Unmarshal(data, &u)
	if err != nil {
		return nil, errors.Wrap(err, "decode unit")
	}

	p = &Program{
		Name:  name,
		Table: sym.NewScope(),
	}

	for _, g := range u.Globals {
		v, err := g.sym()
		if err != nil {
			return nil, errors.Wrap(err, "global %v", g.Name)
		}

		err = p.Table.Insert(&sym.Symbol{
			Name:    v.Name,
			Kind:    sym.Variable,
			Type:    v.Type,
			Size:    v.Size,
			IsArray: v.IsArray,
		})
		if err != nil {
			return nil, errors.Wrap(err, "global")
		}
	}

	for _, f := range u.Funcs {
		s, err := f.sym()
		if err != nil {
			return nil, errors.Wrap(err, "func %v", f.Name)
		}

		err = p.Table.Insert(s)
		if err != nil {
			return nil, errors.Wrap(err, "func")
		}
	}

	p.Code, err = tac.ParseCode([]byte(u.Code))
	if err != nil {
		return nil, errors.Wrap(err, "code")
	}

	tr.Printw("unit parsed", "globals", len(u.Globals), "funcs", len(u.Funcs), "instrs", len(p.Code))

	return p, nil
}

// LoadOptions overrides opts by the values from the TOML file.
func LoadOptions(name string, opts back.Options) (back.Options, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return opts, errors.Wrap(err, "read file")
	}

	err = toml.Unmarshal(data, &opts)
	if err != nil {
		return opts, errors.Wrap(err, "decode %v", name)
	}

	return opts, nil
}

func CompileFile(ctx context.Context, name string, opts back.Options) (*back.Listing, error) {
	p, err := LoadUnit(ctx, name)
	if err != nil {
		return nil, errors.Wrap(err, "load unit")
	}

	return Compile(ctx, p, opts)
}

func Compile(ctx context.Context, p *Program, opts back.Options) (*back.Listing, error) {
	l, err := back.New(opts).Compile(ctx, p.Code, p.Table)
	if err != nil {
		return nil, errors.Wrap(err, "compile %v", p.Name)
	}

	return l, nil
}

// Frames plans the frames without generating code.
func Frames(ctx context.Context, p *Program, opts back.Options) ([]frame.Layout, error) {
	t, err := frame.Plan(ctx, p.Table, p.Code, opts.FrameOptions())
	if err != nil {
		return nil, errors.Wrap(err, "plan %v", p.Name)
	}

	return t.Layouts(), nil
}

func (d VarDecl) sym() (v sym.Var, err error) {
	if d.Name == "" {
		return v, errors.New("empty name")
	}

	v = sym.Var{
		Name:    d.Name,
		Type:    d.Type,
		Size:    d.Size,
		IsArray: d.Array,
	}

	if v.Type == "" {
		v.Type = "int"
	}

	switch {
	case d.Size < 0:
		return v, errors.New("%v: negative size", d.Name)
	case d.Size == 0 && !d.Array:
		v.Size = sym.WordSize
	}

	return v, nil
}

func (d FuncDecl) sym() (_ *sym.Symbol, err error) {
	if d.Name == "" {
		return nil, errors.New("empty name")
	}

	s := &sym.Symbol{
		Name: d.Name,
		Kind: sym.Func,
		Type: d.Type,
	}

	if s.Type == "" {
		s.Type = "int"
	}

	s.Params, err = vars(d.Params)
	if err != nil {
		return nil, errors.Wrap(err, "params")
	}

	s.Locals, err = vars(d.Locals)
	if err != nil {
		return nil, errors.Wrap(err, "locals")
	}

	return s, nil
}

func vars(ds []VarDecl) (r []sym.Var, err error) {
	for _, d := range ds {
		v, err := d.sym()
		if err != nil {
			return nil, err
		}

		r = append(r, v)
	}

	return r, nil
}
