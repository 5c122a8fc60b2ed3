package main

import (
	"context"
	"os"

	"github.com/segmentio/encoding/json"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/tacc/compiler"
	"github.com/slowlang/tacc/compiler/back"
	"github.com/slowlang/tacc/compiler/format"
)

func main() {
	optFlags := []*cli.Flag{
		cli.NewFlag("config,c", "", "options file (toml)"),
		cli.NewFlag("entry", "", "program entry function"),
		cli.NewFlag("flush-each", false, "write back after every instruction"),
		cli.NewFlag("assume-leaf", false, "plan every function as a leaf"),
		cli.NewFlag("delay-slots", false, "fill branch and load delay slots with nops"),
		cli.NewFlag("lax", false, "report unresolved references as warnings"),
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "generate assembly listing",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags:       optFlags,
	}

	framesCmd := &cli.Command{
		Name:        "frames",
		Description: "print planned stack frames",
		Action:      framesAct,
		Args:        cli.Args{},
		Flags: append(optFlags[:len(optFlags):len(optFlags)],
			cli.NewFlag("json", false, "print json"),
		),
	}

	dumpCmd := &cli.Command{
		Name:        "dump",
		Description: "print numbered three-address code",
		Action:      dumpAct,
		Args:        cli.Args{},
	}

	app := &cli.Command{
		Name:        "tacc",
		Description: "tacc translates three-address code into assembly",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "tlog verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			compileCmd,
			framesCmd,
			dumpCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func options(c *cli.Command) (opts back.Options, err error) {
	opts = back.DefaultOptions()

	if f := c.String("config"); f != "" {
		opts, err = compiler.LoadOptions(f, opts)
		if err != nil {
			return opts, errors.Wrap(err, "load options")
		}
	}

	if e := c.String("entry"); e != "" {
		opts.Entry = e
	}

	if c.Bool("flush-each") {
		opts.FlushEachInstr = true
	}

	if c.Bool("assume-leaf") {
		opts.AssumeLeaf = true
	}

	if c.Bool("delay-slots") {
		opts.DelaySlots = true
	}

	if c.Bool("lax") {
		opts.Strict = false
	}

	return opts, nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	opts, err := options(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		l, err := compiler.CompileFile(ctx, a, opts)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		if l.Warnings != nil {
			tlog.Printw("warnings", "file", a, "err", l.Warnings)
		}

		_, err = os.Stdout.Write(l.Text())
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func framesAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	opts, err := options(c)
	if err != nil {
		return err
	}

	for _, a := range c.Args {
		p, err := compiler.LoadUnit(ctx, a)
		if err != nil {
			return errors.Wrap(err, "load %v", a)
		}

		fs, err := compiler.Frames(ctx, p, opts)
		if err != nil {
			return errors.Wrap(err, "frames %v", a)
		}

		var b []byte

		if c.Bool("json") {
			b, err = json.MarshalIndent(fs, "", "  ")
			if err != nil {
				return errors.Wrap(err, "encode")
			}

			b = append(b, '\n')
		} else {
			b = format.Frames(nil, fs)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func dumpAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		p, err := compiler.LoadUnit(ctx, a)
		if err != nil {
			return errors.Wrap(err, "load %v", a)
		}

		_, err = os.Stdout.Write(format.Code(nil, p.Code))
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}
