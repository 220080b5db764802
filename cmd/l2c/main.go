package main

import (
	"context"
	"os"

	"github.com/xyproto/env/v2"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/l2c/compiler"
	"github.com/slowlang/l2c/compiler/l2"
)

func main() {
	parseCmd := &cli.Command{
		Name:   "parse",
		Action: parseAct,
		Args:   cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:   "compile",
		Action: compileAct,
		Args:   cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", env.Str("L2C_OUTPUT", "prog.L1"), "output file, - for stdout"),
		},
	}

	app := &cli.Command{
		Name:        "l2c",
		Description: "l2c allocates registers for L2 programs and prints them as L1",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbose,v", env.Str("L2C_VERBOSE"), "verbose log topics: coloring, spill, liveness, dump_graph, ..."),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			parseCmd,
			compileCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	if v := c.String("verbose"); v != "" {
		tlog.SetVerbosity(v)
	}

	return nil
}

func parseAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		p, err := l2.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		_, err = os.Stdout.Write(l2.AppendProgram(nil, p))
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) != 1 {
		return errors.New("want exactly one source file, got %d", len(c.Args))
	}

	a := c.Args[0]

	obj, err := compiler.CompileFile(ctx, a)
	if err != nil {
		return errors.Wrap(err, "compile %v", a)
	}

	out := c.String("output")

	if out == "-" {
		_, err = os.Stdout.Write(obj)
	} else {
		err = os.WriteFile(out, obj, 0o644)
	}
	if err != nil {
		return errors.Wrap(err, "write %v", out)
	}

	tlog.Printw("compiled", "src", a, "out", out, "size", len(obj))

	return nil
}
