// Command cesil is a small demonstration CLI over the cesil package,
// dumping or validating delimited files without any compiled-in row type.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/midbel/cli"

	"github.com/oleg578/cesil"
)

func main() {
	var (
		set  = cli.NewFlagSet("cesil")
		root = prepare()
	)
	if err := set.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			root.Help()
			os.Exit(2)
		}
	}
	if err := root.Execute(set.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func prepare() *cli.CommandTrie {
	root := cli.New()
	root.Register([]string{"cat"}, &catCmd)
	root.Register([]string{"validate"}, &validateCmd)
	return root
}

var catCmd = cli.Command{
	Name:    "cat",
	Summary: "print every field of every row in a delimited file",
	Usage:   "cat [-d delimiter] [-no-header] <file>",
	Handler: &CatCommand{},
}

var validateCmd = cli.Command{
	Name:    "validate",
	Summary: "read a delimited file end to end, reporting the first error",
	Usage:   "validate [-d delimiter] <file>",
	Handler: &ValidateCommand{},
}

func buildOptions(delimiter string, noHeader bool) (*cesil.Options, error) {
	b := cesil.NewBuilder().WithEscape('"')
	if delimiter != "" {
		r := []rune(delimiter)
		if len(r) != 1 {
			return nil, fmt.Errorf("delimiter must be exactly one character, got %q", delimiter)
		}
		b = b.WithValueSeparator(r[0])
	}
	if noHeader {
		b = b.WithReadHeader(cesil.ReadHeaderNever)
	}
	return b.Build()
}

type CatCommand struct {
	Delimiter string
	NoHeader  bool
}

func (c CatCommand) Run(args []string) error {
	set := cli.NewFlagSet("cat")
	set.StringVar(&c.Delimiter, "d", "", "field delimiter (default comma)")
	set.BoolVar(&c.NoHeader, "no-header", false, "treat the first record as data, not a header")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() < 1 {
		return fmt.Errorf("cat: missing file argument")
	}

	opts, err := buildOptions(c.Delimiter, c.NoHeader)
	if err != nil {
		return err
	}

	f, err := os.Open(set.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	rd := cesil.NewDynamicReader(f, opts)
	defer rd.Dispose()

	count := 0
	for {
		row, ok, err := rd.TryRead()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		count++
		for i := 0; i < row.Len(); i++ {
			name, text, _ := row.At(i)
			if i > 0 {
				fmt.Fprint(os.Stdout, "\t")
			}
			fmt.Fprintf(os.Stdout, "%s=%s", name, text)
		}
		fmt.Fprintln(os.Stdout)
	}
	fmt.Fprintf(os.Stderr, "cat: %d row(s)\n", count)
	return nil
}

type ValidateCommand struct {
	Delimiter string
}

func (c ValidateCommand) Run(args []string) error {
	set := cli.NewFlagSet("validate")
	set.StringVar(&c.Delimiter, "d", "", "field delimiter (default comma)")
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() < 1 {
		return fmt.Errorf("validate: missing file argument")
	}

	opts, err := buildOptions(c.Delimiter, false)
	if err != nil {
		return err
	}

	f, err := os.Open(set.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	rd := cesil.NewDynamicReader(f, opts)
	defer rd.Dispose()

	rows := 0
	for {
		_, ok, err := rd.TryRead()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "validate: invalid at row %d: %v\n", rows+1, err)
			return err
		}
		if !ok {
			break
		}
		rows++
	}
	fmt.Fprintf(os.Stderr, "validate: ok, %d row(s)\n", rows)
	return nil
}
