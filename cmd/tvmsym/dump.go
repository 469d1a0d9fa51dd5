package main

import (
	"fmt"
	"io"
	"os"

	"github.com/benbjohnson/tvmsym"
	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"
)

// DumpCommand represents a command for printing a decoded contract.
type DumpCommand struct{}

// NewDumpCommand returns a new instance of DumpCommand.
func NewDumpCommand() *DumpCommand {
	return &DumpCommand{}
}

// Command returns the cli definition of the command.
func (cmd *DumpCommand) Command() *cli.Command {
	return &cli.Command{
		Name:      "dump",
		Usage:     "print the instruction listing of a contract",
		ArgsUsage: "CONTRACT",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "spew", Usage: "dump the decoded data structures"},
		},
		Action: cmd.Run,
	}
}

// Run executes the "dump" subcommand.
func (cmd *DumpCommand) Run(c *cli.Context) error {
	path, err := contractArg(c)
	if err != nil {
		return err
	}
	contract, err := readContract(path)
	if err != nil {
		return err
	}

	if c.Bool("spew") {
		cfg := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
		cfg.Fdump(os.Stdout, contract)
		return nil
	}
	writeListing(os.Stdout, contract)
	return nil
}

func writeListing(w io.Writer, contract *tvmsym.Contract) {
	for i, block := range contract.Blocks {
		if block.Kind == tvmsym.BlockMethod {
			fmt.Fprintf(w, "block %d: method %d\n", i, block.MethodID)
		} else {
			fmt.Fprintf(w, "block %d: lambda\n", i)
		}
		for j, instr := range block.Instrs {
			fmt.Fprintf(w, "  %4d  %s\n", j, instr)
		}
	}
}
