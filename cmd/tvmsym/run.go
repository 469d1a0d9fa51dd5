package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/benbjohnson/tvmsym"
	"github.com/benbjohnson/tvmsym/z3"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// Output formats of the "run" command.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatCBOR  = "cbor"
)

// RunCommand represents a command for exploring contract methods.
type RunCommand struct{}

// NewRunCommand returns a new instance of RunCommand.
func NewRunCommand() *RunCommand {
	return &RunCommand{}
}

// Command returns the cli definition of the command.
func (cmd *RunCommand) Command() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "explore contract methods & generate test cases",
		ArgsUsage: "CONTRACT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "TOML configuration file"},
			&cli.IntFlag{Name: "method", Usage: "method id to explore (default: all methods)"},
			&cli.StringFlag{Name: "format", Value: FormatTable, Usage: "output format: table, yaml or cbor"},
			&cli.StringFlag{Name: "out", Usage: "output file (default: stdout)"},
			verboseFlag,
		},
		Action: cmd.Run,
	}
}

// Run executes the "run" subcommand.
func (cmd *RunCommand) Run(c *cli.Context) error {
	path, err := contractArg(c)
	if err != nil {
		return err
	}
	format := c.String("format")
	switch format {
	case FormatTable, FormatYAML, FormatCBOR:
	default:
		return errors.Errorf("invalid format: %q", format)
	}

	config := tvmsym.DefaultConfig()
	if filename := c.String("config"); filename != "" {
		if config, err = tvmsym.LoadConfig(filename); err != nil {
			return err
		}
	}

	contract, err := readContract(path)
	if err != nil {
		return errors.Wrapf(err, "contract %s", path)
	}

	x := tvmsym.NewExplorer(contract, func() (tvmsym.Solver, error) {
		s := z3.NewSolver()
		s.Timeout = config.Solver.Timeout.Duration
		return s, nil
	})
	x.Config = config
	x.Logger = newLogger(c)

	var reports []*tvmsym.Report
	if c.IsSet("method") {
		report, err := x.Explore(c.Context, c.Int("method"), nil)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	} else if reports, err = x.ExploreAll(c.Context); err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if filename := c.String("out"); filename != "" {
		f, err := os.Create(filename)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
		color.NoColor = true
	}

	switch format {
	case FormatYAML, FormatCBOR:
		return writeTests(w, format, reports)
	default:
		writeReports(w, reports)
		return nil
	}
}

func writeTests(w io.Writer, format string, reports []*tvmsym.Report) error {
	var recs []*tvmsym.TestRecord
	for _, report := range reports {
		recs = append(recs, report.Tests...)
	}

	var buf []byte
	var err error
	if format == FormatYAML {
		buf, err = tvmsym.MarshalTestsYAML(recs)
	} else {
		buf, err = tvmsym.MarshalTestsCBOR(recs)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// writeReports prints one table of test cases per method followed by a
// summary of the exploration.
func writeReports(w io.Writer, reports []*tvmsym.Report) {
	for _, report := range reports {
		fmt.Fprintf(w, "method %d\n", report.MethodID)

		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Test", "Status", "Exit", "Location", "Gas", "Inputs", "Outputs"})
		for _, rec := range report.Tests {
			row := []string{rec.ID.String()[:8], statusString(rec.Status), "", "", strconv.FormatInt(rec.GasUsed, 10), formatValues(rec.Inputs), formatValues(rec.Outputs)}
			if rec.Failed() {
				row[2] = fmt.Sprintf("%d (%s)", rec.ExitCode, rec.Rule)
				row[3] = rec.Loc.String()
			}
			table.Append(row)
		}
		covered, total := report.Coverage.Count()
		table.SetFooter([]string{"", "", "", "", "", "Coverage", fmt.Sprintf("%d/%d (%.1f%%)", covered, total, 100*report.Coverage.Ratio())})
		table.Render()

		fmt.Fprintf(w, "%d steps, %s %d, %s %d, %s %d, %s %d, solver cache %d/%d",
			report.Steps,
			statusString(tvmsym.ExecutionStatusSucceeded), report.Count(tvmsym.ExecutionStatusSucceeded),
			statusString(tvmsym.ExecutionStatusFailed), report.Count(tvmsym.ExecutionStatusFailed),
			statusString(tvmsym.ExecutionStatusUnreachable), report.Count(tvmsym.ExecutionStatusUnreachable),
			statusString(tvmsym.ExecutionStatusAborted), report.Count(tvmsym.ExecutionStatusAborted),
			report.SolverHits, report.SolverHits+report.SolverMisses,
		)
		if report.Aborted {
			fmt.Fprint(w, color.YellowString(" (budget exhausted)"))
		}
		fmt.Fprint(w, "\n\n")
	}
}

func statusString(status tvmsym.ExecutionStatus) string {
	switch status {
	case tvmsym.ExecutionStatusSucceeded:
		return color.GreenString(string(status))
	case tvmsym.ExecutionStatusFailed:
		return color.RedString(string(status))
	case tvmsym.ExecutionStatusAborted:
		return color.YellowString(string(status))
	default:
		return string(status)
	}
}

// formatValues returns values top last. Slices holding a std address are
// printed as the address.
func formatValues(a []tvmsym.TestValue) string {
	other := make([]string, len(a))
	for i, v := range a {
		if s, ok := v.(*tvmsym.TestSlice); ok {
			if addr, err := s.StdAddress(); err == nil {
				other[i] = addr.String()
				continue
			}
		}
		other[i] = v.String()
	}
	return strings.Join(other, " ")
}
