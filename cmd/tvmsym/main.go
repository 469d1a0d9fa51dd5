package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/benbjohnson/tvmsym"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var verboseFlag = &cli.BoolFlag{
	Name:    "verbose",
	Aliases: []string{"v"},
	Usage:   "enable debug logging",
}

func main() {
	app := &cli.App{
		Name:  "tvmsym",
		Usage: "symbolic execution of TVM contracts",
		Commands: []*cli.Command{
			NewRunCommand().Command(),
			NewDumpCommand().Command(),
		},
	}
	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger returns a logger writing to stderr at the level selected by the
// verbose flag.
func newLogger(c *cli.Context) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	if c.Bool(verboseFlag.Name) {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// readContract decodes a YAML or CBOR contract file, based on its extension.
func readContract(path string) (*tvmsym.Contract, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return tvmsym.UnmarshalContractYAML(buf)
	default:
		return tvmsym.UnmarshalContractCBOR(buf)
	}
}

// contractArg returns the single contract path argument.
func contractArg(c *cli.Context) (string, error) {
	if c.NArg() == 0 {
		return "", errors.New("contract required")
	} else if c.NArg() > 1 {
		return "", errors.New("too many contracts specified")
	}
	return c.Args().First(), nil
}
