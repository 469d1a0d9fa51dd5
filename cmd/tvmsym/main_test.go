package main

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestRunCommand_Args(t *testing.T) {
	for _, tt := range []struct {
		name string
		args []string
		err  string
	}{
		{"NoContract", []string{"run"}, "contract required"},
		{"TooManyContracts", []string{"run", "a.yaml", "b.yaml"}, "too many contracts specified"},
		{"Format", []string{"run", "--format", "xml", "a.yaml"}, `invalid format: "xml"`},
		{"DumpNoContract", []string{"dump"}, "contract required"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			app := &cli.App{
				Name:      "tvmsym",
				Writer:    io.Discard,
				ErrWriter: io.Discard,
				Commands: []*cli.Command{
					NewRunCommand().Command(),
					NewDumpCommand().Command(),
				},
			}
			err := app.Run(append([]string{"tvmsym"}, tt.args...))
			require.EqualError(t, err, tt.err)
		})
	}
}
