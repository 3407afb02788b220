package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/posener/complete"
	"github.com/willabides/kongplete"

	"github.com/okjarvi/guishell/internal/config"
)

var version = "dev"

type CLI struct {
	Run     RunCmd     `cmd:"" default:"withargs" help:"Run the shell, reading the control protocol from stdin"`
	Verbs   VerbsCmd   `cmd:"" help:"List the verbs the shell understands"`
	Version VersionCmd `cmd:"" help:"Show version"`

	InstallCompletions kongplete.InstallCompletions `cmd:"" help:"Install shell completions"`
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("guishell version %s\n", version)
	return nil
}

func main() {
	cli := CLI{}
	parser := kong.Must(&cli,
		kong.Name("guishell"),
		kong.Description("Minimal GUI shell driven by a line-oriented control protocol"),
		kong.UsageOnError(),
		kong.Vars{"backends": strings.Join(config.ValidBackends, ", ")},
	)
	kongplete.Complete(parser,
		kongplete.WithPredictor("backend", complete.PredictSet(config.ValidBackends...)),
	)

	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := ctx.Run(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
}
