package main

import (
	"log"
	"os"
	"strings"

	"github.com/alessio/shellescape"
	"github.com/urfave/cli/v2"

	"github.com/testfabric/suite-worker/logging"
	"github.com/testfabric/suite-worker/worker"
)

type commandParams struct {
	workerMode   bool
	spawn        bool
	settings     worker.FileSettings
	filters      RegexFilters
	debug        bool
	workerLogger logging.Logger
	hostLogger   logging.Logger
}

func readParams(c *cli.Context) (commandParams, error) {
	params := commandParams{
		workerMode: c.Bool("worker"),
		spawn:      c.Bool("spawn"),
		debug:      c.Bool("debug"),
	}

	if path := c.String("config"); path != "" {
		settings, err := worker.LoadSettingsFile(path)
		if err != nil {
			return commandParams{}, err
		}
		params.settings = settings
	}
	if c.Bool("forward-output") {
		params.settings.ForwardOutput = true
	}
	if addr := c.String("metrics"); addr != "" {
		params.settings.MetricsAddr = addr
	}

	if err := params.filters.MustMatch.SetAll(c.StringSlice("run")); err != nil {
		return commandParams{}, err
	}
	if err := params.filters.MustNotMatch.SetAll(c.StringSlice("skip")); err != nil {
		return commandParams{}, err
	}

	params.workerLogger = logging.NullLogger()
	params.hostLogger = logging.NullLogger()
	if params.debug {
		params.workerLogger = log.New(os.Stderr, "worker: ", log.LstdFlags)
		params.hostLogger = log.New(os.Stderr, "host: ", log.LstdFlags)
	}
	return params, nil
}

// workerArgs are the flags passed through to a spawned worker subprocess.
func (p commandParams) workerArgs() []string {
	args := []string{"--worker"}
	if p.settings.ForwardOutput {
		args = append(args, "--forward-output")
	}
	if p.debug {
		args = append(args, "--debug")
	}
	return args
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
