package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/testfabric/suite-worker/metrics"
	"github.com/testfabric/suite-worker/worker"
)

func main() {
	app := &cli.App{
		Name:        "suite-worker",
		Usage:       "suite worker protocol demo harness",
		Description: "Runs the sample suite through the worker protocol, either in-process or by spawning a worker subprocess over stdio.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:   "worker",
				Usage:  "run as a worker over stdin/stdout (used by --spawn)",
				Hidden: true,
			},
			&cli.BoolFlag{
				Name:  "spawn",
				Usage: "spawn the worker as a subprocess instead of running it in-process",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to a YAML options file",
			},
			&cli.StringFlag{
				Name:  "metrics",
				Usage: "address to serve prometheus metrics on (e.g. ':9090')",
			},
			&cli.BoolFlag{
				Name:  "forward-output",
				Usage: "echo forwarded test output on the worker's own console",
			},
			&cli.StringSliceFlag{
				Name:  "run",
				Usage: "regex pattern(s) to select tests to run",
			},
			&cli.StringSliceFlag{
				Name:  "skip",
				Usage: "regex pattern(s) to select tests not to run",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging of the protocol exchange",
			},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	params, err := readParams(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if params.settings.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(params.settings.MetricsAddr); err != nil {
				fmt.Fprintf(os.Stderr, "Metrics listener failed: %s\n", err)
			}
		}()
	}

	if params.workerMode {
		return runWorker(params)
	}
	return runHarness(params)
}

func runWorker(params commandParams) error {
	// Stdout carries the protocol, so local echo and logging go to stderr.
	opts := worker.Options{
		ForwardOutput:  params.settings.ForwardOutput,
		DefaultTimeout: params.settings.DefaultTimeout,
		AmbientOutput:  os.Stderr,
		Logger:         params.workerLogger,
	}
	conn := newStdioConn()
	if err := worker.Serve(conn, sampleSuite, opts); err != nil {
		return cli.Exit(fmt.Sprintf("Worker failed: %s", err), 2)
	}
	return nil
}
