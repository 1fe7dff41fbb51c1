package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/urfave/cli/v2"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/testfabric/suite-worker/host"
	"github.com/testfabric/suite-worker/mux"
	"github.com/testfabric/suite-worker/protocol"
	"github.com/testfabric/suite-worker/suite"
	"github.com/testfabric/suite-worker/worker"
)

func newStdioConn() mux.Conn {
	return mux.NewLineConn(os.Stdin, os.Stdout, nil)
}

func runHarness(params commandParams) error {
	var conn mux.Conn
	var spawned *exec.Cmd

	if params.spawn {
		cmd, spawnedConn, err := spawnWorker(params)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Could not spawn worker: %s", err), 2)
		}
		conn = spawnedConn
		spawned = cmd
	} else {
		workerConn, hostConn := mux.Pipe()
		opts := worker.Options{
			ForwardOutput:  params.settings.ForwardOutput,
			DefaultTimeout: params.settings.DefaultTimeout,
			AmbientOutput:  os.Stderr,
			Logger:         params.workerLogger,
		}
		go func() {
			if err := worker.Serve(workerConn, sampleSuite, opts); err != nil {
				fmt.Fprintf(os.Stderr, "Worker failed: %s\n", err)
			}
		}()
		conn = hostConn
	}

	ctrl := host.Connect(conn, params.hostLogger)

	discovery, err := ctrl.Start(protocol.InitialConfig{
		Metadata: suite.Metadata{}.Serialize(),
		Platform: suite.PlatformVM.Name,
		OS:       ldvalue.NewOptionalString(suite.CurrentOS().Name),
	})
	if err != nil {
		_ = ctrl.Close()
		return cli.Exit(fmt.Sprintf("Suite failed to load: %s", err), 1)
	}

	for _, line := range discovery.Prints {
		fmt.Printf("  LOAD OUTPUT: %s\n", line)
	}
	fmt.Println()
	renderTree(discovery.Root)
	fmt.Println()

	failures := 0
	ran := 0
	for _, test := range discovery.Tests() {
		if !params.filters.Match(test.Path) {
			printTestSkipped(test.Path, "excluded by filter parameters")
			continue
		}
		obs, err := ctrl.RunTest(test.Node)
		if err != nil {
			_ = ctrl.Close()
			return cli.Exit(fmt.Sprintf("Run of %q failed: %s", test.Path, err), 2)
		}
		ran++
		printTestResult(test.Path, obs, params.debug)
		if obs.FinalResult() != string(suite.ResultSuccess) {
			failures++
		}
	}

	_ = ctrl.Close()
	if spawned != nil {
		_ = spawned.Wait()
	}

	fmt.Println()
	printSummary(ran, failures)
	if failures > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// spawnWorker launches this same binary as a worker subprocess, connected
// over its stdin/stdout.
func spawnWorker(params commandParams) (*exec.Cmd, mux.Conn, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, nil, err
	}
	args := params.workerArgs()

	var b commandBuilder
	b.add(exe)
	b.add(args...)
	fmt.Printf("Spawning worker: %s\n", b)

	cmd := exec.Command(exe, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return cmd, mux.NewLineConn(stdout, stdin, stdin), nil
}
