package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/testfabric/suite-worker/host"
	"github.com/testfabric/suite-worker/protocol"
	"github.com/testfabric/suite-worker/suite"
)

var (
	passedColor  = color.New(color.FgGreen)
	failedColor  = color.New(color.FgRed)
	skippedColor = color.New(color.FgYellow)
)

// renderTree prints the discovered suite tree as a table, one row per
// runnable test node.
func renderTree(root *protocol.TreeNode) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Discovered suite")
	t.AppendHeader(table.Row{"PATH", "CHANNEL", "TIMEOUT", "TAGS", "SKIP"})

	discovery := host.Discovery{Root: root}
	for _, test := range discovery.Tests() {
		metadata := suite.DeserializeMetadata(test.Node.Metadata)
		timeout := ""
		if metadata.Timeout > 0 {
			timeout = metadata.Timeout.String()
		}
		skip := ""
		if metadata.Skip {
			skip = "yes"
			if metadata.SkipReason != "" {
				skip = metadata.SkipReason
			}
		}
		t.AppendRow(table.Row{
			test.Path,
			test.Node.Channel,
			timeout,
			strings.Join(metadata.Tags, ","),
			skip,
		})
	}

	t.SetStyle(table.StyleLight)
	t.Render()
}

func printTestResult(path string, obs host.Observation, debug bool) {
	skipped := false
	for _, msg := range obs.Messages {
		if msg.MessageType == string(suite.MessageSkip) {
			skipped = true
			if msg.Text != "" {
				printTestSkipped(path, msg.Text)
			} else {
				printTestSkipped(path, "")
			}
		}
	}
	if skipped {
		return
	}

	if obs.FinalResult() == string(suite.ResultSuccess) {
		passedColor.Printf("  PASSED: %s\n", path)
	} else {
		failedColor.Printf("  FAILED: %s\n", path)
		for _, record := range obs.Errors {
			for _, line := range strings.Split(record.Description, "\n") {
				fmt.Printf("    %s\n", line)
			}
			if debug && record.StackTrace != "" {
				for _, line := range strings.Split(strings.TrimRight(record.StackTrace, "\n"), "\n") {
					fmt.Printf("      %s\n", line)
				}
			}
		}
	}
	if debug {
		for _, msg := range obs.Messages {
			fmt.Printf("    OUTPUT: %s\n", msg.Text)
		}
	}
}

func printTestSkipped(path, reason string) {
	if reason == "" {
		skippedColor.Printf("  SKIPPED: %s\n", path)
	} else {
		skippedColor.Printf("  SKIPPED: %s (%s)\n", path, reason)
	}
}

func printSummary(ran, failures int) {
	if failures == 0 {
		passedColor.Printf("All %d tests passed\n", ran)
	} else {
		failedColor.Printf("%d of %d tests failed\n", failures, ran)
	}
}
