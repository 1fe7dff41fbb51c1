package main

import (
	"sort"
	"time"

	"github.com/testfabric/suite-worker/suite"
)

// sampleSuite is the entry point the demo harness loads into its worker.
func sampleSuite(d *suite.Declarer) {
	d.Printf("Declaring sample suite")

	d.Group("strings", suite.Metadata{Tags: []string{"fast"}}, func() {
		d.SetUpAll(func(t *suite.T) {
			t.Print("strings group warming up")
		})

		d.Test("join and split round-trip", suite.Metadata{}, func(t *suite.T) {
			parts := []string{"a", "b", "c"}
			joined := parts[0] + "/" + parts[1] + "/" + parts[2]
			if joined != "a/b/c" {
				t.Fatalf("unexpected join result %q", joined)
			}
		})

		d.Group("sorting", suite.Metadata{Timeout: 5 * time.Second}, func() {
			d.Test("sorts in place", suite.Metadata{}, func(t *suite.T) {
				values := []string{"pear", "apple", "orange"}
				sort.Strings(values)
				if values[0] != "apple" {
					t.Errorf("expected apple first, got %q", values[0])
				}
				t.Printf("sorted: %v", values)
			})
		})
	})

	d.Test("network round-trip", suite.Metadata{Skip: true, SkipReason: "needs external connectivity"}, func(t *suite.T) {
		t.Fatalf("should never run")
	})
}
