package worker

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/testfabric/suite-worker/logging"
)

// Options configures one worker instance. The zero value is usable: output
// forwarding off, no default timeout, debug logging disabled.
type Options struct {
	// ForwardOutput echoes captured and relayed output to the worker's own
	// ambient sink in addition to sending it to the host.
	ForwardOutput bool

	// DefaultTimeout applies to the suite's root metadata when the host's
	// configuration does not set one. Zero means no limit.
	DefaultTimeout time.Duration

	// AmbientOutput is where locally echoed output goes; nil means stdout.
	// Workers whose transport runs over stdout must point this at stderr.
	AmbientOutput io.Writer

	// Logger receives protocol-level debug output.
	Logger logging.Logger
}

type optionsFile struct {
	ForwardOutput  bool   `yaml:"forwardOutput"`
	DefaultTimeout string `yaml:"defaultTimeout"`
	MetricsAddr    string `yaml:"metricsAddr"`
}

// FileSettings are the worker settings that can come from a YAML options
// file rather than from flags.
type FileSettings struct {
	ForwardOutput  bool
	DefaultTimeout time.Duration
	MetricsAddr    string
}

// LoadSettingsFile reads a YAML options file, e.g.:
//
//	forwardOutput: true
//	defaultTimeout: 30s
//	metricsAddr: ":9090"
func LoadSettingsFile(path string) (FileSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileSettings{}, err
	}
	var raw optionsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return FileSettings{}, fmt.Errorf("malformed options file %s: %w", path, err)
	}
	settings := FileSettings{
		ForwardOutput: raw.ForwardOutput,
		MetricsAddr:   raw.MetricsAddr,
	}
	if raw.DefaultTimeout != "" {
		d, err := time.ParseDuration(raw.DefaultTimeout)
		if err != nil {
			return FileSettings{}, fmt.Errorf("invalid defaultTimeout in %s: %w", path, err)
		}
		settings.DefaultTimeout = d
	}
	return settings, nil
}
