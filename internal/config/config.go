package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultName is the settings file looked up in the working directory
// when no explicit --config path is given.
const DefaultName = "testbuilder.yml"

// Config models testbuilder.yml. Every field is required; the tool
// refuses to start with an incomplete configuration.
type Config struct {
	// Spin2Test is the test generator executable invoked per trail.
	Spin2Test string `yaml:"spin2test"`
	// RTEMS is the root of the target source tree that receives the
	// generated tests and hosts the build tool.
	RTEMS string `yaml:"rtems"`
	// RSB is the directory the simulator is launched from.
	RSB string `yaml:"rsb"`
	// Simulator is the command that runs the compiled test executable.
	Simulator string `yaml:"simulator"`
	// TestYAML is the path of the build manifest.
	TestYAML string `yaml:"testyaml"`
	// TestCode is the directory inside the target tree that holds the
	// generated test sources.
	TestCode string `yaml:"testcode"`
	// TestExe is the compiled test executable handed to the simulator.
	TestExe string `yaml:"testexe"`
}

// Load reads and validates the settings file at path. A missing file and
// a missing field are both fatal startup errors.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("settings file %s not found; create it before running", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates settings from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid settings yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every unset field at once.
func (c *Config) Validate() error {
	var missing []string
	fields := []struct {
		name  string
		value string
	}{
		{"spin2test", c.Spin2Test},
		{"rtems", c.RTEMS},
		{"rsb", c.RSB},
		{"simulator", c.Simulator},
		{"testyaml", c.TestYAML},
		{"testcode", c.TestCode},
		{"testexe", c.TestExe},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("settings incomplete: %s required", strings.Join(missing, ", "))
	}
	return nil
}

// Path returns the default settings file path for a working directory.
func Path(workdir string) string {
	if workdir == "" {
		workdir = "."
	}
	return filepath.Join(workdir, DefaultName)
}
