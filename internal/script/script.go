// Package script loads YAML automation scripts and replays them as command
// sequences against a device.
package script

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidScript = errors.New("script: invalid script")

// Script is an ordered list of device commands.
type Script struct {
	Name string `yaml:"name"`
	// Wait and Interval bound every polled step unless the step overrides them.
	Wait     time.Duration `yaml:"wait"`
	Interval time.Duration `yaml:"interval"`
	Steps    []Step        `yaml:"steps"`
}

type Step struct {
	Command string `yaml:"command"`
	Args    []any  `yaml:"args"`
	// UntilNot polls the command until its response differs from this value.
	UntilNot *string `yaml:"until_not"`
	// Required fails the run when UntilNot polling times out.
	Required bool `yaml:"required"`
	// Expect fails the run unless the response equals this value.
	Expect *string `yaml:"expect"`
	// Save binds the response for ${name} substitution in later args.
	Save string        `yaml:"save"`
	Wait time.Duration `yaml:"wait"`
}

// Load reads and validates a script file.
func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	s, err := Parse(data)
	if err != nil {
		return Script{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a script document.
func Parse(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("%w: %v", ErrInvalidScript, err)
	}
	if err := s.Validate(); err != nil {
		return Script{}, err
	}
	return s, nil
}

func (s Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScript)
	}
	if s.Wait < 0 || s.Interval < 0 {
		return fmt.Errorf("%w: negative wait", ErrInvalidScript)
	}
	saved := make(map[string]bool)
	for i, step := range s.Steps {
		if strings.TrimSpace(step.Command) == "" {
			return fmt.Errorf("%w: step %d has no command", ErrInvalidScript, i)
		}
		if step.Required && step.UntilNot == nil {
			return fmt.Errorf("%w: step %d is required but has no until_not", ErrInvalidScript, i)
		}
		for _, ref := range refs(step.Args) {
			if !saved[ref] {
				return fmt.Errorf("%w: step %d uses ${%s} before it is saved", ErrInvalidScript, i, ref)
			}
		}
		if step.Save != "" {
			saved[step.Save] = true
		}
	}
	return nil
}
