package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"pysel/internal/distribution"
	"pysel/internal/shellenv"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the configuration and returns every finding.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateLog()...)
	results = append(results, c.validateProbe()...)
	results = append(results, c.validateDefaults()...)
	results = append(results, c.validateShell()...)
	results = append(results, c.validateRegistryFiles()...)
	return results
}

// Err folds error-level findings into one error.
func Err(results []ValidationResult) error {
	var msgs []string
	for _, r := range results {
		if r.Level == "error" {
			msgs = append(msgs, r.Message)
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func (c Config) validateLog() []ValidationResult {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level),
		}}
	}
	return nil
}

func (c Config) validateProbe() []ValidationResult {
	if c.Probe.Timeout < 0 {
		return []ValidationResult{{Level: "error", Message: "probe.timeout must not be negative"}}
	}
	return nil
}

func (c Config) validateDefaults() []ValidationResult {
	var results []ValidationResult
	if _, err := distribution.ParseWidth(fmt.Sprint(c.Defaults.Bits)); err != nil {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("defaults.bits %d must be 0, 32 or 64", c.Defaults.Bits),
		})
	}
	if _, err := distribution.ParseScope(c.Defaults.Scope); err != nil {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("defaults.scope %q must be empty, user or machine", c.Defaults.Scope),
		})
	}
	return results
}

func (c Config) validateShell() []ValidationResult {
	if c.Shell == "" {
		return nil
	}
	if _, err := shellenv.ParseShell(c.Shell); err != nil {
		return []ValidationResult{{Level: "error", Message: err.Error()}}
	}
	return nil
}

func (c Config) validateRegistryFiles() []ValidationResult {
	var results []ValidationResult
	for _, path := range c.Discovery.RegistryFiles {
		if _, err := os.Stat(path); err != nil {
			results = append(results, ValidationResult{
				Level:   "warning",
				Message: fmt.Sprintf("registry file %q not found", path),
			})
		}
	}
	return results
}
