package cli

import (
	"fmt"

	"github.com/ksyq12/certnginx/internal/config"
	"github.com/ksyq12/certnginx/internal/executor"
	"github.com/ksyq12/certnginx/internal/input"
	"github.com/ksyq12/certnginx/internal/output"
	"github.com/ksyq12/certnginx/internal/session"
	"github.com/ksyq12/certnginx/internal/vhost"
)

// loadConfig loads the app config, honoring the --config override.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// sessionFactory builds and prepares the Configurator commands run
// against (overridable for testing).
var sessionFactory = func() (*session.Configurator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	c := session.New(cfg, executor.NewSystemExecutor(), interactiveSelector(input.NewStdinReader()))
	if err := c.Prepare(); err != nil {
		return nil, err
	}
	return c, nil
}

// newSession builds and prepares a Configurator with the system
// executor and an interactive wildcard selector. The caller must
// Close it.
func newSession() (*session.Configurator, error) {
	return sessionFactory()
}

// interactiveSelector prompts the operator to choose among several
// server blocks, for wildcard requests and ambiguous name ties alike.
// An empty answer or a read failure declines the whole selection.
func interactiveSelector(r input.Reader) vhost.Selector {
	return func(candidates []*vhost.VirtualHost) []*vhost.VirtualHost {
		items := make([]string, len(candidates))
		for i, v := range candidates {
			items[i] = v.String()
		}

		output.Info("Several server blocks match:")
		output.Numbered(items)
		output.Print("Select blocks (e.g. 1,3 or all; empty to cancel): ")

		indexes, err := input.Selection(r, len(candidates))
		if err != nil {
			output.Warn("Invalid selection: %v", err)
			return nil
		}

		chosen := make([]*vhost.VirtualHost, 0, len(indexes))
		for _, i := range indexes {
			chosen = append(chosen, candidates[i])
		}
		return chosen
	}
}

// CommandResult represents a common result structure for CLI commands
type CommandResult struct {
	Success bool   `json:"success"`
	Domain  string `json:"domain,omitempty"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message,omitempty"`
}

// outputResult handles JSON or human-readable output
func outputResult(data interface{}, successMsg string, args ...interface{}) error {
	if jsonOutput {
		return output.JSON(data)
	}
	output.Success(successMsg, args...)
	return nil
}

// validateDomain checks if domain is plausible enough to look up
func validateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain cannot be empty")
	}
	for _, r := range domain {
		if r == ' ' || r == '\t' {
			return fmt.Errorf("domain cannot contain spaces")
		}
	}
	return nil
}
