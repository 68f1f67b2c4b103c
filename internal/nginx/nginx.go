package nginx

import (
	"fmt"
	"strings"

	"github.com/ksyq12/certnginx/internal/errors"
	"github.com/ksyq12/certnginx/internal/executor"
	"github.com/ksyq12/certnginx/internal/logger"
)

// Manager drives the nginx binary: version probing, config validation
// and process control.
type Manager struct {
	binary string
	exec   executor.CommandExecutor
}

// New creates a Manager for the given nginx binary path.
func New(binary string, exec executor.CommandExecutor) *Manager {
	return &Manager{binary: binary, exec: exec}
}

// Binary returns the managed nginx binary path.
func (m *Manager) Binary() string {
	return m.binary
}

// Version probes the running binary with nginx -V. nginx prints the
// banner and build configuration to stderr.
func (m *Manager) Version() (*Version, error) {
	_, stderr, err := m.exec.ExecuteSplit(m.binary, "-V")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMisconfig,
			fmt.Sprintf("unable to run %s -V", m.binary), err)
	}

	v, err := ParseVersionOutput(string(stderr))
	if err != nil {
		return nil, err
	}
	logger.Debug("detected nginx %s (sni=%v ssl=%v)", v, v.SNI, v.SSLModule)
	return v, nil
}

// ConfigTest asks nginx to validate the configuration rooted at
// rootFile without applying it.
func (m *Manager) ConfigTest(rootFile string) error {
	output, err := m.exec.Execute(m.binary, "-c", rootFile, "-t")
	if err != nil {
		return errors.Wrap(errors.ErrCodeValidation,
			strings.TrimSpace(string(output)), err)
	}
	return nil
}

// Reload applies configuration changes to the running server. The
// service manager is tried first, then nginx's own signal interface.
func (m *Manager) Reload() error {
	output, err := m.exec.Execute("systemctl", "reload", "nginx")
	if err != nil {
		logger.Debug("systemctl reload failed, falling back to %s -s reload", m.binary)
		output, err = m.exec.Execute(m.binary, "-s", "reload")
		if err != nil {
			return fmt.Errorf("failed to reload nginx: %s", strings.TrimSpace(string(output)))
		}
	}
	return nil
}

// Restart restarts the server, for changes a reload cannot apply.
func (m *Manager) Restart() error {
	output, err := m.exec.Execute("systemctl", "restart", "nginx")
	if err != nil {
		return fmt.Errorf("failed to restart nginx: %s", strings.TrimSpace(string(output)))
	}
	return nil
}
