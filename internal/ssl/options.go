package ssl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ksyq12/certnginx/internal/logger"
	"github.com/ksyq12/certnginx/internal/template"
)

// OptionsFilename is the name of the shared ssl options file installed
// into the work directory and referenced by deployed server blocks.
const OptionsFilename = "options-ssl-nginx.conf"

// previousDigests holds sha256 sums of option payloads shipped by
// earlier releases. A file matching one of these is an unmodified old
// install and safe to refresh in place. Grows by one entry whenever
// the bundled payload changes.
var previousDigests = map[string]bool{}

// InstallOptions makes sure the shared ssl options file exists in
// workDir and is current, returning its path. A file the operator has
// edited by hand is left alone with a warning, since overwriting it
// would silently drop their tls policy.
func InstallOptions(workDir string) (string, error) {
	path := filepath.Join(workDir, OptionsFilename)
	payload := template.OptionsSSL()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := writeOptions(path, payload); err != nil {
			return "", err
		}
		logger.Debug("installed %s", path)
		return path, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	current := digest(data)
	switch {
	case current == digest(payload):
		// Already up to date.
	case previousDigests[current]:
		if err := writeOptions(path, payload); err != nil {
			return "", err
		}
		logger.Info("refreshed %s to the current payload", path)
	default:
		logger.Warn("%s was modified by hand and will not be updated", path)
	}
	return path, nil
}

func writeOptions(path string, payload []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
