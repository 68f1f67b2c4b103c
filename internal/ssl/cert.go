package ssl

import (
	"fmt"
	"os"

	"github.com/ksyq12/certnginx/internal/errors"
)

// ValidateCertPaths checks the certificate material before any
// configuration is touched. nginx needs the full chain in
// ssl_certificate; a bare leaf certificate breaks clients that do not
// fetch intermediates, so deployment refuses to start without it.
func ValidateCertPaths(fullchainPath, keyPath string) error {
	if fullchainPath == "" {
		return errors.Validation("a fullchain certificate path is required")
	}
	if keyPath == "" {
		return errors.Validation("a private key path is required")
	}

	for _, path := range []string{fullchainPath, keyPath} {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return errors.Validation(fmt.Sprintf("%s does not exist", path))
			}
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			return errors.Validation(fmt.Sprintf("%s is a directory", path))
		}
	}
	return nil
}
