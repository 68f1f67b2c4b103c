package ssl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ksyq12/certnginx/internal/errors"
	"github.com/ksyq12/certnginx/internal/template"
)

func TestInstallOptions(t *testing.T) {
	t.Run("FreshInstall", func(t *testing.T) {
		work := t.TempDir()
		path, err := InstallOptions(work)
		if err != nil {
			t.Fatalf("InstallOptions failed: %v", err)
		}
		if path != filepath.Join(work, OptionsFilename) {
			t.Errorf("unexpected path: %s", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("installed file unreadable: %v", err)
		}
		if string(data) != string(template.OptionsSSL()) {
			t.Error("installed payload differs from the bundled one")
		}
	})

	t.Run("UpToDateUntouched", func(t *testing.T) {
		work := t.TempDir()
		if _, err := InstallOptions(work); err != nil {
			t.Fatal(err)
		}
		before, _ := os.Stat(filepath.Join(work, OptionsFilename))

		if _, err := InstallOptions(work); err != nil {
			t.Fatalf("second install failed: %v", err)
		}
		after, _ := os.Stat(filepath.Join(work, OptionsFilename))
		if !after.ModTime().Equal(before.ModTime()) {
			t.Error("up-to-date file should not be rewritten")
		}
	})

	t.Run("HandEditedPreserved", func(t *testing.T) {
		work := t.TempDir()
		path := filepath.Join(work, OptionsFilename)
		custom := "ssl_protocols TLSv1.3;\n"
		if err := os.WriteFile(path, []byte(custom), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := InstallOptions(work); err != nil {
			t.Fatalf("InstallOptions failed: %v", err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != custom {
			t.Error("hand-edited options file must not be overwritten")
		}
	})

	t.Run("KnownOldPayloadRefreshed", func(t *testing.T) {
		work := t.TempDir()
		path := filepath.Join(work, OptionsFilename)
		old := []byte("ssl_protocols TLSv1.1 TLSv1.2;\n")
		if err := os.WriteFile(path, old, 0644); err != nil {
			t.Fatal(err)
		}

		previousDigests[digest(old)] = true
		defer delete(previousDigests, digest(old))

		if _, err := InstallOptions(work); err != nil {
			t.Fatalf("InstallOptions failed: %v", err)
		}
		data, _ := os.ReadFile(path)
		if string(data) != string(template.OptionsSSL()) {
			t.Error("known old payload should be refreshed")
		}
	})
}

func TestValidateCertPaths(t *testing.T) {
	dir := t.TempDir()
	fullchain := filepath.Join(dir, "fullchain.pem")
	key := filepath.Join(dir, "privkey.pem")
	for _, path := range []string{fullchain, key} {
		if err := os.WriteFile(path, []byte("-----BEGIN-----\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("Valid", func(t *testing.T) {
		if err := ValidateCertPaths(fullchain, key); err != nil {
			t.Errorf("valid paths rejected: %v", err)
		}
	})

	t.Run("MissingFullchain", func(t *testing.T) {
		err := ValidateCertPaths("", key)
		if !errors.Is(err, &errors.CertError{Code: errors.ErrCodeValidation}) {
			t.Errorf("expected VALIDATION error, got %v", err)
		}
	})

	t.Run("NonexistentFile", func(t *testing.T) {
		err := ValidateCertPaths(filepath.Join(dir, "nope.pem"), key)
		if !errors.Is(err, &errors.CertError{Code: errors.ErrCodeValidation}) {
			t.Errorf("expected VALIDATION error, got %v", err)
		}
	})

	t.Run("Directory", func(t *testing.T) {
		err := ValidateCertPaths(dir, key)
		if !errors.Is(err, &errors.CertError{Code: errors.ErrCodeValidation}) {
			t.Errorf("expected VALIDATION error, got %v", err)
		}
	})
}
