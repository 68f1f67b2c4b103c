// Package platform provides platform-specific detection of nginx
// installation paths.
package platform

import (
	"fmt"
	"os"
	"runtime"
)

// NginxPaths contains the detected locations of an nginx installation.
type NginxPaths struct {
	// ServerRoot is the configuration directory.
	ServerRoot string
	// RootFile is the entry configuration file name inside ServerRoot.
	RootFile string
	// Binary is the nginx executable path, or "nginx" when it should
	// be resolved through PATH.
	Binary string
	// WorkDir is where certnginx keeps checkpoints and option files.
	WorkDir string
}

// DetectPaths returns platform-specific default paths for nginx.
// It checks for common installation locations based on the OS.
func DetectPaths() (*NginxPaths, error) {
	switch runtime.GOOS {
	case "darwin":
		return detectDarwinPaths()
	case "linux":
		return detectLinuxPaths()
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// detectDarwinPaths detects paths for macOS (Homebrew installations).
func detectDarwinPaths() (*NginxPaths, error) {
	// Check for Apple Silicon Homebrew path first
	if pathExists("/opt/homebrew/etc/nginx") {
		return &NginxPaths{
			ServerRoot: "/opt/homebrew/etc/nginx",
			RootFile:   "nginx.conf",
			Binary:     "/opt/homebrew/bin/nginx",
			WorkDir:    "/opt/homebrew/var/lib/certnginx",
		}, nil
	}

	// Check for Intel Homebrew path
	if pathExists("/usr/local/etc/nginx") {
		return &NginxPaths{
			ServerRoot: "/usr/local/etc/nginx",
			RootFile:   "nginx.conf",
			Binary:     "/usr/local/bin/nginx",
			WorkDir:    "/usr/local/var/lib/certnginx",
		}, nil
	}

	return nil, fmt.Errorf("nginx installation not found (checked /opt/homebrew/etc/nginx and /usr/local/etc/nginx)")
}

// detectLinuxPaths detects paths for Linux distributions.
func detectLinuxPaths() (*NginxPaths, error) {
	if pathExists("/etc/nginx") {
		return &NginxPaths{
			ServerRoot: "/etc/nginx",
			RootFile:   "nginx.conf",
			Binary:     "nginx",
			WorkDir:    "/var/lib/certnginx",
		}, nil
	}

	// Source builds default to /usr/local/nginx.
	if pathExists("/usr/local/nginx/conf") {
		return &NginxPaths{
			ServerRoot: "/usr/local/nginx/conf",
			RootFile:   "nginx.conf",
			Binary:     "/usr/local/nginx/sbin/nginx",
			WorkDir:    "/var/lib/certnginx",
		}, nil
	}

	return nil, fmt.Errorf("nginx configuration not found (checked /etc/nginx and /usr/local/nginx/conf)")
}

// pathExists checks if a path exists on the filesystem.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Platform returns a string describing the current platform.
func Platform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
