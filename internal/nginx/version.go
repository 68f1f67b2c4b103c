package nginx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ksyq12/certnginx/internal/errors"
)

const versionPrefix = "nginx version: nginx/"

// Version describes a probed nginx build.
type Version struct {
	Major, Minor, Patch int

	// SNI reports whether the build announces TLS SNI support.
	SNI bool
	// SSLModule reports whether the build was configured with the
	// http ssl module.
	SSLModule bool
}

// String renders the version as nginx prints it.
func (v *Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// AtLeast reports whether the version is major.minor.patch or newer.
func (v *Version) AtLeast(major, minor, patch int) bool {
	if v.Major != major {
		return v.Major > major
	}
	if v.Minor != minor {
		return v.Minor > minor
	}
	return v.Patch >= patch
}

// SupportsStapling reports whether this build can serve stapled OCSP
// responses, added in nginx 1.3.7.
func (v *Version) SupportsStapling() bool {
	return v.AtLeast(1, 3, 7)
}

// ParseVersionOutput extracts the Version from nginx -V output. The
// output must carry both the version banner and the configure
// arguments line; anything else is not a working nginx install.
// Versions before 1.0.0 are rejected outright.
func ParseVersionOutput(output string) (*Version, error) {
	var v *Version
	sawConfigure := false

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, versionPrefix):
			parsed, err := parseVersionNumber(strings.TrimPrefix(line, versionPrefix))
			if err != nil {
				return nil, err
			}
			v = parsed
		case strings.HasPrefix(line, "configure arguments:"):
			sawConfigure = true
			if v != nil {
				v.SSLModule = strings.Contains(line, "--with-http_ssl_module")
			}
		case strings.Contains(line, "TLS SNI support enabled"):
			if v != nil {
				v.SNI = true
			}
		}
	}

	if v == nil {
		return nil, errors.Wrap(errors.ErrCodeMisconfig,
			"nginx -V output has no version banner", nil)
	}
	if !sawConfigure {
		return nil, errors.Wrap(errors.ErrCodeMisconfig,
			"nginx -V output has no configure arguments, not a working nginx build", nil)
	}
	if !v.AtLeast(1, 0, 0) {
		return nil, errors.Unsupported(v.String())
	}
	return v, nil
}

// parseVersionNumber parses "1.24.0" or "1.24", tolerating a build
// suffix such as "1.24.0 (Ubuntu)".
func parseVersionNumber(s string) (*Version, error) {
	if i := strings.IndexAny(s, " \t("); i >= 0 {
		s = s[:i]
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, errors.Wrap(errors.ErrCodeMisconfig,
			fmt.Sprintf("unparsable nginx version %q", s), nil)
	}

	nums := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMisconfig,
				fmt.Sprintf("unparsable nginx version %q", s), nil)
		}
		nums[i] = n
	}
	return &Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}
