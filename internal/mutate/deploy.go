package mutate

import (
	"github.com/ksyq12/certnginx/internal/logger"
	"github.com/ksyq12/certnginx/internal/parser"
	"github.com/ksyq12/certnginx/internal/vhost"
)

// DeployParams carries the paths a certificate deployment writes into a
// server block.
type DeployParams struct {
	KeyPath       string // ssl_certificate_key
	FullchainPath string // ssl_certificate
	OptionsPath   string // include, the shared ssl options file
	DHParamPath   string // ssl_dhparam; skipped when empty
	SSLPort       string // conventional ssl port for an injected listen

	// IPv6OnlySet means some listen on the ssl port already carries
	// ipv6only, which nginx allows at most once per port, so an injected
	// IPv6 listen must omit the flag.
	IPv6OnlySet bool
}

// DeployCert makes the vhost's server block serve the certificate. If
// the block has no ssl-flagged listen directive one is injected on the
// conventional ssl port per address family the block already binds, so
// an IPv6-only block gets an IPv6 ssl listen rather than an unreachable
// IPv4 one; pre-existing plaintext listen directives are left
// untouched. The certificate directives are singular keys and overwrite
// managed values from a previous deployment.
func DeployCert(f *parser.ParsedFile, v *vhost.VirtualHost, p DeployParams) error {
	if _, err := v.Block(f); err != nil {
		return err
	}

	if !v.SSLEnabled() {
		var listens [][]string
		if v.IPv4Enabled() {
			listens = append(listens, []string{"listen", p.SSLPort, "ssl"})
		}
		if v.IPv6Enabled() {
			l := []string{"listen", "[::]:" + p.SSLPort, "ssl"}
			if !p.IPv6OnlySet {
				l = append(l, "ipv6only=on")
			}
			listens = append(listens, l)
		}
		logger.Debug("no ssl listen in %s, injecting %d ssl listen(s) on port %s", v.FilePath, len(listens), p.SSLPort)
		if err := AddDirectives(f, v.Path, listens, AppendIfAbsent); err != nil {
			return err
		}
	}

	// Certificate paths are singular keys; a re-deployment overwrites
	// the previous values.
	singular := [][]string{
		{"ssl_certificate", p.FullchainPath},
		{"ssl_certificate_key", p.KeyPath},
	}
	if err := AddDirectives(f, v.Path, singular, ReplaceIfExists); err != nil {
		return err
	}

	// The options include and dhparam are additive: a server block may
	// legitimately carry other include directives, so these must not
	// replace by name.
	var additive [][]string
	if p.OptionsPath != "" {
		additive = append(additive, []string{"include", p.OptionsPath})
	}
	if p.DHParamPath != "" {
		additive = append(additive, []string{"ssl_dhparam", p.DHParamPath})
	}
	if len(additive) == 0 {
		return nil
	}
	return AddDirectives(f, v.Path, additive, AppendIfAbsent)
}
