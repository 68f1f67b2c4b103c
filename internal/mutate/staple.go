package mutate

import (
	"github.com/ksyq12/certnginx/internal/errors"
	"github.com/ksyq12/certnginx/internal/parser"
	"github.com/ksyq12/certnginx/internal/vhost"
)

// StapleOCSP enables OCSP stapling on the vhost's server block, using
// chainPath as the trusted certificate chain for response verification.
// A block already stapled against the same chain is left untouched; a
// block stapled against a different chain is a conflict the caller must
// resolve by hand.
func StapleOCSP(f *parser.ParsedFile, v *vhost.VirtualHost, domain, chainPath string) error {
	block, err := v.Block(f)
	if err != nil {
		return err
	}

	if i := findDirective(block.Children, "ssl_trusted_certificate"); i >= 0 {
		existing := block.Children[i]
		if len(existing.Tokens) == 2 && parser.Unquote(existing.Tokens[1]) == chainPath {
			return nil
		}
		return errors.Conflict(domain,
			"ssl_trusted_certificate already set to "+parser.Unquote(existing.Tokens[1])+
				", refusing to overwrite with "+chainPath)
	}

	directives := [][]string{
		{"ssl_trusted_certificate", chainPath},
		{"ssl_stapling", "on"},
		{"ssl_stapling_verify", "on"},
	}
	return AddDirectives(f, v.Path, directives, AppendIfAbsent)
}
