package vhost

import (
	"fmt"
	"strings"

	"github.com/ksyq12/certnginx/internal/parser"
)

// VirtualHost is a derived view of one server block's routing-relevant
// attributes. It references the block by a stable child-index path into
// its source file; it owns no tree data itself.
//
// The view is only valid against the file version it was extracted
// from. Any structural mutation of the file advances the version
// counter and invalidates every VirtualHost extracted before it; the
// session re-extracts after each mutation batch.
type VirtualHost struct {
	FilePath string   // absolute path of the owning file
	Path     []int    // child-index path from the file root to the server block
	Names    []string // server_name arguments, declaration order, deduped
	Addrs    []*Addr  // parsed listen directives

	fileVersion int
}

// SSLEnabled reports whether any listen directive carries the ssl flag.
func (v *VirtualHost) SSLEnabled() bool {
	for _, a := range v.Addrs {
		if a.SSL {
			return true
		}
	}
	return false
}

// IPv6Enabled reports whether any listen directive binds an IPv6 address.
func (v *VirtualHost) IPv6Enabled() bool {
	for _, a := range v.Addrs {
		if a.IPv6 {
			return true
		}
	}
	return false
}

// IPv4Enabled reports whether any listen directive binds an IPv4
// address (or a wildcard/bare-port listen, which covers IPv4).
func (v *VirtualHost) IPv4Enabled() bool {
	for _, a := range v.Addrs {
		if !a.IPv6 {
			return true
		}
	}
	return false
}

// SameIdentity reports whether two views describe a server block with
// the same routing identity: same file, same name set and same listen
// addresses. Identity survives sibling insertions that shift index
// paths, which the paths themselves do not.
func (v *VirtualHost) SameIdentity(o *VirtualHost) bool {
	if v.FilePath != o.FilePath || len(v.Names) != len(o.Names) || len(v.Addrs) != len(o.Addrs) {
		return false
	}
	for i := range v.Names {
		if v.Names[i] != o.Names[i] {
			return false
		}
	}
	for i := range v.Addrs {
		if v.Addrs[i].String() != o.Addrs[i].String() ||
			v.Addrs[i].SSL != o.Addrs[i].SSL ||
			v.Addrs[i].Default != o.Addrs[i].Default {
			return false
		}
	}
	return true
}

// HasName reports whether name is literally in the server_name set.
func (v *VirtualHost) HasName(name string) bool {
	for _, n := range v.Names {
		if n == name {
			return true
		}
	}
	return false
}

// ListensOn reports whether the block has a listen directive on the
// given port, optionally restricted to plaintext (non-ssl) listens.
func (v *VirtualHost) ListensOn(port string, insecureOnly bool) bool {
	for _, a := range v.Addrs {
		if a.EffectivePort() != port {
			continue
		}
		if insecureOnly && a.SSL {
			continue
		}
		return true
	}
	return false
}

// Block resolves the underlying server block, refusing stale views.
func (v *VirtualHost) Block(f *parser.ParsedFile) (*parser.Block, error) {
	if f.Path != v.FilePath {
		return nil, fmt.Errorf("vhost belongs to %s, not %s", v.FilePath, f.Path)
	}
	if v.Stale(f) {
		return nil, fmt.Errorf("stale vhost view of %s (file has changed since extraction)", v.FilePath)
	}
	return f.BlockAt(v.Path)
}

// Stale reports whether the owning file has been structurally mutated
// since this view was extracted.
func (v *VirtualHost) Stale(f *parser.ParsedFile) bool {
	return f.Version() != v.fileVersion
}

// String describes the vhost for error messages and selection prompts.
func (v *VirtualHost) String() string {
	names := strings.Join(v.Names, " ")
	if names == "" {
		names = "(no server_name)"
	}
	addrs := make([]string, len(v.Addrs))
	for i, a := range v.Addrs {
		addrs[i] = a.String()
	}
	return fmt.Sprintf("%s: %s [%s]", v.FilePath, names, strings.Join(addrs, ", "))
}

// Selector chooses a subset of candidate vhosts. It is injected by the
// caller (an interactive prompt in the CLI, a canned answer in tests)
// and consulted only on the ambiguous and wildcard paths. An empty
// result means the user declined.
type Selector func(candidates []*VirtualHost) []*VirtualHost
