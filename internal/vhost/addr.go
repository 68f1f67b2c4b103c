package vhost

import (
	"strings"

	"github.com/ksyq12/certnginx/internal/parser"
)

// DefaultPort is the port a server block listens on when it has no
// listen directive at all.
const DefaultPort = "80"

// Addr is one parsed listen directive: an address/port pair plus the
// flags this tool cares about. Unrecognized listen parameters are
// ignored.
type Addr struct {
	Host     string // hostname, IP, or "*"; empty when only a port was given
	Port     string // empty when only a host was given
	SSL      bool   // "ssl" parameter present
	IPv6     bool   // bracketed IPv6 literal
	Default  bool   // "default_server" (or legacy "default") parameter present
	IPv6Only bool   // "ipv6only=on" parameter present
}

// ParseAddr parses listen directive arguments into an Addr. Returns nil
// when args is empty.
func ParseAddr(args []string) *Addr {
	if len(args) == 0 {
		return nil
	}

	a := &Addr{}
	first := parser.Unquote(args[0])

	switch {
	case strings.HasPrefix(first, "["):
		// Bracketed IPv6 literal, optionally with a port after the bracket.
		a.IPv6 = true
		end := strings.Index(first, "]")
		if end < 0 {
			end = len(first) - 1
		}
		a.Host = first[1:end]
		if rest := first[end+1:]; strings.HasPrefix(rest, ":") {
			a.Port = rest[1:]
		}
	case isDigits(first):
		a.Port = first
	case strings.Contains(first, ":"):
		idx := strings.LastIndex(first, ":")
		a.Host = first[:idx]
		a.Port = first[idx+1:]
	default:
		a.Host = first
	}

	for _, arg := range args[1:] {
		switch parser.Unquote(arg) {
		case "ssl":
			a.SSL = true
		case "default_server", "default":
			a.Default = true
		case "ipv6only=on":
			a.IPv6Only = true
		}
	}
	return a
}

// EffectivePort returns the port the address listens on, defaulting to
// 80 when the directive named only a host.
func (a *Addr) EffectivePort() string {
	if a.Port == "" {
		return DefaultPort
	}
	return a.Port
}

// String renders the address the way a listen directive would name it.
func (a *Addr) String() string {
	var b strings.Builder
	if a.IPv6 {
		b.WriteString("[")
		b.WriteString(a.Host)
		b.WriteString("]")
	} else {
		b.WriteString(a.Host)
	}
	if a.Port != "" {
		if b.Len() > 0 {
			b.WriteString(":")
		}
		b.WriteString(a.Port)
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
