package vhost

import (
	"regexp"
	"strings"

	"github.com/ksyq12/certnginx/internal/errors"
	"github.com/ksyq12/certnginx/internal/logger"
)

// Match tiers, highest precedence first. The numeric order is the
// comparison order.
type tier int

const (
	tierExact tier = iota
	tierWildcardStart
	tierWildcardEnd
	tierRegex
	tierNone
)

// Options tunes a Match call.
type Options struct {
	// PreferSSL breaks a same-tier tie toward ssl-listening blocks,
	// used for certificate deployment.
	PreferSSL bool

	// Port scopes the default_server fallback tier. Empty means 80.
	Port string

	// Resolved is a pre-resolved choice (from interactive selection);
	// when set, tie resolution is skipped and Resolved is returned.
	Resolved *VirtualHost
}

// Match selects the server block that nginx itself would route the
// domain to, applying nginx's name precedence: exact name, longest
// wildcard-prefix, longest wildcard-suffix, first matching regex in
// declaration order, then the port's default_server. Ties at one tier
// with no way to disambiguate fail with an AMBIGUOUS error naming the
// candidates; no tier matching and no default present fails with
// NO_MATCH.
func Match(domain string, vhosts []*VirtualHost, opts Options) (*VirtualHost, error) {
	if opts.Resolved != nil {
		return opts.Resolved, nil
	}
	domain = strings.ToLower(domain)
	port := opts.Port
	if port == "" {
		port = DefaultPort
	}

	candidates := topTier(domain, vhosts)
	if len(candidates) == 0 {
		return matchDefault(domain, port, vhosts)
	}
	return resolveTie(domain, candidates, opts.PreferSSL)
}

// topTier collects the vhosts sharing the highest name-precedence tier
// the domain reaches.
func topTier(domain string, vhosts []*VirtualHost) []*VirtualHost {
	best := tierNone
	bestLabels := 0
	var candidates []*VirtualHost

	for _, v := range vhosts {
		t, labels := rank(domain, v)
		if t == tierNone {
			continue
		}
		switch {
		case t < best || (t == best && isWildcard(t) && labels > bestLabels):
			best, bestLabels = t, labels
			candidates = candidates[:0]
			candidates = append(candidates, v)
		case t == best && (!isWildcard(t) || labels == bestLabels):
			if t == tierRegex {
				// First matching regex wins in declaration order.
				continue
			}
			candidates = append(candidates, v)
		}
	}
	return candidates
}

// Candidates returns the tied blocks a Match call would report as
// AMBIGUOUS, after the same ssl-preference narrowing, so the caller can
// put them to the operator and feed the answer back as Resolved.
func Candidates(domain string, vhosts []*VirtualHost, opts Options) []*VirtualHost {
	domain = strings.ToLower(domain)
	candidates := topTier(domain, vhosts)
	if len(candidates) == 0 {
		port := opts.Port
		if port == "" {
			port = DefaultPort
		}
		return defaultServers(port, vhosts)
	}
	if opts.PreferSSL {
		if ssl, _ := PartitionSSL(candidates); len(ssl) > 0 {
			return ssl
		}
	}
	return candidates
}

// rank returns the best tier any of the vhost's names reaches for the
// domain, with the matched pattern's label count for wildcard tiers.
func rank(domain string, v *VirtualHost) (tier, int) {
	best := tierNone
	labels := 0
	for _, name := range v.Names {
		t := rankName(domain, strings.ToLower(name))
		if t == tierNone {
			continue
		}
		l := len(strings.Split(name, "."))
		if t < best || (t == best && isWildcard(t) && l > labels) {
			best = t
			labels = l
		}
	}
	return best, labels
}

func rankName(domain, name string) tier {
	switch {
	case name == domain:
		return tierExact
	case strings.HasPrefix(name, "*."):
		if strings.HasSuffix(domain, name[1:]) {
			return tierWildcardStart
		}
	case strings.HasPrefix(name, "."):
		// Leading-dot shorthand covers the bare domain and every
		// subdomain of it.
		if domain == name[1:] || strings.HasSuffix(domain, name) {
			return tierWildcardStart
		}
	case strings.HasSuffix(name, ".*"):
		if strings.HasPrefix(domain, name[:len(name)-1]) {
			return tierWildcardEnd
		}
	case strings.HasPrefix(name, "~"):
		if regexNameMatches(name, domain) {
			return tierRegex
		}
	}
	return tierNone
}

// regexNameMatches evaluates a ~ or ~* server_name pattern.
func regexNameMatches(name, domain string) bool {
	pattern := strings.TrimPrefix(name, "~")
	if strings.HasPrefix(pattern, "*") {
		pattern = "(?i)" + pattern[1:]
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		logger.Debug("skipping unparseable server_name regex %q: %v", name, err)
		return false
	}
	return re.MatchString(domain)
}

func isWildcard(t tier) bool {
	return t == tierWildcardStart || t == tierWildcardEnd
}

// matchDefault implements the lowest tier: the block flagged
// default_server for the requested port.
func matchDefault(domain, port string, vhosts []*VirtualHost) (*VirtualHost, error) {
	defaults := defaultServers(port, vhosts)
	switch len(defaults) {
	case 0:
		return nil, errors.NoMatch(domain)
	case 1:
		return defaults[0], nil
	default:
		return nil, errors.Ambiguous(domain, describe(defaults))
	}
}

func defaultServers(port string, vhosts []*VirtualHost) []*VirtualHost {
	var defaults []*VirtualHost
	for _, v := range vhosts {
		for _, a := range v.Addrs {
			if a.Default && a.EffectivePort() == port {
				defaults = append(defaults, v)
				break
			}
		}
	}
	return defaults
}

// resolveTie reduces same-tier candidates to one, preferring
// ssl-listening blocks when requested. More than one survivor is an
// ambiguity the caller must resolve externally.
func resolveTie(domain string, candidates []*VirtualHost, preferSSL bool) (*VirtualHost, error) {
	if len(candidates) == 1 {
		return candidates[0], nil
	}
	if preferSSL {
		var ssl []*VirtualHost
		for _, v := range candidates {
			if v.SSLEnabled() {
				ssl = append(ssl, v)
			}
		}
		if len(ssl) == 1 {
			return ssl[0], nil
		}
		if len(ssl) > 1 {
			candidates = ssl
		}
	}
	return nil, errors.Ambiguous(domain, describe(candidates))
}

func describe(vhosts []*VirtualHost) []string {
	out := make([]string, len(vhosts))
	for i, v := range vhosts {
		out[i] = v.String()
	}
	return out
}

// MatchAllWildcard implements wildcard-domain requests: a leading-*
// pattern such as *.example.com returns every vhost owning a name that
// falls under the suffix, in extraction order. Name precedence does not
// apply; the caller partitions and narrows the result.
func MatchAllWildcard(pattern string, vhosts []*VirtualHost) []*VirtualHost {
	var matched []*VirtualHost
	for _, v := range vhosts {
		for _, name := range v.Names {
			if wildcardCovers(pattern, name) {
				matched = append(matched, v)
				break
			}
		}
	}
	return matched
}

// IsWildcardDomain reports whether a requested domain is a wildcard
// request rather than a literal name.
func IsWildcardDomain(domain string) bool {
	return strings.HasPrefix(domain, "*.")
}

// CoveredNames returns the vhost's concrete server names that fall
// under the wildcard pattern, in declaration order. Wildcard, leading
// dot and regex names are excluded: only a literal name can anchor a
// generated $host conditional.
func CoveredNames(pattern string, v *VirtualHost) []string {
	var names []string
	for _, name := range v.Names {
		if strings.Contains(name, "*") || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
			continue
		}
		if wildcardCovers(pattern, name) {
			names = append(names, name)
		}
	}
	return names
}

// wildcardCovers reports whether a concrete server name falls under a
// wildcard pattern. Labels are compared right to left; a * label in
// the pattern matches one or more leading labels in the name.
func wildcardCovers(pattern, name string) bool {
	if name == "" || strings.HasPrefix(name, "~") {
		return false
	}
	p := strings.Split(strings.ToLower(pattern), ".")
	n := strings.Split(strings.ToLower(name), ".")
	if len(n) < len(p) {
		return false
	}
	for i := 1; i <= len(p); i++ {
		pl := p[len(p)-i]
		nl := n[len(n)-i]
		if pl == "*" || nl == "*" {
			continue
		}
		if pl != nl {
			return false
		}
	}
	return true
}

// PartitionSSL splits vhosts into ssl-enabled and plaintext groups,
// preserving order.
func PartitionSSL(vhosts []*VirtualHost) (ssl, plain []*VirtualHost) {
	for _, v := range vhosts {
		if v.SSLEnabled() {
			ssl = append(ssl, v)
		} else {
			plain = append(plain, v)
		}
	}
	return ssl, plain
}

// FilterInsecurePort keeps the vhosts that have a plaintext listen on
// the given port, used when narrowing wildcard candidates for redirect
// enhancement.
func FilterInsecurePort(vhosts []*VirtualHost, port string) []*VirtualHost {
	var out []*VirtualHost
	for _, v := range vhosts {
		if v.ListensOn(port, true) {
			out = append(out, v)
		}
	}
	return out
}
