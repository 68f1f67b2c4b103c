package vhost

import (
	"strings"
	"testing"

	"github.com/ksyq12/certnginx/internal/errors"
)

// vh builds a test vhost with the given names and listen addrs.
func vh(file string, names []string, addrs ...*Addr) *VirtualHost {
	if len(addrs) == 0 {
		addrs = []*Addr{{Host: "*", Port: "80"}}
	}
	return &VirtualHost{FilePath: file, Path: []int{0}, Names: names, Addrs: addrs}
}

// fixtureSet mirrors a semi-complex deployment: exact names, leading-dot
// and star wildcards, a regex name, and a default server.
func fixtureSet() []*VirtualHost {
	return []*VirtualHost{
		vh("nginx.conf", []string{"localhost", `~^(www\.)?(example|bar)\.`}),
		vh("server.conf", []string{"somename", "another.alias", "alias"}),
		vh("sites-enabled/example.com", []string{".example.com", "example.*"}),
		vh("foo.conf", []string{"*.www.foo.com", "*.www.example.com"}),
		vh("sites-enabled/ipv6.com", []string{"ipv6.com"},
			&Addr{Host: "*", Port: "80"},
			&Addr{Host: "::", Port: "80", IPv6: true}),
	}
}

func TestMatch(t *testing.T) {
	vhosts := fixtureSet()

	// domain -> expected source file
	want := map[string]string{
		"localhost":            "nginx.conf",
		"alias":                "server.conf",
		"example.com":          "sites-enabled/example.com",
		"www.example.com":      "sites-enabled/example.com",
		"example.com.uk.test":  "sites-enabled/example.com",
		"test.www.example.com": "foo.conf",
		"abc.www.foo.com":      "foo.conf",
		"www.bar.co.uk":        "nginx.conf",
		"ipv6.com":             "sites-enabled/ipv6.com",
	}

	for domain, file := range want {
		t.Run(domain, func(t *testing.T) {
			got, err := Match(domain, vhosts, Options{})
			if err != nil {
				t.Fatalf("Match(%s) failed: %v", domain, err)
			}
			if got.FilePath != file {
				t.Errorf("Match(%s) chose %s, want %s", domain, got.FilePath, file)
			}
		})
	}

	noMatch := []string{"www.foo.com", "example", "t.www.bar.co", "69.255.225.155"}
	for _, domain := range noMatch {
		t.Run("NoMatch_"+domain, func(t *testing.T) {
			_, err := Match(domain, vhosts, Options{})
			if !errors.Is(err, errors.ErrNoMatch) {
				t.Errorf("Match(%s) should fail with NO_MATCH, got %v", domain, err)
			}
		})
	}
}

func TestMatchExactBeatsWildcard(t *testing.T) {
	vhosts := []*VirtualHost{
		vh("wild.conf", []string{"*.example.com"}),
		vh("exact.conf", []string{"foo.example.com"}),
	}
	got, err := Match("foo.example.com", vhosts, Options{})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got.FilePath != "exact.conf" {
		t.Errorf("exact name must outrank wildcard, chose %s", got.FilePath)
	}
}

func TestMatchLongestWildcardWins(t *testing.T) {
	t.Run("PrefixLabels", func(t *testing.T) {
		// Declaration order must not matter; more labels win.
		vhosts := []*VirtualHost{
			vh("short.conf", []string{"*.com"}),
			vh("long.conf", []string{"*.www.example.com"}),
		}
		got, err := Match("test.www.example.com", vhosts, Options{})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if got.FilePath != "long.conf" {
			t.Errorf("longer wildcard must win, chose %s", got.FilePath)
		}

		// Same result with declaration order reversed.
		got, err = Match("test.www.example.com",
			[]*VirtualHost{vhosts[1], vhosts[0]}, Options{})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if got.FilePath != "long.conf" {
			t.Errorf("longer wildcard must win regardless of order, chose %s", got.FilePath)
		}
	})

	t.Run("SuffixLabels", func(t *testing.T) {
		vhosts := []*VirtualHost{
			vh("short.conf", []string{"example.*"}),
			vh("long.conf", []string{"example.co.*"}),
		}
		got, err := Match("example.co.uk", vhosts, Options{})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if got.FilePath != "long.conf" {
			t.Errorf("longer suffix wildcard must win, chose %s", got.FilePath)
		}
	})

	t.Run("PrefixTierBeatsSuffixTier", func(t *testing.T) {
		vhosts := []*VirtualHost{
			vh("suffix.conf", []string{"www.example.*"}),
			vh("prefix.conf", []string{"*.example.com"}),
		}
		got, err := Match("www.example.com", vhosts, Options{})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if got.FilePath != "prefix.conf" {
			t.Errorf("wildcard-prefix tier must outrank suffix tier, chose %s", got.FilePath)
		}
	})
}

func TestMatchLeadingDot(t *testing.T) {
	// .example.com covers the bare domain and subdomains, but not
	// other registrable domains.
	vhosts := []*VirtualHost{
		vh("example.conf", []string{".example.com", "example.*"}),
	}
	for _, domain := range []string{"example.com", "www.example.com"} {
		if _, err := Match(domain, vhosts, Options{}); err != nil {
			t.Errorf("Match(%s) should succeed: %v", domain, err)
		}
	}
	if _, err := Match("example.org", []*VirtualHost{vh("e.conf", []string{".example.com"})}, Options{}); !errors.Is(err, errors.ErrNoMatch) {
		t.Errorf("example.org should not match .example.com, got %v", err)
	}
}

func TestMatchSuffixWildcardCoversOtherTLD(t *testing.T) {
	// nginx's suffix wildcard replaces any trailing labels, so
	// example.* serves example.org too.
	vhosts := []*VirtualHost{
		vh("example.conf", []string{"example.*"}),
	}
	got, err := Match("example.org", vhosts, Options{})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got.FilePath != "example.conf" {
		t.Errorf("example.* must serve example.org, chose %s", got.FilePath)
	}
}

func TestMatchRegexDeclarationOrder(t *testing.T) {
	vhosts := []*VirtualHost{
		vh("first.conf", []string{`~^www\.`}),
		vh("second.conf", []string{`~^www\.example\.`}),
	}
	got, err := Match("www.example.com", vhosts, Options{})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if got.FilePath != "first.conf" {
		t.Errorf("first declared regex must win, chose %s", got.FilePath)
	}
}

func TestMatchDefaultServer(t *testing.T) {
	t.Run("FallbackToDefault", func(t *testing.T) {
		vhosts := []*VirtualHost{
			vh("named.conf", []string{"www.example.org"}),
			vh("default.conf", nil, &Addr{Host: "myhost", Port: "80", Default: true}),
		}
		got, err := Match("www.nomatch.com", vhosts, Options{})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if got.FilePath != "default.conf" {
			t.Errorf("unmatched domain should fall back to default_server, chose %s", got.FilePath)
		}
	})

	t.Run("TwoDefaultsAmbiguous", func(t *testing.T) {
		vhosts := []*VirtualHost{
			vh("a.conf", nil, &Addr{Port: "80", Default: true}),
			vh("b.conf", nil, &Addr{Port: "80", Default: true}),
		}
		_, err := Match("www.nomatch.com", vhosts, Options{})
		if !errors.Is(err, errors.ErrAmbiguous) {
			t.Fatalf("two default servers should be AMBIGUOUS, got %v", err)
		}
		var certErr *errors.CertError
		errors.As(err, &certErr)
		for _, file := range []string{"a.conf", "b.conf"} {
			if !strings.Contains(certErr.Message, file) {
				t.Errorf("ambiguous error should name %s: %s", file, certErr.Message)
			}
		}
	})

	t.Run("DefaultScopedToPort", func(t *testing.T) {
		vhosts := []*VirtualHost{
			vh("ssl.conf", nil, &Addr{Port: "443", SSL: true, Default: true}),
		}
		_, err := Match("www.nomatch.com", vhosts, Options{Port: "80"})
		if !errors.Is(err, errors.ErrNoMatch) {
			t.Errorf("default on another port must not apply, got %v", err)
		}
	})
}

func TestMatchAmbiguousTie(t *testing.T) {
	vhosts := []*VirtualHost{
		vh("a.conf", []string{"dup.example.com"}),
		vh("b.conf", []string{"dup.example.com"}),
	}

	t.Run("TieFails", func(t *testing.T) {
		_, err := Match("dup.example.com", vhosts, Options{})
		if !errors.Is(err, errors.ErrAmbiguous) {
			t.Fatalf("expected AMBIGUOUS, got %v", err)
		}
	})

	t.Run("PreferSSLBreaksTie", func(t *testing.T) {
		withSSL := []*VirtualHost{
			vhosts[0],
			vh("b.conf", []string{"dup.example.com"}, &Addr{Port: "443", SSL: true}),
		}
		got, err := Match("dup.example.com", withSSL, Options{PreferSSL: true})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if got.FilePath != "b.conf" {
			t.Errorf("ssl candidate should win the tie, chose %s", got.FilePath)
		}
	})

	t.Run("PreResolvedSkipsTie", func(t *testing.T) {
		got, err := Match("dup.example.com", vhosts, Options{Resolved: vhosts[1]})
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if got != vhosts[1] {
			t.Error("pre-resolved choice must be returned as-is")
		}
	})
}

func TestCandidates(t *testing.T) {
	vhosts := []*VirtualHost{
		vh("a.conf", []string{"dup.example.com"}),
		vh("b.conf", []string{"dup.example.com"}),
		vh("c.conf", []string{"dup.example.com"}, &Addr{Port: "443", SSL: true}),
		vh("d.conf", []string{"dup.example.com"}, &Addr{Port: "443", SSL: true}),
	}

	t.Run("TiedSet", func(t *testing.T) {
		got := Candidates("dup.example.com", vhosts, Options{})
		if len(got) != 4 {
			t.Fatalf("expected all 4 tied blocks, got %d", len(got))
		}
	})

	t.Run("PreferSSLNarrows", func(t *testing.T) {
		got := Candidates("dup.example.com", vhosts, Options{PreferSSL: true})
		if len(got) != 2 {
			t.Fatalf("expected the 2 ssl blocks, got %d", len(got))
		}
		for _, v := range got {
			if !v.SSLEnabled() {
				t.Errorf("narrowed set contains plaintext block %s", v.FilePath)
			}
		}
	})

	t.Run("NoTierMatch", func(t *testing.T) {
		if got := Candidates("other.org", vhosts, Options{}); got != nil {
			t.Errorf("expected no candidates, got %v", got)
		}
	})
}

func TestCoveredNames(t *testing.T) {
	v := vh("mixed.conf", []string{
		"a.example.com",
		"b.example.com",
		"other.org",
		"*.example.com",
		".example.com",
		`~^c\.example\.com$`,
	})
	got := CoveredNames("*.example.com", v)
	want := []string{"a.example.com", "b.example.com"}
	if len(got) != len(want) {
		t.Fatalf("CoveredNames returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CoveredNames[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestMatchAllWildcard(t *testing.T) {
	vhosts := []*VirtualHost{
		vh("summer.conf", []string{"summer.com"}),
		vh("geese.conf", []string{"geese.com"}, &Addr{Port: "443", SSL: true}),
		vh("org.conf", []string{"example.org"}),
		vh("regex.conf", []string{`~^summer\.`}),
	}

	t.Run("CoversSuffix", func(t *testing.T) {
		got := MatchAllWildcard("*.com", vhosts)
		if len(got) != 2 {
			t.Fatalf("expected 2 matches, got %d", len(got))
		}
		if got[0].FilePath != "summer.conf" || got[1].FilePath != "geese.conf" {
			t.Errorf("unexpected matches: %v, %v", got[0].FilePath, got[1].FilePath)
		}
	})

	t.Run("DeeperWildcard", func(t *testing.T) {
		deep := []*VirtualHost{
			vh("a.conf", []string{"foo.example.com"}),
			vh("b.conf", []string{"example.com"}),
		}
		got := MatchAllWildcard("*.example.com", deep)
		if len(got) != 1 || got[0].FilePath != "a.conf" {
			t.Errorf("*.example.com should cover subdomains only, got %v", got)
		}
	})

	t.Run("PartitionSSL", func(t *testing.T) {
		ssl, plain := PartitionSSL(MatchAllWildcard("*.com", vhosts))
		if len(ssl) != 1 || ssl[0].FilePath != "geese.conf" {
			t.Errorf("ssl partition wrong: %v", ssl)
		}
		if len(plain) != 1 || plain[0].FilePath != "summer.conf" {
			t.Errorf("plain partition wrong: %v", plain)
		}
	})

	t.Run("FilterInsecurePort", func(t *testing.T) {
		got := FilterInsecurePort(vhosts, "80")
		for _, v := range got {
			if v.FilePath == "geese.conf" {
				t.Error("ssl-only vhost must be filtered out for redirect")
			}
		}
	})
}

func TestIsWildcardDomain(t *testing.T) {
	if !IsWildcardDomain("*.example.com") {
		t.Error("*.example.com is a wildcard request")
	}
	if IsWildcardDomain("www.example.com") {
		t.Error("www.example.com is not a wildcard request")
	}
}
