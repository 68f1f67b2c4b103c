package mutate

import (
	"strings"
	"testing"

	"github.com/ksyq12/certnginx/internal/parser"
	"github.com/ksyq12/certnginx/internal/vhost"
)

func parseFixture(t *testing.T, text string) (*parser.ParsedFile, *vhost.VirtualHost) {
	t.Helper()
	f, err := parser.Parse("/etc/nginx/sites-enabled/test.conf", text)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	vhosts := vhost.ExtractFile(f)
	if len(vhosts) == 0 {
		t.Fatal("fixture has no server block")
	}
	return f, vhosts[0]
}

func refresh(t *testing.T, f *parser.ParsedFile, i int) *vhost.VirtualHost {
	t.Helper()
	vhosts := vhost.ExtractFile(f)
	if i >= len(vhosts) {
		t.Fatalf("no vhost %d after re-extract, have %d", i, len(vhosts))
	}
	return vhosts[i]
}

const plainServer = `server {
    listen 80;
    server_name example.com;
    root /var/www/html;
}
`

func TestAddDirectivesAppend(t *testing.T) {
	f, v := parseFixture(t, plainServer)

	err := AddDirectives(f, v.Path, [][]string{{"ssl_dhparam", "/etc/ssl/dhparam.pem"}}, AppendIfAbsent)
	if err != nil {
		t.Fatalf("AddDirectives failed: %v", err)
	}

	out := parser.Dump(f)
	if !strings.Contains(out, "ssl_dhparam /etc/ssl/dhparam.pem;") {
		t.Errorf("directive not appended:\n%s", out)
	}
	if !strings.Contains(out, "#"+ManagedMarker) {
		t.Errorf("appended directive not tagged:\n%s", out)
	}
	if f.Version() == 0 {
		t.Error("mutation did not advance file version")
	}
}

func TestAddDirectivesAppendIdempotent(t *testing.T) {
	f, v := parseFixture(t, plainServer)
	directives := [][]string{{"include", "/etc/nginx/options-ssl.conf"}}

	if err := AddDirectives(f, v.Path, directives, AppendIfAbsent); err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	before := parser.Dump(f)
	version := f.Version()

	if err := AddDirectives(f, v.Path, directives, AppendIfAbsent); err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	if got := parser.Dump(f); got != before {
		t.Errorf("re-apply changed the tree:\n%s", got)
	}
	if f.Version() != version {
		t.Error("no-op re-apply advanced the file version")
	}
}

func TestAddDirectivesAppendKeepsDistinctValues(t *testing.T) {
	// Two include directives with different arguments must coexist.
	f, v := parseFixture(t, `server {
    listen 80;
    server_name example.com;
    include /etc/nginx/server.conf;
}
`)
	err := AddDirectives(f, v.Path, [][]string{{"include", "/etc/nginx/options-ssl.conf"}}, AppendIfAbsent)
	if err != nil {
		t.Fatalf("AddDirectives failed: %v", err)
	}

	out := parser.Dump(f)
	for _, want := range []string{"include /etc/nginx/server.conf;", "include /etc/nginx/options-ssl.conf;"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
}

func TestAddDirectivesReplace(t *testing.T) {
	f, v := parseFixture(t, `server {
    listen 443 ssl;
    server_name example.com;
    ssl_certificate /old/cert.pem;
}
`)
	err := AddDirectives(f, v.Path, [][]string{{"ssl_certificate", "/new/fullchain.pem"}}, ReplaceIfExists)
	if err != nil {
		t.Fatalf("AddDirectives failed: %v", err)
	}

	out := parser.Dump(f)
	if strings.Contains(out, "/old/cert.pem") {
		t.Errorf("old value not replaced:\n%s", out)
	}
	if !strings.Contains(out, "ssl_certificate /new/fullchain.pem;") {
		t.Errorf("new value missing:\n%s", out)
	}
	if strings.Count(out, "ssl_certificate ") != 1 {
		t.Errorf("replace must not duplicate the directive:\n%s", out)
	}
}

func TestAddDirectivesReplaceSameValueOnlyTags(t *testing.T) {
	f, v := parseFixture(t, `server {
    listen 443 ssl;
    ssl_certificate /etc/ssl/fullchain.pem;
}
`)
	directives := [][]string{{"ssl_certificate", "/etc/ssl/fullchain.pem"}}

	if err := AddDirectives(f, v.Path, directives, ReplaceIfExists); err != nil {
		t.Fatalf("AddDirectives failed: %v", err)
	}
	out := parser.Dump(f)
	if strings.Count(out, "ssl_certificate ") != 1 {
		t.Errorf("same-value replace must not duplicate:\n%s", out)
	}
	if !strings.Contains(out, "#"+ManagedMarker) {
		t.Errorf("existing directive should have been tagged:\n%s", out)
	}

	// And a second pass is a full no-op.
	version := f.Version()
	if err := AddDirectives(f, v.Path, directives, ReplaceIfExists); err != nil {
		t.Fatalf("re-apply failed: %v", err)
	}
	if f.Version() != version {
		t.Error("tagging re-apply advanced the file version")
	}
}
