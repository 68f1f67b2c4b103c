package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ksyq12/certnginx/internal/config"
	"github.com/ksyq12/certnginx/internal/executor"
	"github.com/ksyq12/certnginx/internal/session"
)

const cliVersionOutput = `nginx version: nginx/1.24.0
TLS SNI support enabled
configure arguments: --with-http_ssl_module
`

const cliSiteConf = `server {
    listen 80;
    server_name example.com;
    root /var/www/example;
}
`

// cliFixture wires sessionFactory to a real Configurator over a
// throwaway server root with a mocked nginx binary.
type cliFixture struct {
	root      string
	sitePath  string
	fullchain string
	key       string
	chain     string
	exec      *executor.MockExecutor
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	root := t.TempDir()

	sitePath := filepath.Join(root, "sites-enabled", "example.conf")
	if err := os.MkdirAll(filepath.Dir(sitePath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(sitePath, []byte(cliSiteConf), 0644); err != nil {
		t.Fatal(err)
	}
	rootConf := "http {\n    include sites-enabled/*.conf;\n}\n"
	if err := os.WriteFile(filepath.Join(root, "nginx.conf"), []byte(rootConf), 0644); err != nil {
		t.Fatal(err)
	}

	certDir := t.TempDir()
	fx := &cliFixture{
		root:      root,
		sitePath:  sitePath,
		fullchain: filepath.Join(certDir, "fullchain.pem"),
		key:       filepath.Join(certDir, "privkey.pem"),
		chain:     filepath.Join(certDir, "chain.pem"),
	}
	for _, path := range []string{fx.fullchain, fx.key, fx.chain} {
		if err := os.WriteFile(path, []byte("-----BEGIN-----\n"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	fx.exec = &executor.MockExecutor{
		ExecuteSplitFunc: func(name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte(cliVersionOutput), nil
		},
	}

	cfg := config.New()
	cfg.ServerRoot = root
	cfg.WorkDir = t.TempDir()

	oldFactory := sessionFactory
	sessionFactory = func() (*session.Configurator, error) {
		c := session.New(cfg, fx.exec, nil)
		if err := c.Prepare(); err != nil {
			return nil, err
		}
		return c, nil
	}
	t.Cleanup(func() { sessionFactory = oldFactory })

	jsonOutput = false
	return fx
}

func (fx *cliFixture) site(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(fx.sitePath)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRunDeploy(t *testing.T) {
	fx := newCLIFixture(t)

	deployFlags.domain = "example.com"
	deployFlags.fullchain = fx.fullchain
	deployFlags.key = fx.key
	deployFlags.chain = ""
	deployFlags.redirect = false

	if err := runDeploy(nil, nil); err != nil {
		t.Fatalf("runDeploy failed: %v", err)
	}

	site := fx.site(t)
	if !strings.Contains(site, "ssl_certificate "+fx.fullchain) {
		t.Error("certificate directive missing after deploy")
	}
	if !strings.Contains(site, "listen 443 ssl") {
		t.Error("ssl listen missing after deploy")
	}
}

func TestRunDeployWithRedirect(t *testing.T) {
	fx := newCLIFixture(t)

	deployFlags.domain = "example.com"
	deployFlags.fullchain = fx.fullchain
	deployFlags.key = fx.key
	deployFlags.chain = ""
	deployFlags.redirect = true

	if err := runDeploy(nil, nil); err != nil {
		t.Fatalf("runDeploy failed: %v", err)
	}

	site := fx.site(t)
	if !strings.Contains(site, "return 301 https://$host$request_uri") {
		t.Error("redirect missing after deploy --redirect")
	}
}

func TestRunDeployUnknownDomain(t *testing.T) {
	fx := newCLIFixture(t)

	deployFlags.domain = "missing.example.net"
	deployFlags.fullchain = fx.fullchain
	deployFlags.key = fx.key
	deployFlags.redirect = false

	if err := runDeploy(nil, nil); err == nil {
		t.Fatal("expected error for unknown domain")
	}
}

func TestRunEnhanceStaple(t *testing.T) {
	fx := newCLIFixture(t)

	deployFlags.domain = "example.com"
	deployFlags.fullchain = fx.fullchain
	deployFlags.key = fx.key
	deployFlags.redirect = false
	if err := runDeploy(nil, nil); err != nil {
		t.Fatalf("runDeploy failed: %v", err)
	}

	enhanceFlags.domain = "example.com"
	enhanceFlags.chain = fx.chain
	if err := runEnhance(nil, []string{"staple-ocsp"}); err != nil {
		t.Fatalf("runEnhance failed: %v", err)
	}

	if !strings.Contains(fx.site(t), "ssl_stapling on") {
		t.Error("stapling directive missing after enhance")
	}
}

func TestRunEnhanceUnknownKind(t *testing.T) {
	newCLIFixture(t)

	enhanceFlags.domain = "example.com"
	enhanceFlags.chain = ""
	if err := runEnhance(nil, []string{"teleport"}); err == nil {
		t.Fatal("expected error for unknown enhancement")
	}
}
