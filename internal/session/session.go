// Package session ties the configurator together: one session owns
// the server-root lock, the parsed configuration store, the reverter
// and the nginx process manager, and sequences every deployment as
// lock, mutate in memory, snapshot, write, validate, commit, reload.
// Any failure after the first write restores the pending snapshot
// before the error propagates.
package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ksyq12/certnginx/internal/challenge"
	"github.com/ksyq12/certnginx/internal/config"
	"github.com/ksyq12/certnginx/internal/errors"
	"github.com/ksyq12/certnginx/internal/executor"
	"github.com/ksyq12/certnginx/internal/logger"
	"github.com/ksyq12/certnginx/internal/mutate"
	"github.com/ksyq12/certnginx/internal/nginx"
	"github.com/ksyq12/certnginx/internal/parser"
	"github.com/ksyq12/certnginx/internal/reverter"
	"github.com/ksyq12/certnginx/internal/ssl"
	"github.com/ksyq12/certnginx/internal/store"
	"github.com/ksyq12/certnginx/internal/vhost"
)

// CertPaths names the certificate material for one deployment.
type CertPaths struct {
	Fullchain string
	Key       string
	Chain     string
}

// Configurator is one exclusive configuration session over a server
// root. Construct with New, call Prepare before anything else and
// Close when done.
type Configurator struct {
	cfg      *config.Config
	exec     executor.CommandExecutor
	selector vhost.Selector

	lock    *reverter.Lock
	rev     *reverter.Reverter
	mgr     *nginx.Manager
	version *nginx.Version
	store   *store.Store
	vhosts  []*vhost.VirtualHost

	// Wildcard selections are remembered per pattern for the session,
	// separately for ssl-preferring and plain requests, so the operator
	// answers each question once.
	wildcardSSL   map[string][]*vhost.VirtualHost
	wildcardPlain map[string][]*vhost.VirtualHost
}

// New creates an unprepared Configurator. The selector resolves
// multi-candidate wildcard requests and ambiguous name ties; nil
// declines them all.
func New(cfg *config.Config, exec executor.CommandExecutor, selector vhost.Selector) *Configurator {
	return &Configurator{
		cfg:      cfg,
		exec:     exec,
		selector: selector,
		mgr:      nginx.New(cfg.NginxBinary, exec),
	}
}

// Prepare acquires the session lock, recovers any interrupted state,
// probes the nginx version and loads the configuration tree.
func (c *Configurator) Prepare() error {
	lock, err := reverter.AcquireLock(c.cfg.ServerRoot)
	if err != nil {
		return err
	}
	c.lock = lock

	rev, err := reverter.New(c.cfg.WorkDir)
	if err != nil {
		c.Close()
		return err
	}
	c.rev = rev

	if recovered, err := rev.Recover(); err != nil {
		c.Close()
		return err
	} else if recovered {
		logger.Warn("recovered configuration from an interrupted session")
	}

	version, err := c.mgr.Version()
	if err != nil {
		c.Close()
		return err
	}
	c.version = version

	s, err := store.New(c.cfg.ServerRoot, c.cfg.RootFile)
	if err != nil {
		c.Close()
		return err
	}
	c.store = s

	if err := c.load(); err != nil {
		c.Close()
		return err
	}
	return nil
}

// Close releases the session lock. Safe to call more than once.
func (c *Configurator) Close() error {
	if c.lock == nil {
		return nil
	}
	lock := c.lock
	c.lock = nil
	return lock.Release()
}

// load rebuilds the store and the vhost views, discarding uncommitted
// in-memory edits wholesale.
func (c *Configurator) load() error {
	if err := c.store.Load(); err != nil {
		return err
	}
	c.vhosts = vhost.Extract(c.store)
	c.wildcardSSL = make(map[string][]*vhost.VirtualHost)
	c.wildcardPlain = make(map[string][]*vhost.VirtualHost)
	return nil
}

// Version returns the probed nginx version.
func (c *Configurator) Version() *nginx.Version {
	return c.version
}

// Vhosts returns the current virtual host views.
func (c *Configurator) Vhosts() []*vhost.VirtualHost {
	return c.vhosts
}

// AllNames returns every concrete server name in the configuration,
// sorted and deduplicated. Regex and wildcard names are skipped since
// they cannot be deployed to directly.
func (c *Configurator) AllNames() []string {
	seen := make(map[string]bool)
	for _, v := range c.vhosts {
		for _, name := range v.Names {
			if strings.HasPrefix(name, "~") || strings.Contains(name, "*") {
				continue
			}
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deploy installs the certificate into every server block serving the
// domain. The fullchain is validated before anything is touched; the
// whole change set is config-tested and committed atomically, and any
// failure after the first write restores the previous state.
func (c *Configurator) Deploy(domain string, certs CertPaths) error {
	if err := ssl.ValidateCertPaths(certs.Fullchain, certs.Key); err != nil {
		return err
	}

	targets, err := c.resolve(domain, true)
	if err != nil {
		return err
	}

	optionsPath, err := ssl.InstallOptions(c.cfg.WorkDir)
	if err != nil {
		return err
	}
	// nginx accepts the ipv6only listen parameter once per port, so an
	// injected IPv6 listen must not repeat it.
	_, ipv6only := vhost.IPv6Info(c.vhosts, c.cfg.SSLPort)
	params := mutate.DeployParams{
		KeyPath:       certs.Key,
		FullchainPath: certs.Fullchain,
		OptionsPath:   optionsPath,
		DHParamPath:   c.cfg.DHParamPath,
		SSLPort:       c.cfg.SSLPort,
		IPv6OnlySet:   ipv6only,
	}

	for _, v := range targets {
		f, fresh, err := c.view(v)
		if err != nil {
			return c.discard(err)
		}
		logger.Info("deploying certificate for %s into %s", domain, fresh.FilePath)
		if err := mutate.DeployCert(f, fresh, params); err != nil {
			return c.discard(err)
		}
	}

	return c.finalize(fmt.Sprintf("deploy %s", domain))
}

// Enhance applies a named enhancement to every server block serving
// the domain. Supported kinds are "redirect" and "staple-ocsp";
// stapling needs the chain path and an nginx new enough to serve
// stapled responses.
func (c *Configurator) Enhance(domain, kind, chainPath string) error {
	switch kind {
	case "redirect":
		return c.enhanceRedirect(domain)
	case "staple-ocsp":
		return c.enhanceStaple(domain, chainPath)
	default:
		return errors.Validation(fmt.Sprintf("unknown enhancement %q (supported: redirect, staple-ocsp)", kind))
	}
}

// enhanceRedirect resolves with the ssl-preferring matcher: after a
// mixed block was split the same names appear on both halves, and
// preferring the ssl side keeps a re-run a clean no-op.
func (c *Configurator) enhanceRedirect(domain string) error {
	targets, err := c.resolve(domain, true)
	if err != nil {
		return err
	}

	for _, v := range targets {
		f, fresh, err := c.view(v)
		if err != nil {
			return c.discard(err)
		}
		hosts := redirectHosts(domain, fresh)
		if len(hosts) == 0 {
			logger.Warn("%s serves no concrete name under %s, skipping redirect", fresh.FilePath, domain)
			continue
		}
		res, err := mutate.AddRedirect(f, fresh, hosts, vhost.DefaultPort)
		if err != nil {
			return c.discard(err)
		}
		switch res {
		case mutate.RedirectAlreadyManaged:
			logger.Info("redirect already in place in %s", fresh.FilePath)
		case mutate.RedirectNoInsecureListen:
			logger.Info("%s has no plaintext listen, nothing to redirect", fresh.FilePath)
		default:
			logger.Info("added redirect for %s in %s", strings.Join(hosts, " "), fresh.FilePath)
		}
	}

	return c.finalize(fmt.Sprintf("redirect %s", domain))
}

func (c *Configurator) enhanceStaple(domain, chainPath string) error {
	if chainPath == "" {
		return errors.Validation("staple-ocsp requires a certificate chain path")
	}
	if !c.version.SupportsStapling() {
		return errors.Unsupported(fmt.Sprintf("%s (OCSP stapling needs nginx 1.3.7 or newer)", c.version))
	}

	targets, err := c.resolve(domain, true)
	if err != nil {
		return err
	}

	for _, v := range targets {
		f, fresh, err := c.view(v)
		if err != nil {
			return c.discard(err)
		}
		if err := mutate.StapleOCSP(f, fresh, stripWildcard(domain), chainPath); err != nil {
			return c.discard(err)
		}
	}

	return c.finalize(fmt.Sprintf("staple-ocsp %s", domain))
}

// DeployChallenges writes the temporary http-01 answer config under
// the challenge checkpoint and reloads nginx to serve it.
func (c *Configurator) DeployChallenges(challenges []challenge.Challenge) error {
	if _, err := challenge.Deploy(c.store, challengeCheckpointer{c.rev}, vhost.DefaultPort, challenges); err != nil {
		return c.discard(err)
	}
	if err := c.mgr.ConfigTest(c.cfg.RootFilePath()); err != nil {
		return c.abortChallenge(err)
	}
	if err := c.mgr.Reload(); err != nil {
		return c.abortChallenge(err)
	}
	return c.load()
}

// RevertChallenge removes the temporary challenge configuration and
// reloads both nginx and the in-memory tree.
func (c *Configurator) RevertChallenge() error {
	if err := c.rev.RevertTemporary(); err != nil {
		return err
	}
	if err := c.mgr.Reload(); err != nil {
		logger.Warn("nginx reload after challenge cleanup failed: %v", err)
	}
	return c.load()
}

// Rollback restores the n most recent committed change sets and
// reloads everything.
func (c *Configurator) Rollback(n int) error {
	if err := c.rev.Rollback(n); err != nil {
		return err
	}
	if err := c.mgr.Reload(); err != nil {
		logger.Warn("nginx reload after rollback failed: %v", err)
	}
	return c.load()
}

// Checkpoints lists the committed change sets, oldest first.
func (c *Configurator) Checkpoints() ([]reverter.CheckpointInfo, error) {
	return c.rev.Checkpoints()
}

// ConfigTest validates the on-disk configuration.
func (c *Configurator) ConfigTest() error {
	return c.mgr.ConfigTest(c.cfg.RootFilePath())
}

// resolve maps a requested domain to its target server blocks, going
// through the wildcard machinery for leading-star requests.
func (c *Configurator) resolve(domain string, preferSSL bool) ([]*vhost.VirtualHost, error) {
	if vhost.IsWildcardDomain(domain) {
		return c.resolveWildcard(domain, preferSSL)
	}

	opts := vhost.Options{PreferSSL: preferSSL}
	v, err := vhost.Match(domain, c.vhosts, opts)
	if err != nil {
		if errors.Is(err, errors.ErrAmbiguous) && c.selector != nil {
			if resolved := c.selectOne(domain, opts); resolved != nil {
				return []*vhost.VirtualHost{resolved}, nil
			}
		}
		return nil, err
	}
	return []*vhost.VirtualHost{v}, nil
}

// selectOne puts a tied candidate set to the selector; exactly one
// choice resolves the tie, anything else leaves the ambiguity standing.
func (c *Configurator) selectOne(domain string, opts vhost.Options) *vhost.VirtualHost {
	candidates := vhost.Candidates(domain, c.vhosts, opts)
	if len(candidates) < 2 {
		return nil
	}
	chosen := c.selector(candidates)
	if len(chosen) != 1 {
		return nil
	}
	opts.Resolved = chosen[0]
	resolved, err := vhost.Match(domain, c.vhosts, opts)
	if err != nil {
		return nil
	}
	return resolved
}

// resolveWildcard selects the blocks covered by a wildcard request,
// asking the selector when several qualify and remembering the answer
// for the rest of the session.
func (c *Configurator) resolveWildcard(pattern string, preferSSL bool) ([]*vhost.VirtualHost, error) {
	cache := c.wildcardPlain
	if preferSSL {
		cache = c.wildcardSSL
	}
	if cached, ok := cache[pattern]; ok {
		return cached, nil
	}

	candidates := vhost.MatchAllWildcard(pattern, c.vhosts)
	if !preferSSL {
		candidates = vhost.FilterInsecurePort(candidates, vhost.DefaultPort)
	}
	if len(candidates) == 0 {
		return nil, errors.NoMatch(pattern)
	}

	chosen := candidates
	if len(candidates) > 1 {
		if c.selector == nil {
			return nil, errors.Ambiguous(pattern, describe(candidates))
		}
		chosen = c.selector(candidates)
		if len(chosen) == 0 {
			return nil, errors.NoMatch(pattern)
		}
	}

	cache[pattern] = chosen
	return chosen, nil
}

// view returns the parsed file owning v plus a fresh, non-stale view
// of the same server block. Views go stale as soon as any mutation
// touches their file, and a sibling insertion shifts every later
// block's index path, so re-binding goes by routing identity (names
// plus listen set) with the stored path only breaking ties between
// literally identical blocks.
func (c *Configurator) view(v *vhost.VirtualHost) (f *parser.ParsedFile, fresh *vhost.VirtualHost, err error) {
	parsed, ok := c.store.Get(v.FilePath)
	if !ok {
		return nil, nil, errors.Wrap(errors.ErrCodeInternal,
			fmt.Sprintf("%s not loaded", v.FilePath), nil)
	}
	var matched []*vhost.VirtualHost
	for _, candidate := range vhost.ExtractFile(parsed) {
		if candidate.SameIdentity(v) {
			matched = append(matched, candidate)
		}
	}
	if len(matched) == 1 {
		return parsed, matched[0], nil
	}
	for _, candidate := range matched {
		if samePath(candidate.Path, v.Path) {
			return parsed, candidate, nil
		}
	}
	return nil, nil, errors.Wrap(errors.ErrCodeInternal,
		fmt.Sprintf("server block %v no longer present in %s", v.Path, v.FilePath), nil)
}

// finalize writes the pending change set: snapshot + save, validate,
// commit, reload. Failures before the commit restore the snapshots;
// a reload failure after the commit rolls the committed set back.
func (c *Configurator) finalize(title string) error {
	if len(c.store.Dirty()) == 0 {
		logger.Debug("no configuration changes for %q", title)
		return nil
	}

	if err := c.store.Save(c.rev); err != nil {
		return c.abortPending(err)
	}
	if err := c.mgr.ConfigTest(c.cfg.RootFilePath()); err != nil {
		return c.abortPending(err)
	}
	if err := c.rev.Commit(title); err != nil {
		return c.abortPending(err)
	}

	if err := c.mgr.Reload(); err != nil {
		logger.Error("nginx reload failed, rolling back %q", title)
		if rbErr := c.rev.Rollback(1); rbErr != nil {
			return errors.Wrap(errors.ErrCodeRevert,
				"reload failed and rollback failed too, manual intervention required", rbErr)
		}
		if loadErr := c.load(); loadErr != nil {
			return loadErr
		}
		return errors.Wrap(errors.ErrCodeMisconfig, "nginx reload failed, changes rolled back", err)
	}

	return c.load()
}

// abortPending restores any snapshots taken for the pending set and
// discards in-memory edits, then propagates err. The challenge set is
// left alone so an active challenge stays served.
func (c *Configurator) abortPending(err error) error {
	if recErr := c.rev.RevertPending(); recErr != nil {
		logger.Error("failed to restore pending snapshots: %v", recErr)
	}
	return c.discard(err)
}

// abortChallenge restores the challenge set after a failed challenge
// deployment, then propagates err.
func (c *Configurator) abortChallenge(err error) error {
	if recErr := c.rev.RevertTemporary(); recErr != nil {
		logger.Error("failed to restore challenge snapshots: %v", recErr)
	}
	return c.discard(err)
}

// discard drops in-memory edits by reloading the tree, then
// propagates err.
func (c *Configurator) discard(err error) error {
	if loadErr := c.load(); loadErr != nil {
		logger.Error("failed to reload configuration: %v", loadErr)
	}
	return err
}

// challengeCheckpointer routes store snapshots into the reverter's
// temporary challenge set.
type challengeCheckpointer struct {
	rev *reverter.Reverter
}

func (c challengeCheckpointer) AddToCheckpoint(paths []string) error {
	return c.rev.AddToChallengeCheckpoint(paths)
}

func samePath(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// stripWildcard turns a wildcard request into the apex name used for
// per-block enhancement bookkeeping.
func stripWildcard(domain string) string {
	return strings.TrimPrefix(domain, "*.")
}

// redirectHosts lists the hosts a redirect conditional should answer
// for one target block: the literal domain, or for a wildcard request
// the block's own concrete names covered by the pattern, so the
// conditionals answer the names the block actually serves.
func redirectHosts(domain string, v *vhost.VirtualHost) []string {
	if !vhost.IsWildcardDomain(domain) {
		return []string{domain}
	}
	return vhost.CoveredNames(domain, v)
}

func describe(vhosts []*vhost.VirtualHost) []string {
	out := make([]string, len(vhosts))
	for i, v := range vhosts {
		out[i] = v.String()
	}
	return out
}
