package mutate

import (
	"github.com/ksyq12/certnginx/internal/parser"
	"github.com/ksyq12/certnginx/internal/vhost"
)

// RedirectResult distinguishes the informational no-op outcomes of a
// redirect enhancement from an actual insertion.
type RedirectResult int

const (
	// RedirectAdded means the redirect block was inserted.
	RedirectAdded RedirectResult = iota

	// RedirectAlreadyManaged means a redirect for this host, tagged as
	// engine-managed, is already present. Informational, not an error.
	RedirectAlreadyManaged

	// RedirectNoInsecureListen means the block has no plaintext listen
	// on the port, so there is no insecure traffic to redirect.
	// Informational, not an error.
	RedirectNoInsecureListen
)

// redirectIf builds the conditional block that redirects requests for
// exactly the given host to https.
func redirectIf(domain string) *parser.Block {
	return &parser.Block{
		Kind:   parser.KindBlock,
		Tokens: []string{"if", "($host", "=", domain + ")"},
		Children: []*parser.Block{
			{Kind: parser.KindDirective, Tokens: []string{"return", "301", "https://$host$request_uri"}},
		},
	}
}

// hasManagedRedirect reports whether the block already carries an
// engine-managed redirect conditional for the domain.
func hasManagedRedirect(block *parser.Block, domain string) bool {
	want := redirectIf(domain)
	for i, child := range block.Children {
		if child.Kind != parser.KindBlock || child.Name() != "if" {
			continue
		}
		if !managedAt(block.Children, i) {
			continue
		}
		if parser.Equal([]*parser.Block{child}, []*parser.Block{want}) {
			return true
		}
	}
	return false
}

// AddRedirect inserts an http-to-https redirect into the vhost's server
// block, one conditional per host the block actually serves. Each
// conditional answers its exact host with a 301 and the catch-all
// answers everything else on the block with a 404, so plaintext traffic
// cannot fall through to the now ssl-served content.
//
// When the block mixes ssl and plaintext listen directives the
// plaintext side is split into a dedicated server block carrying the
// same names, keeping the ssl block free of insecure listens.
func AddRedirect(f *parser.ParsedFile, v *vhost.VirtualHost, domains []string, port string) (RedirectResult, error) {
	block, err := v.Block(f)
	if err != nil {
		return 0, err
	}

	var missing []string
	for _, d := range domains {
		if !hasManagedRedirect(block, d) {
			missing = append(missing, d)
		}
	}
	if len(missing) == 0 {
		return RedirectAlreadyManaged, nil
	}
	if !v.ListensOn(port, true) {
		return RedirectNoInsecureListen, nil
	}

	if v.SSLEnabled() {
		if err := splitForRedirect(f, v, missing); err != nil {
			return 0, err
		}
		return RedirectAdded, nil
	}

	insertRedirect(block, missing)
	f.MarkMutated()
	return RedirectAdded, nil
}

// insertRedirect prepends the conditionals and appends the catch-all
// deny to an all-plaintext server block.
func insertRedirect(block *parser.Block, domains []string) {
	var head []*parser.Block
	for _, d := range domains {
		head = append(head, redirectIf(d), marker())
	}
	block.Children = append(head, block.Children...)
	addDirective(block, []string{"return", "404"}, AppendIfAbsent)
}

// splitForRedirect moves the plaintext listen directives of a mixed
// ssl/plaintext block into a new server block that carries the same
// server names plus the redirect, appended directly after the original
// block in its parent.
func splitForRedirect(f *parser.ParsedFile, v *vhost.VirtualHost, domains []string) error {
	block, err := f.BlockAt(v.Path)
	if err != nil {
		return err
	}

	var kept, plainListens, names []*parser.Block
	for _, child := range block.Children {
		switch {
		case child.Kind == parser.KindDirective && child.Name() == "listen":
			if a := vhost.ParseAddr(child.Args()); a != nil && !a.SSL {
				plainListens = append(plainListens, child)
				continue
			}
			kept = append(kept, child)
		case child.Kind == parser.KindDirective && child.Name() == "server_name":
			names = append(names, child.Clone())
			kept = append(kept, child)
		default:
			kept = append(kept, child)
		}
	}
	block.Children = kept

	split := &parser.Block{
		Kind:   parser.KindBlock,
		Tokens: []string{"server"},
	}
	for _, d := range domains {
		split.Children = append(split.Children, redirectIf(d), marker())
	}
	split.Children = append(split.Children, plainListens...)
	split.Children = append(split.Children, names...)
	split.Children = append(split.Children,
		&parser.Block{Kind: parser.KindDirective, Tokens: []string{"return", "404"}},
		marker())

	if err := insertAfter(f, v.Path, split); err != nil {
		return err
	}
	f.MarkMutated()
	return nil
}

// insertAfter places node directly after the block at path within its
// parent's child sequence (or the file root for a top-level path).
func insertAfter(f *parser.ParsedFile, path []int, node *parser.Block) error {
	idx := path[len(path)-1]
	if len(path) == 1 {
		f.Blocks = insertAt(f.Blocks, idx+1, node)
		return nil
	}
	parent, err := f.BlockAt(path[:len(path)-1])
	if err != nil {
		return err
	}
	parent.Children = insertAt(parent.Children, idx+1, node)
	return nil
}

func insertAt(nodes []*parser.Block, i int, node *parser.Block) []*parser.Block {
	out := append([]*parser.Block(nil), nodes[:i]...)
	out = append(out, node)
	out = append(out, nodes[i:]...)
	return out
}
