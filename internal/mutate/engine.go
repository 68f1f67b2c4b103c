package mutate

import (
	"github.com/ksyq12/certnginx/internal/parser"
)

// ManagedMarker is the comment text that tags every directive or block
// this engine inserts. A later pass recognizes the marker and can skip
// or replace managed content without re-deriving its meaning.
const ManagedMarker = " managed by certnginx"

// Mode selects how AddDirectives treats an already-present directive.
type Mode int

const (
	// ReplaceIfExists overwrites the value of an existing directive
	// with the same name. Used for keys that must be singular, such as
	// certificate paths.
	ReplaceIfExists Mode = iota

	// AppendIfAbsent appends the directive unless an identical one is
	// already present. Used for additive content where duplicates must
	// be prevented.
	AppendIfAbsent
)

// marker creates a managed marker comment node.
func marker() *parser.Block {
	return &parser.Block{Kind: parser.KindComment, Comment: ManagedMarker}
}

// isMarker reports whether a node is a managed marker comment.
func isMarker(b *parser.Block) bool {
	return b != nil && b.Kind == parser.KindComment && b.Comment == ManagedMarker
}

// managedAt reports whether the node at index i in children is tagged
// with a trailing managed marker.
func managedAt(children []*parser.Block, i int) bool {
	return i+1 < len(children) && isMarker(children[i+1])
}

// findDirective returns the index of the first directive named name in
// children, or -1.
func findDirective(children []*parser.Block, name string) int {
	for i, b := range children {
		if b.IsDirective(name) {
			return i
		}
	}
	return -1
}

// findExactDirective returns the index of the first directive whose
// token sequence equals tokens exactly, or -1.
func findExactDirective(children []*parser.Block, tokens []string) int {
	for i, b := range children {
		if b.Kind != parser.KindDirective || len(b.Tokens) != len(tokens) {
			continue
		}
		same := true
		for j := range tokens {
			if b.Tokens[j] != tokens[j] {
				same = false
				break
			}
		}
		if same {
			return i
		}
	}
	return -1
}

// AddDirectives inserts directives into the server block at blockPath,
// tagging every insertion with the managed marker. The file's version
// counter advances when anything changed; re-applying the same set is
// a no-op.
func AddDirectives(f *parser.ParsedFile, blockPath []int, directives [][]string, mode Mode) error {
	block, err := f.BlockAt(blockPath)
	if err != nil {
		return err
	}

	changed := false
	for _, tokens := range directives {
		if addDirective(block, tokens, mode) {
			changed = true
		}
	}
	if changed {
		f.MarkMutated()
	}
	return nil
}

// addDirective applies one directive to a block, reporting whether the
// tree changed.
func addDirective(block *parser.Block, tokens []string, mode Mode) bool {
	switch mode {
	case ReplaceIfExists:
		if i := findDirective(block.Children, tokens[0]); i >= 0 {
			existing := block.Children[i]
			if findExactDirective(block.Children[i:i+1], tokens) == 0 {
				// Same value already present; just make sure it is tagged.
				return ensureMarker(block, i)
			}
			existing.Tokens = append([]string(nil), tokens...)
			ensureMarker(block, i)
			return true
		}
	case AppendIfAbsent:
		if i := findExactDirective(block.Children, tokens); i >= 0 {
			return ensureMarker(block, i)
		}
	}

	block.Children = append(block.Children,
		&parser.Block{Kind: parser.KindDirective, Tokens: append([]string(nil), tokens...)},
		marker())
	return true
}

// ensureMarker tags the directive at index i with a managed marker if
// it does not already carry one, reporting whether the tree changed.
func ensureMarker(block *parser.Block, i int) bool {
	if managedAt(block.Children, i) {
		return false
	}
	children := append([]*parser.Block(nil), block.Children[:i+1]...)
	children = append(children, marker())
	children = append(children, block.Children[i+1:]...)
	block.Children = children
	return true
}
