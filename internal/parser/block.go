package parser

import "fmt"

// Kind discriminates the three node variants of a configuration tree.
type Kind int

const (
	// KindDirective is a simple directive terminated by ';',
	// e.g. "listen 443 ssl;".
	KindDirective Kind = iota

	// KindBlock is a braced block with a header token sequence,
	// e.g. "server { ... }" or "location / { ... }".
	KindBlock

	// KindComment is a '#' comment retained verbatim so the tree
	// round-trips without losing annotations.
	KindComment
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindDirective:
		return "directive"
	case KindBlock:
		return "block"
	case KindComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Block is a node in the configuration tree. Exactly one variant is
// populated depending on Kind:
//
//   - KindDirective: Tokens holds the directive words.
//   - KindBlock: Tokens holds the header words, Children the body.
//   - KindComment: Comment holds the text after '#', untrimmed.
//
// Token values are kept as they appear in the source, including any
// surrounding quotes, so serialization reproduces them verbatim.
// Child order is semantically significant and must be preserved.
type Block struct {
	Kind     Kind
	Tokens   []string
	Children []*Block
	Comment  string

	// Line is the source line the node started on, for error reporting.
	Line int
}

// Name returns the first token of a directive or block header.
func (b *Block) Name() string {
	if len(b.Tokens) == 0 {
		return ""
	}
	return b.Tokens[0]
}

// Args returns the tokens after the name.
func (b *Block) Args() []string {
	if len(b.Tokens) < 2 {
		return nil
	}
	return b.Tokens[1:]
}

// IsDirective reports whether the node is a directive named name.
func (b *Block) IsDirective(name string) bool {
	return b.Kind == KindDirective && b.Name() == name
}

// IsBlock reports whether the node is a block whose header starts with name.
func (b *Block) IsBlock(name string) bool {
	return b.Kind == KindBlock && b.Name() == name
}

// Clone returns a deep copy of the node.
func (b *Block) Clone() *Block {
	c := &Block{
		Kind:    b.Kind,
		Tokens:  append([]string(nil), b.Tokens...),
		Comment: b.Comment,
		Line:    b.Line,
	}
	if b.Children != nil {
		c.Children = make([]*Block, len(b.Children))
		for i, child := range b.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// ParsedFile owns one file's root sequence of blocks. The version
// counter advances on every structural mutation; derived views (such as
// extracted virtual hosts) record the version they were built against
// and must be discarded when it changes.
type ParsedFile struct {
	Path   string
	Blocks []*Block

	version int
	dirty   bool
}

// NewParsedFile wraps a root block sequence for the given path.
func NewParsedFile(path string, blocks []*Block) *ParsedFile {
	return &ParsedFile{Path: path, Blocks: blocks}
}

// Version returns the structural version counter.
func (f *ParsedFile) Version() int {
	return f.version
}

// Dirty reports whether the tree has been mutated since load.
func (f *ParsedFile) Dirty() bool {
	return f.dirty
}

// MarkMutated records a structural mutation, advancing the version
// counter and flagging the file for the next save.
func (f *ParsedFile) MarkMutated() {
	f.version++
	f.dirty = true
}

// MarkSaved clears the dirty flag after the tree has been written back
// to disk. The version counter is left alone; views built against an
// earlier version stay stale.
func (f *ParsedFile) MarkSaved() {
	f.dirty = false
}

// BlockAt resolves a child-index path from the file root to a node.
// An empty path is invalid; paths address nodes, not the root sequence.
func (f *ParsedFile) BlockAt(path []int) (*Block, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("empty block path in %s", f.Path)
	}
	nodes := f.Blocks
	var node *Block
	for depth, idx := range path {
		if idx < 0 || idx >= len(nodes) {
			return nil, fmt.Errorf("block path %v out of range at depth %d in %s", path, depth, f.Path)
		}
		node = nodes[idx]
		nodes = node.Children
	}
	return node, nil
}
