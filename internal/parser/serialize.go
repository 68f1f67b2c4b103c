package parser

import "strings"

// indent is the serialization indent per nesting level.
const indent = "    "

// Dump re-serializes a parsed file back to configuration text.
// Token values, order, and nesting are reproduced exactly; original
// inter-token whitespace is normalized to one space and one directive
// per line, which nginx treats identically.
func Dump(f *ParsedFile) string {
	var b strings.Builder
	dumpSequence(&b, f.Blocks, 0)
	return b.String()
}

func dumpSequence(b *strings.Builder, nodes []*Block, depth int) {
	prefix := strings.Repeat(indent, depth)
	for _, node := range nodes {
		switch node.Kind {
		case KindDirective:
			b.WriteString(prefix)
			b.WriteString(strings.Join(node.Tokens, " "))
			b.WriteString(";\n")
		case KindComment:
			b.WriteString(prefix)
			b.WriteString("#")
			b.WriteString(node.Comment)
			b.WriteString("\n")
		case KindBlock:
			b.WriteString(prefix)
			b.WriteString(strings.Join(node.Tokens, " "))
			b.WriteString(" {\n")
			dumpSequence(b, node.Children, depth+1)
			b.WriteString(prefix)
			b.WriteString("}\n")
		}
	}
}

// Unquote strips one level of surrounding single or double quotes from
// a token and resolves backslash escapes of the quote character. Tokens
// are stored verbatim, so code that interprets a value (an include
// path, a certificate path, a server name) goes through Unquote first.
func Unquote(tok string) string {
	if len(tok) < 2 {
		return tok
	}
	quote := tok[0]
	if (quote != '"' && quote != '\'') || tok[len(tok)-1] != quote {
		return tok
	}
	inner := tok[1 : len(tok)-1]
	if !strings.Contains(inner, "\\") {
		return inner
	}
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		b.WriteByte(inner[i])
	}
	return b.String()
}

// Equal reports whether two block sequences are structurally identical:
// same kinds, token values, comments, and nesting in the same order.
// Line numbers are ignored.
func Equal(a, b []*Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalBlock(a[i], b[i]) {
			return false
		}
	}
	return true
}

func equalBlock(a, b *Block) bool {
	if a.Kind != b.Kind || a.Comment != b.Comment {
		return false
	}
	if len(a.Tokens) != len(b.Tokens) {
		return false
	}
	for i := range a.Tokens {
		if a.Tokens[i] != b.Tokens[i] {
			return false
		}
	}
	return Equal(a.Children, b.Children)
}
