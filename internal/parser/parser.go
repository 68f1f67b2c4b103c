package parser

import "fmt"

// ParseError describes a syntax error in configuration text.
type ParseError struct {
	Line   int
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Parse tokenizes and parses one configuration file's text into a
// block tree. The path is recorded on the returned ParsedFile but the
// parser itself never touches the filesystem.
//
// Parse fails with a *ParseError on unterminated strings, unbalanced
// braces, or a directive missing its ';' terminator. On failure no
// partial tree is returned.
func Parse(path, text string) (*ParsedFile, error) {
	p := &treeParser{lex: newLexer(text)}
	blocks, err := p.parseSequence(0)
	if err != nil {
		return nil, err
	}
	return NewParsedFile(path, blocks), nil
}

// treeParser is a recursive-descent parser over the lexer's tokens.
type treeParser struct {
	lex *lexer
}

// parseSequence parses a sequence of nodes until the closing '}' of the
// enclosing block (depth > 0) or end of input (depth == 0). Nested
// blocks recurse with no fixed depth limit.
func (p *treeParser) parseSequence(depth int) ([]*Block, error) {
	var nodes []*Block

	// Tokens accumulated toward the current directive or block header.
	var pending []string
	pendingLine := 0

	for {
		tok, lexErr := p.lex.next()
		if lexErr != nil {
			return nil, lexErr
		}

		switch tok.typ {
		case tokenWord:
			if len(pending) == 0 {
				pendingLine = tok.line
			}
			pending = append(pending, tok.value)

		case tokenSemi:
			if len(pending) == 0 {
				return nil, &ParseError{Line: tok.line, Reason: "unexpected ';'"}
			}
			nodes = append(nodes, &Block{
				Kind:   KindDirective,
				Tokens: pending,
				Line:   pendingLine,
			})
			pending = nil

		case tokenLBrace:
			if len(pending) == 0 {
				return nil, &ParseError{Line: tok.line, Reason: "unexpected '{'"}
			}
			children, err := p.parseSequence(depth + 1)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, &Block{
				Kind:     KindBlock,
				Tokens:   pending,
				Children: children,
				Line:     pendingLine,
			})
			pending = nil

		case tokenRBrace:
			if len(pending) > 0 {
				return nil, &ParseError{Line: tok.line, Reason: "unexpected '}', expecting ';'"}
			}
			if depth == 0 {
				return nil, &ParseError{Line: tok.line, Reason: "unexpected '}'"}
			}
			return nodes, nil

		case tokenComment:
			// Comments are retained as nodes so the tree round-trips.
			nodes = append(nodes, &Block{
				Kind:    KindComment,
				Comment: tok.value,
				Line:    tok.line,
			})

		case tokenEOF:
			if len(pending) > 0 {
				return nil, &ParseError{Line: pendingLine, Reason: "unexpected end of file, expecting ';'"}
			}
			if depth > 0 {
				return nil, &ParseError{Line: tok.line, Reason: "unexpected end of file, expecting '}'"}
			}
			return nodes, nil
		}
	}
}
