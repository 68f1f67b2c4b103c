package parser

// tokenType represents the type of a lexer token.
type tokenType int

const (
	tokenWord    tokenType = iota // unquoted or quoted word
	tokenLBrace                   // {
	tokenRBrace                   // }
	tokenSemi                     // ;
	tokenComment                  // # to end of line
	tokenEOF
)

func (t tokenType) String() string {
	switch t {
	case tokenWord:
		return "word"
	case tokenLBrace:
		return "'{'"
	case tokenRBrace:
		return "'}'"
	case tokenSemi:
		return "';'"
	case tokenComment:
		return "comment"
	case tokenEOF:
		return "end of file"
	default:
		return "unknown"
	}
}

// token is a single lexer token. Value holds the raw source text of
// word tokens (quotes included) and the text after '#' for comments.
type token struct {
	typ   tokenType
	value string
	line  int
}

// lexer tokenizes nginx configuration text. It splits on whitespace
// while respecting single- and double-quoted strings with backslash
// escapes, and emits '{', '}', ';' and comments as their own tokens.
type lexer struct {
	input string
	pos   int
	line  int
}

func newLexer(input string) *lexer {
	return &lexer{input: input, line: 1}
}

// next returns the next token, advancing the position. A malformed
// token (unterminated string) is returned as a *ParseError.
func (l *lexer) next() (token, *ParseError) {
	l.skipWhitespace()

	if l.pos >= len(l.input) {
		return token{typ: tokenEOF, line: l.line}, nil
	}

	ch := l.input[l.pos]
	line := l.line

	switch ch {
	case '{':
		l.pos++
		return token{typ: tokenLBrace, value: "{", line: line}, nil
	case '}':
		l.pos++
		return token{typ: tokenRBrace, value: "}", line: line}, nil
	case ';':
		l.pos++
		return token{typ: tokenSemi, value: ";", line: line}, nil
	case '#':
		return l.readComment(line), nil
	case '"', '\'':
		return l.readQuoted(ch, line)
	default:
		return l.readWord(line), nil
	}
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\r':
			l.pos++
		case '\n':
			l.line++
			l.pos++
		default:
			return
		}
	}
}

// readComment consumes '#' through end of line. The '#' itself is not
// part of the value.
func (l *lexer) readComment(line int) token {
	l.pos++ // consume '#'
	start := l.pos
	for l.pos < len(l.input) && l.input[l.pos] != '\n' {
		l.pos++
	}
	return token{typ: tokenComment, value: l.input[start:l.pos], line: line}
}

// readQuoted consumes a quoted string including both quote characters.
// Backslash escapes the next character, including the quote and
// backslash itself.
func (l *lexer) readQuoted(quote byte, line int) (token, *ParseError) {
	start := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			if l.input[l.pos+1] == '\n' {
				l.line++
			}
			l.pos += 2
			continue
		}
		if ch == '\n' {
			l.line++
		}
		if ch == quote {
			l.pos++
			return token{typ: tokenWord, value: l.input[start:l.pos], line: line}, nil
		}
		l.pos++
	}
	return token{}, &ParseError{Line: line, Reason: "unterminated string"}
}

// readWord consumes an unquoted word up to whitespace or a structural
// character. Backslash escapes keep the following character in the
// word, matching how nginx tolerates escaped spaces.
func (l *lexer) readWord(line int) token {
	start := l.pos
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.pos += 2
			continue
		}
		switch ch {
		case ' ', '\t', '\r', '\n', '{', '}', ';', '#', '"', '\'':
			return token{typ: tokenWord, value: l.input[start:l.pos], line: line}
		}
		l.pos++
	}
	return token{typ: tokenWord, value: l.input[start:l.pos], line: line}
}
