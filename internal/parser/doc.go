// Package parser implements the nginx configuration tree parser.
//
// The parser turns one file's text into a tree of Block nodes without
// any knowledge of domains or certificates. A Block is a tagged
// variant: a directive (ordered token sequence), a braced block
// (header tokens plus ordered children), or a retained comment.
//
// # Parsing
//
//	file, err := parser.Parse("/etc/nginx/nginx.conf", text)
//	if err != nil {
//	    var pe *parser.ParseError
//	    if errors.As(err, &pe) {
//	        // pe.Line, pe.Reason
//	    }
//	}
//
// Tokenization splits on whitespace while respecting single- and
// double-quoted strings with backslash escapes. '{' and '}' delimit
// blocks, ';' terminates directives, and '#' starts a line comment that
// is kept as a node of comment kind. Nesting recurses with no fixed
// depth limit.
//
// # Round-tripping
//
// Dump re-serializes a tree with normalized whitespace. The guarantee
// is structural: parsing the dump of an unmodified tree yields a tree
// Equal to the original (token values, order, and nesting unchanged).
// Exact original spacing is not preserved, which nginx is insensitive
// to.
//
// # Mutation bookkeeping
//
// ParsedFile carries a version counter and a dirty flag. Code that
// mutates the tree must call MarkMutated so cached views over the file
// (extracted virtual hosts) can detect staleness and the store knows
// which files to rewrite on save.
package parser
