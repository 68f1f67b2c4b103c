// Package vhost derives virtual host views from a parsed configuration
// tree and matches them against requested domain names.
//
// A VirtualHost is a projection of one server block: its server_name
// patterns, its parsed listen addresses, and a stable child-index path
// back to the block in its source file. Views are cheap and disposable;
// they are re-extracted whenever a file's tree structure changes, and a
// view refuses to resolve its block against a file version newer than
// the one it was built from.
//
// # Matching
//
// Match implements nginx's own server-name precedence so that the
// block this tool mutates is the block nginx would actually route the
// domain to:
//
//  1. exact name
//  2. longest wildcard-prefix name (*.example.com, most labels first)
//  3. longest wildcard-suffix name (example.*)
//  4. first matching ~ regex in declaration order
//  5. the default_server block for the requested port
//
// Ties inside one tier are never resolved by guessing: the caller gets
// an AMBIGUOUS error carrying the candidate descriptions, or supplies a
// pre-resolved choice obtained from interactive selection.
//
// Wildcard-domain requests (*.example.com meaning "every vhost under
// this suffix") bypass precedence entirely; MatchAllWildcard returns
// all covered vhosts for the caller to partition and narrow.
package vhost
