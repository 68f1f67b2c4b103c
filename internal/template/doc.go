// Package template holds the embedded nginx snippets certnginx
// installs or splices: the shared ssl options file and the temporary
// server block that answers http-01 challenges.
package template
