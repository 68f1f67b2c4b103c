// Package mutate edits parsed nginx server blocks in place: deploying
// certificate directives, inserting http-to-https redirects, and
// enabling OCSP stapling. Every inserted node is tagged with a managed
// marker comment, and every operation is idempotent so re-running a
// deployment never duplicates content.
package mutate
