// Package ssl manages the on-disk tls assets certnginx installs: the
// shared ssl options file referenced by every deployed server block,
// and validation of the certificate material handed to a deployment.
package ssl
