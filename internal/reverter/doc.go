// Package reverter provides session locking and file-level undo for
// nginx configuration changes. Files are snapshotted before their
// first mutation; snapshots are sealed into numbered checkpoints that
// can be rolled back newest-first, and interrupted sessions are
// recovered on the next run.
package reverter
