/*
Package objectstore defines the opaque blob store the node agent's
backup.* commands push tar archives through (spec §6): upload, download,
remove, keyed by the nightly/on-demand/latest/pre-restore conventions the
core already computes. The real backend (S3, GCS, whatever a deployment
picks) is an out-of-scope external collaborator, exactly like
pkg/ledger's PaymentProcessor or pkg/reconciler's Notifier — this package
only defines the interface plus a filesystem-backed Store good enough for
a single-node deployment, development, and tests.
*/
package objectstore
