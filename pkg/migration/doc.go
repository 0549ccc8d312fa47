// Package migration live-relocates a single BotInstance between two
// healthy nodes with a bounded downtime window, and drains a node of all
// its resident tenants ahead of planned maintenance.
//
// The downtime-minimizing trick is ordering: everything that can happen
// with the source container still running happens first (export, upload,
// download), so the only work done while the tenant is actually stopped is
// import + start + verify + reassignment on the target. If any of that
// post-stop work fails, the source container is restarted before the
// error is surfaced, so a failed migration never leaves a tenant down
// longer than the attempt itself took.
package migration
