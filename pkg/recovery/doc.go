// Package recovery relocates every tenant resident on a presumed-dead node
// onto healthy ones, pulling each tenant's most recent hot backup from
// shared object storage rather than exporting from the (unreachable)
// source the way migration does.
//
// Tenants are processed in payment-tier priority order so that, under
// capacity pressure, higher-paying tenants land successfully before
// lower-tier ones are left waiting. A capacity shortfall for one tenant
// is recorded and the loop continues; it is never treated as fatal to the
// whole recovery event.
package recovery
