/*
Package placement implements the fleet's stateless bin-packing policy.

There is no scheduling loop here and no knowledge of CPU topology, GPU
affinity, or cross-region replication - placement is memory-capacity
bin-packing only, applied on demand by whichever caller needs a node:

  - Node Connection Manager, for a newly created BotInstance
  - Migration Manager, excluding the source node
  - Recovery Manager, excluding the dead node, with a conservative default
    estimate when a BotInstance's own memory footprint is unknown

# Policy

FindPlacement filters to nodes with status "active" and free capacity
(capacityMb - usedMb) at least the requested estimate, then picks the node
with the most free capacity; ties break on ascending node id so the choice
is deterministic across replicas applying the same Raft log.

Nodes in "returning", "draining", or "recovering" are never candidates even
when they have capacity to spare: a returning node may still have orphaned
containers the Orphan Cleaner hasn't resolved, and a draining node is being
emptied, not filled.
*/
package placement
