package nodeconn

// SumContainerMemory adds up the memory_mb reported for every container in
// a heartbeat, the figure the Manager writes back as a node's usedMb. It
// is split out as a pure function so the summation rule (simple sum, no
// overhead padding) is independently testable from the heartbeat's
// side-effecting node update and orphan-trigger logic.
func SumContainerMemory(containers []HeartbeatContainer) int64 {
	var total int64
	for _, c := range containers {
		total += c.MemoryMb
	}
	return total
}

// ContainerNames extracts just the name field from a heartbeat's
// container list, the input OrphanCleaner needs.
func ContainerNames(containers []HeartbeatContainer) []string {
	names := make([]string, 0, len(containers))
	for _, c := range containers {
		names = append(names, c.Name)
	}
	return names
}
