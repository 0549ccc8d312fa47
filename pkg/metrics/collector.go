package metrics

import (
	"time"

	"github.com/orbitfleet/coordinator/pkg/manager"
)

// Collector periodically samples manager state into the Prometheus gauges
// declared in metrics.go, following the same ticker-driven sampling loop as
// the reconciler.
type Collector struct {
	manager *manager.Manager
	stopCh  chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(mgr *manager.Manager) *Collector {
	return &Collector{
		manager: mgr,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectNodeMetrics()
	c.collectBotInstanceMetrics()
	c.collectRaftMetrics()
}

func (c *Collector) collectNodeMetrics() {
	nodes, err := c.manager.ListNodes()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, node := range nodes {
		counts[string(node.Status)]++
		NodeCapacityMb.WithLabelValues(node.ID).Set(float64(node.CapacityMb))
		NodeUsedMb.WithLabelValues(node.ID).Set(float64(node.UsedMb))
	}
	for status, count := range counts {
		NodesTotal.WithLabelValues(status).Set(float64(count))
	}
}

func (c *Collector) collectBotInstanceMetrics() {
	bots, err := c.manager.ListBotInstances()
	if err != nil {
		return
	}

	counts := make(map[string]int)
	for _, bot := range bots {
		counts[string(bot.BillingState)]++
	}
	for state, count := range counts {
		BotInstancesTotal.WithLabelValues(state).Set(float64(count))
	}
}

func (c *Collector) collectRaftMetrics() {
	if c.manager.IsLeader() {
		RaftLeader.Set(1)
	} else {
		RaftLeader.Set(0)
	}

	servers, err := c.manager.GetClusterServers()
	if err == nil {
		RaftPeers.Set(float64(len(servers)))
	}
}
