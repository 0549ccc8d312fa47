package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/orbitfleet/coordinator/pkg/agent"
	"github.com/orbitfleet/coordinator/pkg/api"
	"github.com/orbitfleet/coordinator/pkg/bulkops"
	"github.com/orbitfleet/coordinator/pkg/client"
	"github.com/orbitfleet/coordinator/pkg/ledger"
	"github.com/orbitfleet/coordinator/pkg/log"
	"github.com/orbitfleet/coordinator/pkg/manager"
	"github.com/orbitfleet/coordinator/pkg/metrics"
	"github.com/orbitfleet/coordinator/pkg/migration"
	"github.com/orbitfleet/coordinator/pkg/nodeconn"
	nodeconnproto "github.com/orbitfleet/coordinator/pkg/nodeconn/proto"
	"github.com/orbitfleet/coordinator/pkg/objectstore"
	"github.com/orbitfleet/coordinator/pkg/recovery"
	"github.com/orbitfleet/coordinator/pkg/reconciler"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "coordinatord",
	Short: "Coordinator - fleet control plane for multi-tenant bot hosting",
	Long: `Coordinator is the Raft-replicated control plane for a multi-tenant
bot-hosting fleet: node membership and heartbeats, bot placement and
migration, node-failure recovery, and credit-backed billing, delivered as a
single binary.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"coordinatord version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(clusterCmd)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(creditCmd)
	rootCmd.AddCommand(recoveryCmd)
	rootCmd.AddCommand(agentCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// Cluster commands

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Manage the coordinator cluster",
}

var clusterInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new coordinator cluster",
	Long: `Initialize a new coordinator cluster with this process as the first
Raft voter. Additional replicas join later via 'cluster join'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, _ := cmd.Flags().GetString("node-id")
		bindAddr, _ := cmd.Flags().GetString("bind-addr")
		apiAddr, _ := cmd.Flags().GetString("api-addr")
		dataDir, _ := cmd.Flags().GetString("data-dir")

		fmt.Println("Initializing coordinator cluster...")
		fmt.Printf("  Node ID: %s\n", nodeID)
		fmt.Printf("  Raft Address: %s\n", bindAddr)
		fmt.Printf("  API Address: %s\n", apiAddr)
		fmt.Printf("  Data Directory: %s\n", dataDir)
		fmt.Println()

		mgr, err := manager.NewManager(&manager.Config{
			NodeID:   nodeID,
			BindAddr: bindAddr,
			DataDir:  dataDir,
		})
		if err != nil {
			return fmt.Errorf("failed to create manager: %v", err)
		}

		if err := mgr.Bootstrap(); err != nil {
			return fmt.Errorf("failed to bootstrap cluster: %v", err)
		}
		fmt.Println("✓ Cluster bootstrapped")

		return runCoordinator(cmd, mgr, apiAddr, dataDir)
	},
}

var clusterJoinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join this process to an existing cluster as a coordinator replica",
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, _ := cmd.Flags().GetString("node-id")
		bindAddr, _ := cmd.Flags().GetString("bind-addr")
		apiAddr, _ := cmd.Flags().GetString("api-addr")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		leader, _ := cmd.Flags().GetString("leader")
		token, _ := cmd.Flags().GetString("token")

		if token == "" {
			return fmt.Errorf("--token is required")
		}
		if leader == "" {
			return fmt.Errorf("--leader is required")
		}

		fmt.Println("Joining cluster as coordinator replica...")
		fmt.Printf("  Node ID: %s\n", nodeID)
		fmt.Printf("  Bind Address: %s\n", bindAddr)
		fmt.Printf("  API Address: %s\n", apiAddr)
		fmt.Printf("  Leader: %s\n", leader)
		fmt.Println()

		mgr, err := manager.NewManager(&manager.Config{
			NodeID:   nodeID,
			BindAddr: bindAddr,
			DataDir:  dataDir,
		})
		if err != nil {
			return fmt.Errorf("failed to create manager: %v", err)
		}

		if err := mgr.Join(leader, token); err != nil {
			return fmt.Errorf("failed to join cluster: %v", err)
		}
		fmt.Println("✓ Successfully joined cluster")

		return runCoordinator(cmd, mgr, apiAddr, dataDir)
	},
}

// runCoordinator wires every coordination subsystem around mgr and blocks
// until an interrupt or a fatal server error. Shared by cluster init and
// cluster join since both end up running the same control plane once the
// Raft side of bootstrap/join completes.
func runCoordinator(cmd *cobra.Command, mgr *manager.Manager, apiAddr, dataDir string) error {
	nodeconnMgr := nodeconn.NewManager(mgr)
	migrationMgr := migration.NewManager(nodeconnMgr, mgr)
	recoveryMgr := recovery.NewManager(nodeconnMgr, mgr)

	var cache ledger.Cache
	if redisAddr, _ := cmd.Flags().GetString("redis-addr"); redisAddr != "" {
		cache = ledger.NewRedisCache(redis.NewClient(&redis.Options{Addr: redisAddr}), "coordinator:ledger:spend:")
		fmt.Printf("✓ Budget checker cache: redis at %s\n", redisAddr)
	}

	processor := ledger.NoopProcessor{}
	budget := ledger.NewBudgetChecker(mgr, cache)
	ledgerInstance := ledger.NewLedger(mgr, processor, 0, budget)
	bulkMgr := bulkops.NewManager(ledgerInstance, ledgerInstance.Billing(), mgr)

	objectStore, err := objectstore.NewLocalStore(filepath.Join(dataDir, "snapshots"))
	if err != nil {
		return fmt.Errorf("failed to create snapshot object store: %v", err)
	}

	recon := reconciler.NewReconciler(mgr, objectStore, recoveryMgr, ledgerInstance.Billing(), nil)
	recon.Start()
	fmt.Println("✓ Reconciler started")

	metricsCollector := metrics.NewCollector(mgr)
	metricsCollector.Start()
	fmt.Println("✓ Metrics collector started")

	metrics.SetVersion(Version)
	metrics.RegisterComponent("raft", true, "bootstrapped")
	metrics.RegisterComponent("api", false, "initializing")

	metricsAddr := "127.0.0.1:9090"
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.Handle("/health", metrics.HealthHandler())
		mux.Handle("/ready", metrics.ReadyHandler())
		mux.HandleFunc("/live", metrics.LivenessHandler())
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()
	fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", metricsAddr)
	fmt.Printf("✓ Health endpoints: http://%s/{health,ready,live}\n", metricsAddr)

	apiServer, err := api.NewServer(mgr, migrationMgr, recoveryMgr, bulkMgr)
	if err != nil {
		return fmt.Errorf("failed to create API server: %v", err)
	}

	nodeconnproto.RegisterNodeChannelServer(apiServer.GRPCServer(), nodeconn.NewServer(nodeconnMgr))

	errCh := make(chan error, 2)
	go func() {
		if err := apiServer.Start(apiAddr); err != nil {
			errCh <- fmt.Errorf("admin API server error: %v", err)
		}
	}()

	socketPath, _ := cmd.Flags().GetString("admin-socket")
	if socketPath != "" {
		go func() {
			if err := apiServer.StartUnixSocket(socketPath); err != nil {
				errCh <- fmt.Errorf("read-only admin socket error: %v", err)
			}
		}()
	}

	time.Sleep(500 * time.Millisecond)
	metrics.RegisterComponent("api", true, "ready")

	fmt.Println()
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  Join Tokens (valid for 24 hours)")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	nodeToken, _ := mgr.GenerateJoinToken("node")
	fmt.Println("Node Token:")
	fmt.Printf("  %s\n", nodeToken.Token)
	fmt.Println("To add a fleet node:")
	fmt.Printf("  coordinatord agent start --coordinator %s --token %s\n", apiAddr, nodeToken.Token)
	fmt.Println()

	coordinatorToken, _ := mgr.GenerateJoinToken("coordinator")
	fmt.Println("Coordinator Replica Token:")
	fmt.Printf("  %s\n", coordinatorToken.Token)
	fmt.Println("To add a coordinator replica:")
	fmt.Printf("  coordinatord cluster join --leader %s --token %s\n", apiAddr, coordinatorToken.Token)
	fmt.Println()

	cliToken, _ := mgr.GenerateJoinToken("node")
	fmt.Println("CLI Token (for remote CLI access):")
	fmt.Printf("  %s\n", cliToken.Token)
	fmt.Println("To initialize the CLI:")
	fmt.Printf("  coordinatord cli init --coordinator %s --token %s\n", apiAddr, cliToken.Token)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	fmt.Println("Coordinator is running. Press Ctrl+C to stop.")
	fmt.Printf("admin API listening on %s\n", apiAddr)
	fmt.Println()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	recon.Stop()
	metricsCollector.Stop()
	apiServer.Stop()
	if err := mgr.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown: %v", err)
	}

	fmt.Println("✓ Shutdown complete")
	return nil
}

var clusterJoinTokenCmd = &cobra.Command{
	Use:   "join-token [node|coordinator]",
	Short: "Generate a join token for a fleet node or a coordinator replica",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role := args[0]
		if role != "node" && role != "coordinator" {
			return fmt.Errorf("role must be 'node' or 'coordinator'")
		}

		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")

		c, err := client.NewClient(coordinatorAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to coordinator: %v", err)
		}
		defer c.Close()

		token, expiresAt, err := c.GenerateJoinToken(role)
		if err != nil {
			return fmt.Errorf("failed to generate token: %v", err)
		}

		fmt.Printf("Join token for %s:\n\n", role)
		fmt.Printf("    %s\n\n", token)
		fmt.Printf("This token expires at %s.\n", expiresAt.Format(time.RFC3339))
		fmt.Printf("\nTo join a %s, run:\n", role)
		if role == "coordinator" {
			fmt.Printf("    coordinatord cluster join --token %s --leader %s\n", token, coordinatorAddr)
		} else {
			fmt.Printf("    coordinatord agent start --coordinator %s --token %s\n", coordinatorAddr, token)
		}
		return nil
	},
}

var clusterInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display cluster Raft membership and leadership",
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")

		c, err := client.NewClient(coordinatorAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to coordinator: %v", err)
		}
		defer c.Close()

		info, err := c.ClusterInfo()
		if err != nil {
			return fmt.Errorf("failed to get cluster info: %v", err)
		}

		fmt.Println("Cluster Information:")
		fmt.Printf("  Leader ID: %s\n", info.LeaderID)
		fmt.Printf("  Leader Address: %s\n", info.LeaderAddr)
		fmt.Printf("  Servers: %d\n", len(info.Servers))
		fmt.Println()
		fmt.Println("Raft Servers:")
		for _, server := range info.Servers {
			fmt.Printf("  - ID: %s\n", server.ID)
			fmt.Printf("    Address: %s\n", server.Address)
			fmt.Printf("    Suffrage: %s\n", server.Suffrage)
			fmt.Println()
		}
		return nil
	},
}

var cliInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the CLI certificate for secure communication with the coordinator",
	Long: `Request a certificate from the coordinator to enable mTLS
authentication. Run this once before using other CLI commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")
		token, _ := cmd.Flags().GetString("token")

		if token == "" {
			return fmt.Errorf("--token is required (get one from 'coordinatord cluster join-token node')")
		}

		fmt.Println("Initializing CLI certificate...")
		fmt.Printf("  Coordinator: %s\n", coordinatorAddr)

		c, err := client.NewClientWithToken(coordinatorAddr, token)
		if err != nil {
			return fmt.Errorf("failed to initialize CLI: %v", err)
		}
		defer c.Close()

		fmt.Println("\n✓ CLI initialized successfully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cliInitCmd)
	cliInitCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator address")
	cliInitCmd.Flags().String("token", "", "Join token from the coordinator (required)")

	clusterCmd.AddCommand(clusterInitCmd)
	clusterCmd.AddCommand(clusterJoinCmd)
	clusterCmd.AddCommand(clusterJoinTokenCmd)
	clusterCmd.AddCommand(clusterInfoCmd)

	clusterInitCmd.Flags().String("node-id", "coordinator-1", "Unique coordinator node ID")
	clusterInitCmd.Flags().String("bind-addr", "127.0.0.1:7946", "Address for Raft communication")
	clusterInitCmd.Flags().String("api-addr", "127.0.0.1:8080", "Address for the admin gRPC API")
	clusterInitCmd.Flags().String("data-dir", "./coordinator-data", "Data directory for cluster state")
	clusterInitCmd.Flags().String("admin-socket", "", "Optional unix socket path for a read-only local admin API")
	clusterInitCmd.Flags().String("redis-addr", "", "Redis address for the budget checker's spend-window cache (defaults to in-process, single-replica-only cache)")

	clusterJoinCmd.Flags().String("node-id", "coordinator-2", "Unique coordinator node ID")
	clusterJoinCmd.Flags().String("bind-addr", "127.0.0.1:7947", "Address for Raft communication")
	clusterJoinCmd.Flags().String("api-addr", "127.0.0.1:8081", "Address for the admin gRPC API")
	clusterJoinCmd.Flags().String("data-dir", "./coordinator-data-2", "Data directory for cluster state")
	clusterJoinCmd.Flags().String("admin-socket", "", "Optional unix socket path for a read-only local admin API")
	clusterJoinCmd.Flags().String("redis-addr", "", "Redis address for the budget checker's spend-window cache (defaults to in-process, single-replica-only cache)")
	clusterJoinCmd.Flags().String("leader", "", "Current leader's admin API address")
	clusterJoinCmd.Flags().String("token", "", "Join token from the leader")
	_ = clusterJoinCmd.MarkFlagRequired("token")
	_ = clusterJoinCmd.MarkFlagRequired("leader")

	clusterJoinTokenCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator address")
	clusterInfoCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator address")
}

// Node commands

var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage fleet nodes",
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fleet nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")

		c, err := client.NewClient(coordinatorAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to coordinator: %v", err)
		}
		defer c.Close()

		nodes, err := c.ListNodes()
		if err != nil {
			return fmt.Errorf("failed to list nodes: %v", err)
		}

		if len(nodes) == 0 {
			fmt.Println("No nodes found")
			return nil
		}

		fmt.Printf("%-20s %-10s %-12s %-12s %s\n", "ID", "STATUS", "CAPACITY_MB", "FREE_MB", "HOST")
		for _, n := range nodes {
			fmt.Printf("%-20s %-10s %-12d %-12d %s\n", truncate(n.ID, 20), n.Status, n.CapacityMb, n.FreeMb, n.Host)
		}
		return nil
	},
}

var nodeDrainCmd = &cobra.Command{
	Use:   "drain NODE_ID",
	Short: "Migrate every tenant off a node and mark it offline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")

		c, err := client.NewClient(coordinatorAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to coordinator: %v", err)
		}
		defer c.Close()

		if err := c.DrainNode(args[0]); err != nil {
			return fmt.Errorf("failed to drain node: %v", err)
		}
		fmt.Printf("✓ Node drained: %s\n", args[0])
		return nil
	},
}

func init() {
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeDrainCmd)

	nodeListCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator address")
	nodeDrainCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator address")
}

// Credit commands

var creditCmd = &cobra.Command{
	Use:   "credit",
	Short: "Manage tenant credit balances",
}

var creditGrantCmd = &cobra.Command{
	Use:   "grant TENANT_ID [TENANT_ID...]",
	Short: "Grant credits to one or more tenants, undoable within 5 minutes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")
		amountCents, _ := cmd.Flags().GetInt64("amount-cents")
		description, _ := cmd.Flags().GetString("description")

		c, err := client.NewClient(coordinatorAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to coordinator: %v", err)
		}
		defer c.Close()

		operationID, undoDeadline, results, err := c.GrantCredits(args, amountCents, description)
		if err != nil {
			return fmt.Errorf("failed to grant credits: %v", err)
		}

		fmt.Printf("✓ Granted %d cents to %d tenant(s)\n", amountCents, len(args))
		fmt.Printf("  Operation ID: %s\n", operationID)
		fmt.Printf("  Undo deadline: %s\n", undoDeadline.Format(time.RFC3339))
		for _, r := range results {
			if r.Error != "" {
				fmt.Printf("  ✗ %s: %s\n", r.TenantID, r.Error)
			}
		}
		return nil
	},
}

var creditRevokeCmd = &cobra.Command{
	Use:   "revoke OPERATION_ID",
	Short: "Reverse a prior credit grant within its undo window",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")

		c, err := client.NewClient(coordinatorAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to coordinator: %v", err)
		}
		defer c.Close()

		partial, err := c.RevokeGrant(args[0])
		if err != nil {
			return fmt.Errorf("failed to revoke grant: %v", err)
		}

		if partial {
			fmt.Println("✓ Grant partially revoked (some tenants could not be debited)")
		} else {
			fmt.Println("✓ Grant fully revoked")
		}
		return nil
	},
}

func init() {
	creditCmd.AddCommand(creditGrantCmd)
	creditCmd.AddCommand(creditRevokeCmd)

	creditGrantCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator address")
	creditGrantCmd.Flags().Int64("amount-cents", 0, "Amount to grant, in cents")
	creditGrantCmd.Flags().String("description", "", "Reason for the grant")
	_ = creditGrantCmd.MarkFlagRequired("amount-cents")

	creditRevokeCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator address")
}

// Recovery commands

var recoveryCmd = &cobra.Command{
	Use:   "recovery",
	Short: "Inspect and trigger node-failure recovery",
}

var recoveryStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a recovery event's progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")
		nodeID, _ := cmd.Flags().GetString("node-id")
		eventID, _ := cmd.Flags().GetString("event-id")

		if nodeID == "" && eventID == "" {
			return fmt.Errorf("one of --node-id or --event-id is required")
		}

		c, err := client.NewClient(coordinatorAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to coordinator: %v", err)
		}
		defer c.Close()

		status, err := c.RecoveryStatus(nodeID, eventID)
		if err != nil {
			return fmt.Errorf("failed to get recovery status: %v", err)
		}
		printRecoveryStatus(status)
		return nil
	},
}

var recoveryTriggerCmd = &cobra.Command{
	Use:   "trigger NODE_ID",
	Short: "Start a manual recovery run for a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")

		c, err := client.NewClient(coordinatorAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to coordinator: %v", err)
		}
		defer c.Close()

		status, err := c.TriggerRecovery(args[0])
		if err != nil {
			return fmt.Errorf("failed to trigger recovery: %v", err)
		}
		printRecoveryStatus(status)
		return nil
	},
}

func printRecoveryStatus(status *client.RecoveryStatus) {
	fmt.Printf("Recovery Event: %s\n", status.EventID)
	fmt.Printf("  Node: %s\n", status.NodeID)
	fmt.Printf("  Trigger: %s\n", status.Trigger)
	fmt.Printf("  Status: %s\n", status.Status)
	fmt.Printf("  Total: %d  Recovered: %d  Failed: %d  Waiting: %d\n", status.Total, status.Recovered, status.Failed, status.Waiting)
	for _, item := range status.Items {
		line := fmt.Sprintf("  - %s: %s", item.TenantID, item.Status)
		if item.TargetNode != "" {
			line += fmt.Sprintf(" -> %s", item.TargetNode)
		}
		if item.Reason != "" {
			line += fmt.Sprintf(" (%s)", item.Reason)
		}
		fmt.Println(line)
	}
}

func init() {
	recoveryCmd.AddCommand(recoveryStatusCmd)
	recoveryCmd.AddCommand(recoveryTriggerCmd)

	recoveryStatusCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator address")
	recoveryStatusCmd.Flags().String("node-id", "", "Look up the in-progress event for this node")
	recoveryStatusCmd.Flags().String("event-id", "", "Look up this specific event")

	recoveryTriggerCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator address")
}

// Agent commands

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Fleet node agent operations",
}

var agentStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a fleet node agent and connect it to the coordinator",
	Long: `Start the reference node agent: it registers with the coordinator,
streams heartbeats, and executes bot lifecycle commands against a containerd
socket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		nodeID, _ := cmd.Flags().GetString("node-id")
		coordinatorAddr, _ := cmd.Flags().GetString("coordinator")
		host, _ := cmd.Flags().GetString("host")
		capacityMb, _ := cmd.Flags().GetInt64("capacity-mb")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		containerdSocket, _ := cmd.Flags().GetString("containerd-socket")
		token, _ := cmd.Flags().GetString("token")

		fmt.Println("Starting fleet node agent...")
		fmt.Printf("  Node ID: %s\n", nodeID)
		fmt.Printf("  Coordinator: %s\n", coordinatorAddr)
		fmt.Printf("  Capacity: %d MB\n", capacityMb)
		fmt.Println()

		if token != "" {
			if err := client.BootstrapNodeCert(coordinatorAddr, nodeID, token); err != nil {
				return fmt.Errorf("failed to bootstrap node certificate: %v", err)
			}
			fmt.Println("✓ Node certificate provisioned")
		}

		a, err := agent.NewAgentWithContainerd(agent.Config{
			NodeID:          nodeID,
			CoordinatorAddr: coordinatorAddr,
			Host:            host,
			CapacityMb:      capacityMb,
			AgentVersion:    Version,
			DataDir:         dataDir,
		}, containerdSocket)
		if err != nil {
			return fmt.Errorf("failed to create agent: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		conn, err := a.Connect(ctx)
		if err != nil {
			return fmt.Errorf("failed to connect to coordinator: %v", err)
		}
		fmt.Println("✓ Connected to coordinator")
		fmt.Println()
		fmt.Println("Agent is running. Press Ctrl+C to stop.")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		errCh := make(chan error, 1)
		go func() { errCh <- a.Run(ctx, conn) }()

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
			cancel()
			<-errCh
		case err := <-errCh:
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("agent run error: %v", err)
			}
		}

		fmt.Println("✓ Shutdown complete")
		return nil
	},
}

func init() {
	agentCmd.AddCommand(agentStartCmd)

	agentStartCmd.Flags().String("node-id", "node-1", "Unique node ID")
	agentStartCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator admin API address")
	agentStartCmd.Flags().String("host", "127.0.0.1:9000", "Address this node's containers are reachable on")
	agentStartCmd.Flags().Int64("capacity-mb", 8192, "Memory capacity to advertise, in MB")
	agentStartCmd.Flags().String("data-dir", "./coordinator-agent-data", "Data directory for local backup staging")
	agentStartCmd.Flags().String("containerd-socket", "/run/containerd/containerd.sock", "containerd socket path")
	agentStartCmd.Flags().String("token", "", "Join token from the coordinator (required on first connection)")
}

// Helper functions

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
