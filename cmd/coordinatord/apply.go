package main

import (
	"fmt"
	"os"

	"github.com/orbitfleet/coordinator/pkg/client"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a configuration file",
	Long: `Apply a Coordinator resource from a YAML file.

Examples:
  # Grant credits to a batch of tenants
  coordinatord apply -f grant.yaml

  # Suspend a batch of tenants
  coordinatord apply -f suspend.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	applyCmd.Flags().String("coordinator", "127.0.0.1:8080", "Coordinator address")
	_ = applyCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(applyCmd)
}

// CoordinatorResource represents a generic Coordinator resource
type CoordinatorResource struct {
	APIVersion string                 `yaml:"apiVersion"`
	Kind       string                 `yaml:"kind"`
	Metadata   ResourceMetadata       `yaml:"metadata"`
	Spec       map[string]interface{} `yaml:"spec"`
}

type ResourceMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels,omitempty"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	coordinatorAddr, _ := cmd.Flags().GetString("coordinator")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %v", err)
	}

	var resource CoordinatorResource
	if err := yaml.Unmarshal(data, &resource); err != nil {
		return fmt.Errorf("failed to parse YAML: %v", err)
	}

	c, err := client.NewClient(coordinatorAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to coordinator: %v", err)
	}
	defer c.Close()

	switch resource.Kind {
	case "CreditGrant":
		return applyCreditGrant(c, &resource)
	case "TenantSuspend":
		return applyTenantSuspend(c, &resource)
	case "TenantReactivate":
		return applyTenantReactivate(c, &resource)
	default:
		return fmt.Errorf("unsupported resource kind: %s", resource.Kind)
	}
}

func applyCreditGrant(c *client.Client, resource *CoordinatorResource) error {
	tenantIDs := getStringSlice(resource.Spec, "tenantIds")
	if len(tenantIDs) == 0 {
		return fmt.Errorf("spec.tenantIds is required")
	}
	amountCents := int64(getInt(resource.Spec, "amountCents", 0))
	if amountCents <= 0 {
		return fmt.Errorf("spec.amountCents must be positive")
	}
	description := getString(resource.Spec, "description", "")

	fmt.Printf("Granting %d cents to %d tenant(s): %s\n", amountCents, len(tenantIDs), resource.Metadata.Name)
	operationID, undoDeadline, results, err := c.GrantCredits(tenantIDs, amountCents, description)
	if err != nil {
		return fmt.Errorf("failed to grant credits: %v", err)
	}

	fmt.Printf("✓ Operation ID: %s (undoable until %s)\n", operationID, undoDeadline.Format("15:04:05"))
	for _, r := range results {
		if r.Error != "" {
			fmt.Printf("  ✗ %s: %s\n", r.TenantID, r.Error)
		}
	}
	return nil
}

func applyTenantSuspend(c *client.Client, resource *CoordinatorResource) error {
	tenantIDs := getStringSlice(resource.Spec, "tenantIds")
	if len(tenantIDs) == 0 {
		return fmt.Errorf("spec.tenantIds is required")
	}
	fmt.Printf("Suspending %d tenant(s): %s\n", len(tenantIDs), resource.Metadata.Name)
	results, err := c.SuspendTenants(tenantIDs)
	if err != nil {
		return fmt.Errorf("failed to suspend tenants: %v", err)
	}

	for _, r := range results {
		if r.Error != "" {
			fmt.Printf("  ✗ %s: %s\n", r.TenantID, r.Error)
		}
	}
	fmt.Println("✓ Suspend applied")
	return nil
}

func applyTenantReactivate(c *client.Client, resource *CoordinatorResource) error {
	tenantIDs := getStringSlice(resource.Spec, "tenantIds")
	if len(tenantIDs) == 0 {
		return fmt.Errorf("spec.tenantIds is required")
	}

	fmt.Printf("Reactivating %d tenant(s): %s\n", len(tenantIDs), resource.Metadata.Name)
	results, err := c.ReactivateTenants(tenantIDs)
	if err != nil {
		return fmt.Errorf("failed to reactivate tenants: %v", err)
	}

	for _, r := range results {
		if r.Error != "" {
			fmt.Printf("  ✗ %s: %s\n", r.TenantID, r.Error)
		}
	}
	fmt.Println("✓ Reactivate applied")
	return nil
}

// Helper functions

func getString(m map[string]interface{}, key, defaultValue string) string {
	if v, ok := m[key]; ok {
		return fmt.Sprintf("%v", v)
	}
	return defaultValue
}

func getInt(m map[string]interface{}, key string, defaultValue int) int {
	if v, ok := m[key]; ok {
		switch val := v.(type) {
		case int:
			return val
		case float64:
			return int(val)
		}
	}
	return defaultValue
}

func getStringSlice(m map[string]interface{}, key string) []string {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		out = append(out, fmt.Sprintf("%v", v))
	}
	return out
}
