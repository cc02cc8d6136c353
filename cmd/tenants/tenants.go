package tenants

import "github.com/spf13/cobra"

// TenantsCmd is the parent command for tenant management operations
var TenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage tenants",
	Long:  `Commands for provisioning and inspecting tenants directly from the server.`,
}

func init() {
	createCmd.Flags().StringVar(&nameFlag, "name", "", "Legal name of the tenant (required)")
	createCmd.Flags().StringVar(&taxIDFlag, "tax-id", "", "Tax identification number of the tenant (required)")

	TenantsCmd.AddCommand(createCmd)
	TenantsCmd.AddCommand(listCmd)
}
