package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var tenantDBPath string

// tenantCmd represents the tenant command group
var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Tenant management commands",
	Long: `Commands for inspecting Tempus tenants.

Example:
  tempusctl tenant list`,
}

// tenantListCmd lists all tenants
var tenantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(tenantDBPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		tenants, err := store.Tenants().List(ctx)
		if err != nil {
			return fmt.Errorf("list tenants: %w", err)
		}

		if len(tenants) == 0 {
			fmt.Println("No tenants found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-30s  %s\n", "ID", "NAME", "CREATED")
		fmt.Println(strings.Repeat("-", 90))

		for _, tn := range tenants {
			fmt.Printf("%-36s  %-30s  %s\n",
				tn.ID,
				tn.Name,
				tn.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		fmt.Printf("\nTotal: %d tenant(s)\n", len(tenants))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantListCmd)

	tenantListCmd.Flags().StringVar(&tenantDBPath, "db", defaultDBPath, "path to SQLite database file")
}
