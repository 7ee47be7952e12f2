package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attolytics/attolytics/internal/config"
	"github.com/attolytics/attolytics/internal/schema"
)

var checkSchemaCmd = &cobra.Command{
	Use:   "check-schema [path]",
	Short: "Validate a schema file without starting the server",
	Long: `check-schema loads and validates the schema description, then prints
the declared tables with their PostgreSQL column types. Because the
schema only changes across restarts, run this before restarting to
catch mistakes while the old process is still serving.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			path = cfg.Schema.Path
		}

		s, err := schema.LoadFile(path)
		if err != nil {
			return err
		}

		for _, table := range s.Tables() {
			fmt.Fprintf(cmd.OutOrStdout(), "table %s\n", table.Name)
			for _, col := range table.Columns {
				null := "NULL"
				if col.Required {
					null = "NOT NULL"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %s %s\n", col.Name, col.Type.PostgresType(), null)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema OK: %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkSchemaCmd)
}
