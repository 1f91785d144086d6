package main

import (
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	dryRun     bool

	rootCmd = &cobra.Command{
		Use:          "credencectl",
		Short:        "Administer a credence belief store",
		SilenceUsage: true,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema (SQL migrations or Neo4j constraints)",
		Args:  cobra.NoArgs,
		RunE:  runMigrate, // Defined in cmd_admin.go
	}

	backfillCmd = &cobra.Command{
		Use:   "backfill-priors",
		Short: "Reconstruct missing base priors from current confidence and links",
		Args:  cobra.NoArgs,
		RunE:  runBackfill, // Defined in cmd_admin.go
	}

	recomputeCmd = &cobra.Command{
		Use:   "recompute [hypothesis_id]",
		Short: "Replay a hypothesis's links from its base prior",
		Args:  cobra.ExactArgs(1),
		RunE:  runRecompute, // Defined in cmd_admin.go
	}

	accuracyCmd = &cobra.Command{
		Use:   "accuracy",
		Short: "Print the calibration report over verified hypotheses",
		Args:  cobra.NoArgs,
		RunE:  runAccuracy, // Defined in cmd_admin.go
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Create demo hypotheses, evidence and links",
		Args:  cobra.NoArgs,
		RunE:  runSeed, // Defined in cmd_seed.go
	}

	apiKeyCmd = &cobra.Command{
		Use:   "apikey",
		Short: "Generate a random API key for API_KEYS",
		Args:  cobra.NoArgs,
		RunE:  runAPIKey, // Defined in cmd_seed.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE:  runVersion, // Defined in cmd_admin.go
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	backfillCmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute base priors without writing them")

	rootCmd.AddCommand(migrateCmd, backfillCmd, recomputeCmd, accuracyCmd, seedCmd, apiKeyCmd, versionCmd)
}
