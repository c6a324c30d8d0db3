package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gantry",
		Short: "Gantry runs gated, resumable pipelines of agent work",
		Long: `Gantry orchestrates multi-step work modeled as a DAG of typed slots.
Each slot is guarded by pre- and post-conditions and every transition is
persisted, so any process can pick a run up where the last one stopped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("dir", ".", "Project root")
	flags.String("config", "", "Project file (default <dir>/gantry.yaml)")
	flags.String("state-dir", "", "Directory for run state documents")
	flags.String("audit-log-dir", "", "Directory for compliance event logs")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("redis-addr", "", "Redis address for event streaming and state locks")

	root.AddCommand(
		newValidateCmd(),
		newOrderCmd(),
		newGraphCmd(),
		newPrepareCmd(),
		newNextCmd(),
		newBeginCmd(),
		newCompleteCmd(),
		newFailCmd(),
		newSkipCmd(),
		newAuditCmd(),
		newStatusCmd(),
		newArchiveCmd(),
		newAgentsCmd(),
		newServeCmd(),
		newMCPCmd(),
		newInitCmd(),
		newVersionCmd(),
	)
	return root
}
