package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents [slot-type]",
		Short: "List agents, or rank them against a slot type",
		Long: `Without arguments, lists every agent in the agents directory.
With a slot type, ranks all agents by how many of its required capabilities they have.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			reg, err := a.registry()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				agents, err := reg.Agents(cmd.Context())
				if err != nil {
					return err
				}
				ids := make([]string, 0, len(agents))
				for id := range agents {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					fmt.Fprintf(out, "%s\t%s\n", id, strings.Join(agents[id].Capabilities, ","))
				}
				return nil
			}

			matches, err := reg.FindCompatibleAgents(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, m := range matches {
				mark := "-"
				if m.Compatible {
					mark = "+"
				}
				line := fmt.Sprintf("%s %s\tmatched: %s", mark, m.AgentID, strings.Join(m.Matched, ","))
				if len(m.Missing) > 0 {
					line += "\tmissing: " + strings.Join(m.Missing, ",")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	return cmd
}
