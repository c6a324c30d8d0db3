package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/gantry/internal/presentation/graph"
	"github.com/aretw0/gantry/internal/state"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <pipeline>",
		Short: "Check a pipeline definition for structural errors",
		Long: `Loads the pipeline, resolves its parameters and reports duplicate slots,
missing dependencies, dependency cycles, broken data flow and unknown slot types.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			params, err := parseParams(cmd)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			res, err := eng.Validate(cmd.Context(), a.path(args[0]), params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, w := range res.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if !res.Valid {
				for _, e := range res.Errors {
					fmt.Fprintf(out, "error: %s\n", e)
				}
				return res.Err()
			}
			fmt.Fprintln(out, "Pipeline is valid")
			return nil
		},
	}
	addParamFlag(cmd)
	return cmd
}

func newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order <pipeline>",
		Short: "Print the execution order of a pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			params, err := parseParams(cmd)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			order, err := eng.Order(cmd.Context(), a.path(args[0]), params)
			if err != nil {
				return err
			}
			for i, id := range order {
				fmt.Fprintf(cmd.OutOrStdout(), "%d. %s\n", i+1, id)
			}
			return nil
		},
	}
	addParamFlag(cmd)
	return cmd
}

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <pipeline>",
		Short: "Export the pipeline as a Mermaid diagram",
		Long:  `Outputs a Mermaid flowchart (graph TD). With --state, slots are styled by their run status.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			params, err := parseParams(cmd)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}

			source := a.path(args[0])
			var st *domain.PipelineState
			if statePath, _ := cmd.Flags().GetString("state"); statePath != "" {
				loaded, err := state.New(a.cfg.StateDir).Load(statePath)
				if err != nil {
					return err
				}
				st = &loaded
				if params == nil {
					params = loaded.Parameters
				}
			}

			p, err := eng.Loader().Load(cmd.Context(), source)
			if err != nil {
				return err
			}
			p, err = eng.Loader().Resolve(cmd.Context(), p, params)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(p, st))
			return nil
		},
	}
	cmd.Flags().String("state", "", "Overlay the status recorded in this state document")
	addParamFlag(cmd)
	return cmd
}

func newPrepareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prepare <pipeline>",
		Short: "Validate a pipeline and start a new run",
		Long:  `Resolves parameters, validates the pipeline and writes the initial state document. Prints the state path.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			params, err := parseParams(cmd)
			if err != nil {
				return err
			}
			eng, err := a.engine()
			if err != nil {
				return err
			}
			sess, err := eng.Prepare(cmd.Context(), a.path(args[0]), params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sess.StatePath())
			if ready := sess.Next(); len(ready) > 0 {
				ids := make([]string, len(ready))
				for i, s := range ready {
					ids[i] = s.ID
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "ready: %s\n", strings.Join(ids, ", "))
			}
			return nil
		},
	}
	addParamFlag(cmd)
	return cmd
}
