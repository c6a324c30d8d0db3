package main

import (
	"context"
	"fmt"

	"github.com/aretw0/gantry"
	"github.com/aretw0/gantry/internal/presentation/tui"
	"github.com/aretw0/gantry/pkg/domain"
	"github.com/spf13/cobra"
)

// slotCommand builds a command that resumes the run, applies op to one slot
// and prints the resulting slot state. Gated commands get a --strict flag that
// turns a gate failure into a non-zero exit.
func slotCommand(use, short string, op func(ctx context.Context, cmd *cobra.Command, sess *gantry.Session, slotID string) (domain.SlotState, error), gated bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			var ss domain.SlotState
			_, err = a.mutate(cmd, func(ctx context.Context, sess *gantry.Session) error {
				var err error
				ss, err = op(ctx, cmd, sess, args[0])
				return err
			})
			if err != nil {
				return err
			}
			printSlot(cmd.OutOrStdout(), ss)
			if strict, _ := cmd.Flags().GetBool("strict"); strict {
				return gateFailure(ss)
			}
			return nil
		},
	}
	addRunFlags(cmd)
	if gated {
		cmd.Flags().Bool("strict", false, "Exit non-zero when the slot's gates fail")
	}
	return cmd
}

func newBeginCmd() *cobra.Command {
	cmd := slotCommand("begin <slot>", "Check a slot's pre-conditions and start it",
		func(ctx context.Context, cmd *cobra.Command, sess *gantry.Session, slotID string) (domain.SlotState, error) {
			agent, _ := cmd.Flags().GetString("agent")
			prompt, _ := cmd.Flags().GetString("prompt")
			return sess.Begin(ctx, slotID, agent, prompt)
		}, true)
	cmd.Flags().String("agent", "", "Agent working on the slot")
	cmd.Flags().String("prompt", "", "Prompt file given to the agent")
	return cmd
}

func newCompleteCmd() *cobra.Command {
	return slotCommand("complete <slot>", "Check a slot's post-conditions and complete it",
		func(ctx context.Context, cmd *cobra.Command, sess *gantry.Session, slotID string) (domain.SlotState, error) {
			return sess.Complete(ctx, slotID)
		}, true)
}

func newFailCmd() *cobra.Command {
	cmd := slotCommand("fail <slot>", "Mark a slot as failed",
		func(ctx context.Context, cmd *cobra.Command, sess *gantry.Session, slotID string) (domain.SlotState, error) {
			reason, _ := cmd.Flags().GetString("reason")
			return sess.Fail(ctx, slotID, reason)
		}, false)
	cmd.Flags().String("reason", "", "Why the slot failed")
	return cmd
}

func newSkipCmd() *cobra.Command {
	return slotCommand("skip <slot>", "Mark a slot as skipped",
		func(ctx context.Context, cmd *cobra.Command, sess *gantry.Session, slotID string) (domain.SlotState, error) {
			return sess.Skip(ctx, slotID)
		}, false)
}

func newNextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "next",
		Short: "List the slots ready to begin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.resume(cmd)
			if err != nil {
				return err
			}
			slots := sess.Next()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				if slots == nil {
					slots = []domain.Slot{}
				}
				return writeJSON(cmd.OutOrStdout(), slots)
			}
			for _, s := range slots {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", s.ID, s.Type, s.Name)
			}
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the slots as JSON")
	return cmd
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Move a completed run into auditing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.mutate(cmd, func(ctx context.Context, sess *gantry.Session) error {
				return sess.StartAuditing(ctx)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %s: %s\n", sess.State().PipelineID, sess.State().Status)
			return nil
		},
	}
	addRunFlags(cmd)
	return cmd
}

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the progress of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.resume(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return writeJSON(out, map[string]any{
					"overview": sess.Overview(),
					"state":    sess.State(),
				})
			}
			if isTTY(cmd) {
				var render func(string) (string, error)
				render, err = tui.NewRenderer()
				if err == nil {
					var md string
					md, err = render(tui.StatusMarkdown(sess.Pipeline(), sess.State()))
					if err == nil {
						fmt.Fprint(out, md)
						return nil
					}
				}
				a.logger.Debug("falling back to plain status", "error", err)
			}
			fmt.Fprintln(out, sess.Summary())
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().Bool("json", false, "Print the overview and state as JSON")
	return cmd
}

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Move the run's state document into the archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			var archived string
			_, err = a.mutate(cmd, func(ctx context.Context, sess *gantry.Session) error {
				var err error
				archived, err = sess.Archive()
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), archived)
			return nil
		},
	}
	addRunFlags(cmd)
	return cmd
}
