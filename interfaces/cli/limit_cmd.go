package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newLimitCmd creates the daily scan limit command group.
func (a *App) newLimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limit",
		Short: "Inspect and consume the daily scan budget",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Print today's usage",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(s.limiter.UsageInfo(cmd.Context()))
			},
		},
		&cobra.Command{
			Use:   "use",
			Short: "Consume one scan from today's budget",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				res := s.limiter.Increment(cmd.Context())
				if err := a.print(res); err != nil {
					return err
				}
				if !res.Success {
					return errLimitReached
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Reset today's usage",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				if !s.limiter.Reset(cmd.Context()) {
					return fmt.Errorf("failed to reset scan limit")
				}
				fmt.Fprintln(a.stdout, "Scan limit reset")
				return nil
			},
		},
	)
	return cmd
}
