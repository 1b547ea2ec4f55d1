package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// flagsView is the printed form of the app flags.
type flagsView struct {
	FirstLaunch bool `json:"firstLaunch" yaml:"firstLaunch"`
	LoggedIn    bool `json:"loggedIn" yaml:"loggedIn"`
}

// newFlagsCmd creates the app flags command group.
func (a *App) newFlagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flags",
		Short: "Inspect and set first-launch and login flags",
	}

	// set returns a command that writes one flag.
	set := func(use, short, done string, fn func(s *session, cmd *cobra.Command) bool) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				if !fn(s, cmd) {
					return fmt.Errorf("failed to update flags")
				}
				fmt.Fprintln(a.stdout, done)
				return nil
			},
		}
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Print the flags",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(flagsView{
					FirstLaunch: s.flags.IsFirstLaunch(cmd.Context()),
					LoggedIn:    s.flags.IsLoggedIn(cmd.Context()),
				})
			},
		},
		set("launch", "Mark the app as launched", "Marked as launched", func(s *session, cmd *cobra.Command) bool {
			return s.flags.MarkLaunched(cmd.Context())
		}),
		set("login", "Set the logged-in flag", "Logged in", func(s *session, cmd *cobra.Command) bool {
			return s.flags.SetLoggedIn(cmd.Context(), true)
		}),
		set("logout", "Clear the logged-in flag", "Logged out", func(s *session, cmd *cobra.Command) bool {
			return s.flags.SetLoggedIn(cmd.Context(), false)
		}),
	)
	return cmd
}
