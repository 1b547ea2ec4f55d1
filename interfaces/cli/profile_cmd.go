package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plantkeep/application"
	"github.com/felixgeelhaar/plantkeep/domain/plant"
)

type setupOptions struct {
	name      string
	phone     string
	address   string
	latitude  float64
	longitude float64
}

// newProfileCmd creates the profile command group.
func (a *App) newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the profile of the current user",
		Long: `Manage the profile document of the user given with --user.

Profile commands need a signed-in user.`,
	}

	// withUser opens the session and resolves the user id.
	withUser := func(run func(cmd *cobra.Command, s *session, uid string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			uid, err := s.userID()
			if err != nil {
				return err
			}
			return run(cmd, s, uid)
		}
	}

	opts := &setupOptions{}
	setup := &cobra.Command{
		Use:   "setup",
		Short: "Complete first-run setup",
		RunE: withUser(func(cmd *cobra.Command, s *session, uid string) error {
			in := application.SetupInput{
				Name:            opts.name,
				Phone:           opts.phone,
				LocationAddress: opts.address,
			}
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				in.Location = &plant.Location{Latitude: opts.latitude, Longitude: opts.longitude}
			}
			if err := s.profiles.CompleteSetup(cmd.Context(), uid, in); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Setup completed for %s\n", uid)
			return nil
		}),
	}
	setup.Flags().StringVar(&opts.name, "name", "", "Display name")
	setup.Flags().StringVar(&opts.phone, "phone", "", "Phone number")
	setup.Flags().StringVar(&opts.address, "address", "", "Location address")
	setup.Flags().Float64Var(&opts.latitude, "lat", 0, "Latitude")
	setup.Flags().Float64Var(&opts.longitude, "lon", 0, "Longitude")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the profile",
			RunE: withUser(func(cmd *cobra.Command, s *session, uid string) error {
				prof, err := s.profiles.Get(cmd.Context(), uid)
				if err != nil {
					return err
				}
				return a.print(prof)
			}),
		},
		&cobra.Command{
			Use:   "diseases",
			Short: "List detected diseases, newest first",
			RunE: withUser(func(cmd *cobra.Command, s *session, uid string) error {
				ds, err := s.profiles.DetectedDiseases(cmd.Context(), uid)
				if err != nil {
					return err
				}
				return a.print(ds)
			}),
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Print detected disease statistics",
			RunE: withUser(func(cmd *cobra.Command, s *session, uid string) error {
				st, err := s.profiles.DiseaseStats(cmd.Context(), uid)
				if err != nil {
					return err
				}
				return a.print(st)
			}),
		},
		&cobra.Command{
			Use:   "clear-diseases",
			Short: "Remove every detected disease",
			RunE: withUser(func(cmd *cobra.Command, s *session, uid string) error {
				if err := s.profiles.ClearDetectedDiseases(cmd.Context(), uid); err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "Detected diseases cleared")
				return nil
			}),
		},
		&cobra.Command{
			Use:   "check",
			Short: "Report whether the user may scan and needs setup",
			RunE: withUser(func(cmd *cobra.Command, s *session, uid string) error {
				return a.print(s.profiles.CheckSetup(cmd.Context(), uid))
			}),
		},
		setup,
		&cobra.Command{
			Use:   "delete",
			Short: "Delete the profile, favorites and history of the user",
			RunE: withUser(func(cmd *cobra.Command, s *session, uid string) error {
				if err := s.profiles.DeleteAll(cmd.Context(), uid); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Deleted data for %s\n", uid)
				return nil
			}),
		},
	)
	return cmd
}
