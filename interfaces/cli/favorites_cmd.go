package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plantkeep/domain/plant"
)

type favoriteOptions struct {
	name           string
	scientificName string
}

func (o *favoriteOptions) plant(id string) plant.Plant {
	return plant.Plant{ID: id, CommonName: o.name, ScientificName: o.scientificName}
}

func (o *favoriteOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.name, "name", "", "Common name")
	cmd.Flags().StringVar(&o.scientificName, "scientific-name", "", "Scientific name")
}

// newFavoritesCmd creates the favorites command group.
func (a *App) newFavoritesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"fav"},
		Short:   "Manage favorite plants of the current user",
	}

	addOpts := &favoriteOptions{}
	add := &cobra.Command{
		Use:   "add <plant-id>",
		Short: "Add a plant to favorites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.favorites.Add(cmd.Context(), addOpts.plant(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Added %s to favorites\n", args[0])
			return nil
		},
	}
	addOpts.bind(add)

	toggleOpts := &favoriteOptions{}
	toggle := &cobra.Command{
		Use:   "toggle <plant-id>",
		Short: "Add or remove a plant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			on, err := s.favorites.Toggle(cmd.Context(), toggleOpts.plant(args[0]))
			if err != nil {
				return err
			}
			if on {
				fmt.Fprintf(a.stdout, "Added %s to favorites\n", args[0])
			} else {
				fmt.Fprintf(a.stdout, "Removed %s from favorites\n", args[0])
			}
			return nil
		},
	}
	toggleOpts.bind(toggle)

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List favorites, oldest first",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(s.favorites.List(cmd.Context()))
			},
		},
		add,
		&cobra.Command{
			Use:   "remove <plant-id>",
			Short: "Remove a plant from favorites",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				if err := s.favorites.Remove(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "Removed %s from favorites\n", args[0])
				return nil
			},
		},
		toggle,
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every favorite",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				if err := s.favorites.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "Favorites cleared")
				return nil
			},
		},
	)
	return cmd
}
