package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plantkeep/application"
	"github.com/felixgeelhaar/plantkeep/domain/plant"
	"github.com/felixgeelhaar/plantkeep/infrastructure/resilience"
	"github.com/felixgeelhaar/plantkeep/infrastructure/source"
)

type plantsLoadOptions struct {
	file    string
	url     string
	apiKey  string
	refresh bool
}

// plantsView is the printed form of a catalogue load.
type plantsView struct {
	Source   application.Source `json:"source" yaml:"source"`
	Offline  bool               `json:"offline" yaml:"offline"`
	AgeHours float64            `json:"ageHours" yaml:"ageHours"`
	Path     []string           `json:"path" yaml:"path"`
	Count    int                `json:"count" yaml:"count"`
	Plants   []plant.Plant      `json:"plants" yaml:"plants"`
}

// newPlantsCmd creates the plants command group.
func (a *App) newPlantsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plants",
		Short: "Load the plant catalogue through the cache",
	}

	opts := &plantsLoadOptions{}
	load := &cobra.Command{
		Use:   "load",
		Short: "Load plants from cache, the remote or stale cache",
		Long: `Load the plant catalogue.

A fresh cached catalogue is served without contacting the remote. Otherwise
the remote is fetched and cached. When the fetch fails, stale cache is served
and marked offline.

Examples:
  plantkeep plants load --url https://example.org/api/species-list --api-key KEY
  plantkeep plants load --file plants.json --refresh`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runPlantsLoad(cmd, opts)
		},
	}
	load.Flags().StringVar(&opts.file, "file", "", "Read the catalogue from a JSON file")
	load.Flags().StringVar(&opts.url, "url", "", "Fetch the catalogue from an HTTP endpoint")
	load.Flags().StringVar(&opts.apiKey, "api-key", "", "API key sent with HTTP requests")
	load.Flags().BoolVar(&opts.refresh, "refresh", false, "Skip the fresh cache check")

	cmd.AddCommand(load)
	return cmd
}

func (a *App) runPlantsLoad(cmd *cobra.Command, opts *plantsLoadOptions) error {
	var src plant.Source
	switch {
	case opts.file != "" && opts.url != "":
		return fmt.Errorf("--file and --url are mutually exclusive")
	case opts.file != "":
		src = source.NewFile(opts.file)
	case opts.url != "":
		cfg := source.DefaultHTTPConfig()
		cfg.URL = opts.url
		cfg.APIKey = opts.apiKey
		src = source.NewHTTP(cfg)
	default:
		return fmt.Errorf("one of --file or --url is required")
	}

	ctx := cmd.Context()
	s, err := a.open(ctx)
	if err != nil {
		return err
	}

	exec := resilience.NewExecutor[[]plant.Plant](s.build.Resilience)
	loader, err := application.NewPlantLoader(s.cache, src, application.WithExecutor(exec))
	if err != nil {
		return err
	}

	var res application.Result[[]plant.Plant]
	if opts.refresh {
		res, err = loader.Refresh(ctx)
	} else {
		res, err = loader.Load(ctx)
	}
	if err != nil {
		return err
	}

	path := make([]string, len(res.Path))
	for i, st := range res.Path {
		path[i] = string(st)
	}
	return a.print(plantsView{
		Source:   res.Source,
		Offline:  res.Offline,
		AgeHours: res.Age.Round(time.Minute).Hours(),
		Path:     path,
		Count:    len(res.Data),
		Plants:   res.Data,
	})
}
