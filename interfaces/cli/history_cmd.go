package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/plantkeep/domain/collection"
	"github.com/felixgeelhaar/plantkeep/infrastructure/logging"
)

// parsePrediction parses "name:confidence".
func parsePrediction(s string) (collection.Prediction, error) {
	name, conf, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return collection.Prediction{}, fmt.Errorf("prediction %q must be name:confidence", s)
	}
	c, err := strconv.ParseFloat(conf, 64)
	if err != nil || c < 0 || c > 1 {
		return collection.Prediction{}, fmt.Errorf("prediction %q: confidence must be between 0 and 1", s)
	}
	return collection.Prediction{ClassName: name, Confidence: c}, nil
}

type historyAddOptions struct {
	status      string
	image       string
	uploadID    string
	predictions []string
}

// newHistoryCmd creates the scan history command group.
func (a *App) newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage the scan history of the current user",
	}

	opts := &historyAddOptions{}
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a scan",
		Long: `Record a scan, consuming one scan from today's budget.

Finished scans of a signed-in user also add their predictions to the
user's detected diseases.

Examples:
  plantkeep history add --prediction leaf_rust:0.92 --prediction blight:0.41
  plantkeep --user u1 history add --status failed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryAdd(cmd, opts)
		},
	}
	add.Flags().StringVar(&opts.status, "status", collection.ScanComplete, "Scan status (complete, inference_done, failed)")
	add.Flags().StringVar(&opts.image, "image", "", "Image URI")
	add.Flags().StringVar(&opts.uploadID, "upload-id", "", "Upload id")
	add.Flags().StringArrayVarP(&opts.predictions, "prediction", "p", nil, "Prediction as name:confidence (repeatable)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List scans, newest first",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				return a.print(s.history.All(cmd.Context()))
			},
		},
		add,
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every scan",
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := a.open(cmd.Context())
				if err != nil {
					return err
				}
				if err := s.history.Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, "History cleared")
				return nil
			},
		},
	)
	return cmd
}

func (a *App) runHistoryAdd(cmd *cobra.Command, opts *historyAddOptions) error {
	preds := make([]collection.Prediction, 0, len(opts.predictions))
	for _, raw := range opts.predictions {
		p, err := parsePrediction(raw)
		if err != nil {
			return err
		}
		preds = append(preds, p)
	}

	ctx := cmd.Context()
	s, err := a.open(ctx)
	if err != nil {
		return err
	}

	if res := s.limiter.Increment(ctx); !res.Success {
		return errLimitReached
	}

	entry, err := s.history.Append(ctx, collection.ScanEntry{
		Predictions: preds,
		ImageURI:    opts.image,
		Status:      opts.status,
		UploadID:    opts.uploadID,
	})
	if err != nil {
		return err
	}

	if entry.Finished() {
		if uid, err := s.userID(); err == nil {
			added, err := s.profiles.RecordScan(ctx, uid, preds)
			if err != nil {
				return err
			}
			logging.Debug().
				Add(logging.UserID(uid)).
				Add(logging.Count(added)).
				Msg("recorded detections")
		}
	}

	return a.print(entry)
}
