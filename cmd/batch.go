package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/filing-harvester/internal/filing"
)

// newBatchCmd creates the 'batch' subcommand: acquire a set of filings
// identified by ID, concurrently. Used by bulk/backfill callers.
func newBatchCmd() *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Download a batch of filings by identifier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return errors.New("at least one --ids value is required")
			}

			logger := appInstance.Logger
			progress := func(done, total int, res filing.DownloadResult) {
				logger.Info("filing processed",
					zap.Int("done", done),
					zap.Int("total", total),
					zap.String("filing_id", res.FilingID),
					zap.Bool("success", res.Success),
				)
			}

			outcome, err := appInstance.Coordinator.RunByIDs(cmd.Context(), ids, progress)
			if err != nil {
				return err
			}
			logBatchOutcome(logger, outcome)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&ids, "ids", nil, "filing identifiers (comma separated or repeated)")
	return cmd
}

func logBatchOutcome(logger *zap.Logger, outcome filing.BatchOutcome) {
	logger.Info("batch outcome",
		zap.String("batch_id", outcome.BatchID),
		zap.Int("total", outcome.Total),
		zap.Int("succeeded", outcome.Succeeded),
		zap.Int("failed", outcome.Failed),
		zap.Int("skipped", outcome.Skipped),
		zap.Duration("duration", outcome.Duration),
	)
	for _, res := range outcome.Results {
		if res.Success {
			continue
		}
		logger.Warn("filing not acquired",
			zap.String("filing_id", res.FilingID),
			zap.Int("attempts", res.Attempts),
			zap.String("error", res.ErrorText()),
		)
	}
}
