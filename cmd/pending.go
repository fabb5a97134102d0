package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/filing-harvester/internal/filing"
)

// newPendingCmd creates the 'pending' subcommand: resolve the pending set
// through the filing store and acquire it as a batch.
func newPendingCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Download filings currently awaiting their first attempt",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
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

			outcome, err := appInstance.Coordinator.RunPending(cmd.Context(), limit, progress)
			if err != nil {
				return err
			}
			logBatchOutcome(logger, outcome)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "maximum number of pending filings to process")
	return cmd
}
