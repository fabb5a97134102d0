package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/filing-harvester/internal/filing"
)

// newFetchCmd creates the 'fetch' subcommand: acquire a single filing
// described entirely by flags. Used when an external workflow fans out one
// request per document.
func newFetchCmd() *cobra.Command {
	var (
		id         string
		sourceURL  string
		exchange   string
		companyID  string
		sourceID   string
		reportDate string
		extension  string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download a single filing and record its status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			date, err := time.Parse("2006-01-02", reportDate)
			if err != nil {
				return fmt.Errorf("parse --report-date: %w", err)
			}

			fl := filing.Filing{
				ID:            id,
				Exchange:      exchange,
				SourceID:      sourceID,
				SourceURL:     sourceURL,
				CompanyID:     companyID,
				ReportDate:    date,
				FileExtension: extension,
				Status:        filing.StatusPending,
			}

			res := appInstance.Coordinator.RunSingle(cmd.Context(), fl)
			appInstance.Logger.Info("fetch finished",
				zap.String("filing_id", res.FilingID),
				zap.Bool("success", res.Success),
				zap.String("error", res.ErrorText()),
			)
			return printJSON(cmd, res)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "filing identifier")
	cmd.Flags().StringVar(&sourceURL, "url", "", "source document URL")
	cmd.Flags().StringVar(&exchange, "exchange", "", "source exchange/market tag")
	cmd.Flags().StringVar(&companyID, "company", "", "owning entity identifier")
	cmd.Flags().StringVar(&sourceID, "source-id", "", "source document identifier")
	cmd.Flags().StringVar(&reportDate, "report-date", "", "report date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&extension, "ext", "", "file extension (inferred from URL when omitted)")
	for _, required := range []string{"id", "url", "exchange", "company", "source-id", "report-date"} {
		_ = cmd.MarkFlagRequired(required)
	}

	return cmd
}

type fetchOutput struct {
	FilingID   string `json:"filing_id"`
	Success    bool   `json:"success"`
	Skipped    bool   `json:"skipped,omitempty"`
	LocalPath  string `json:"local_path,omitempty"`
	StorageKey string `json:"storage_key,omitempty"`
	Bytes      int64  `json:"bytes"`
	Attempts   int    `json:"attempts"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func printJSON(cmd *cobra.Command, res filing.DownloadResult) error {
	out := fetchOutput{
		FilingID:   res.FilingID,
		Success:    res.Success,
		Skipped:    res.Skipped,
		LocalPath:  res.LocalPath,
		StorageKey: res.StorageKey,
		Bytes:      res.Bytes,
		Attempts:   res.Attempts,
		DurationMs: res.Duration.Milliseconds(),
		Error:      res.ErrorText(),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
