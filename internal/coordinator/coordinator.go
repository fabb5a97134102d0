// Package coordinator fans filing acquisition out over a fixed worker pool
// and commits every status transition the moment it is known.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/filing-harvester/internal/clock/system"
	"github.com/JakeFAU/filing-harvester/internal/filing"
)

// Config controls Coordinator behavior.
type Config struct {
	Concurrency int
	Topic       string
}

// ItemFetcher downloads one filing; all failure lives inside the result.
type ItemFetcher interface {
	Fetch(ctx context.Context, fl filing.Filing) filing.DownloadResult
}

// ProgressFunc is invoked synchronously after each individual result has been
// recorded, for live progress reporting to a caller.
type ProgressFunc func(done, total int, res filing.DownloadResult)

// Coordinator executes acquisition batches. A single item's failure never
// aborts a batch; the only error escalated to the caller is the filing store
// being unavailable before any work could be loaded.
type Coordinator struct {
	store     filing.Store
	fetcher   ItemFetcher
	publisher filing.Publisher
	clock     filing.Clock
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Coordinator. publisher may be nil when no completion-event
// topic is configured.
func New(
	store filing.Store,
	fetcher ItemFetcher,
	publisher filing.Publisher,
	clock filing.Clock,
	cfg Config,
	logger *zap.Logger,
) *Coordinator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:     store,
		fetcher:   fetcher,
		publisher: publisher,
		clock:     clock,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunByIDs loads the identified filings and acquires them concurrently.
func (c *Coordinator) RunByIDs(ctx context.Context, ids []string, progress ProgressFunc) (filing.BatchOutcome, error) {
	filings, err := c.store.GetFilingsByIDs(ctx, ids)
	if err != nil {
		return filing.BatchOutcome{}, fmt.Errorf("load filings: %w", err)
	}
	return c.run(ctx, filings, progress), nil
}

// RunPending resolves the pending set through the filing store, then proceeds
// as a batch.
func (c *Coordinator) RunPending(ctx context.Context, limit int, progress ProgressFunc) (filing.BatchOutcome, error) {
	filings, err := c.store.GetPendingFilings(ctx, limit)
	if err != nil {
		return filing.BatchOutcome{}, fmt.Errorf("load pending filings: %w", err)
	}
	return c.run(ctx, filings, progress), nil
}

// RunSingle acquires one filing synchronously, persisting its terminal status.
func (c *Coordinator) RunSingle(ctx context.Context, fl filing.Filing) filing.DownloadResult {
	if fl.Resolved() {
		return filing.DownloadResult{
			FilingID:   fl.ID,
			Success:    true,
			Skipped:    true,
			StorageKey: fl.StorageKey,
			LocalPath:  fl.LocalPath,
		}
	}
	c.markInProgress(ctx, fl.ID)
	res := c.fetcher.Fetch(ctx, fl)
	c.persistResult(ctx, uuid.NewString(), fl, res)
	return res
}

func (c *Coordinator) run(ctx context.Context, filings []filing.Filing, progress ProgressFunc) filing.BatchOutcome {
	batchID := uuid.NewString()
	start := c.clock.Now()
	outcome := filing.BatchOutcome{
		BatchID: batchID,
		Total:   len(filings),
	}

	// Idempotency filter: resolved filings never reach a worker.
	work := make([]filing.Filing, 0, len(filings))
	for _, fl := range filings {
		if fl.Resolved() {
			outcome.Skipped++
			outcome.Succeeded++
			outcome.Results = append(outcome.Results, filing.DownloadResult{
				FilingID:   fl.ID,
				Success:    true,
				Skipped:    true,
				StorageKey: fl.StorageKey,
				LocalPath:  fl.LocalPath,
			})
			continue
		}
		work = append(work, fl)
	}
	if outcome.Skipped > 0 {
		c.logger.Info("skipping already-resolved filings",
			zap.String("batch_id", batchID),
			zap.Int("skipped", outcome.Skipped),
		)
	}
	if len(work) == 0 {
		outcome.Duration = c.clock.Now().Sub(start)
		return outcome
	}

	// The PROCESSING marker is best-effort observability; the terminal write
	// below is the authoritative one.
	byID := make(map[string]filing.Filing, len(work))
	for _, fl := range work {
		byID[fl.ID] = fl
		c.markInProgress(ctx, fl.ID)
	}

	jobs := make(chan filing.Filing, c.cfg.Concurrency)
	results := make(chan filing.DownloadResult, len(work))

	for i := 0; i < c.cfg.Concurrency; i++ {
		go func() {
			for fl := range jobs {
				results <- c.fetcher.Fetch(ctx, fl)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, fl := range work {
			select {
			case <-ctx.Done():
				// Dispatch stops; undispatched items get a cancellation result.
				results <- filing.DownloadResult{
					FilingID: fl.ID,
					Err:      fmt.Errorf("batch canceled before dispatch: %w", ctx.Err()),
				}
			case jobs <- fl:
			}
		}
	}()

	for i := 0; i < len(work); i++ {
		res := <-results
		c.persistResult(ctx, batchID, byID[res.FilingID], res)
		outcome.Results = append(outcome.Results, res)
		if res.Success {
			outcome.Succeeded++
		} else {
			outcome.Failed++
		}
		if progress != nil {
			progress(outcome.Skipped+i+1, outcome.Total, res)
		}
	}

	outcome.Duration = c.clock.Now().Sub(start)
	c.logger.Info("batch finished",
		zap.String("batch_id", batchID),
		zap.Int("total", outcome.Total),
		zap.Int("succeeded", outcome.Succeeded),
		zap.Int("failed", outcome.Failed),
		zap.Int("skipped", outcome.Skipped),
		zap.Duration("duration", outcome.Duration),
	)
	return outcome
}

func (c *Coordinator) markInProgress(ctx context.Context, id string) {
	if err := c.store.SetInProgress(ctx, id); err != nil {
		c.logger.Warn("failed to mark filing in progress",
			zap.String("filing_id", id),
			zap.Error(err),
		)
	}
}

// persistResult commits the terminal status for one result immediately, so a
// crash after N of M results leaves exactly those N filings resolved. Store
// errors are logged and swallowed; bookkeeping failure never masks the
// download outcome.
func (c *Coordinator) persistResult(ctx context.Context, batchID string, fl filing.Filing, res filing.DownloadResult) {
	status := filing.StatusForError(res.Err)
	// Status writes outlive batch cancellation; a canceled context must not
	// corrupt bookkeeping for results that were already produced.
	writeCtx := context.WithoutCancel(ctx)
	if err := c.store.SetTerminalStatus(writeCtx, res.FilingID, res.LocalPath, res.StorageKey, status, res.ErrorText()); err != nil {
		c.logger.Error("failed to persist filing status",
			zap.String("batch_id", batchID),
			zap.String("filing_id", res.FilingID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
	if res.Success && !res.Skipped {
		c.publishCompletion(writeCtx, batchID, fl, res)
	}
}

// publishCompletion notifies downstream pipelines (indexing, OCR) of a newly
// stored document. Failures are logged, never escalated.
func (c *Coordinator) publishCompletion(ctx context.Context, batchID string, fl filing.Filing, res filing.DownloadResult) {
	if c.publisher == nil || c.cfg.Topic == "" {
		return
	}
	payload := map[string]any{
		"filing_id":   res.FilingID,
		"exchange":    fl.Exchange,
		"company_id":  fl.CompanyID,
		"storage_key": res.StorageKey,
		"bytes":       res.Bytes,
		"batch_id":    batchID,
		"timestamp":   c.clock.Now().Format(time.RFC3339),
	}
	if _, err := c.publisher.Publish(ctx, c.cfg.Topic, payload); err != nil {
		c.logger.Warn("failed to publish completion event",
			zap.String("filing_id", res.FilingID),
			zap.Error(err),
		)
	}
}
