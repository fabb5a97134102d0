// Package fetcher implements the single-filing download pipeline: anti-bot
// delay, header rotation, optional proxy rewrite, classified retries, and
// the storage writes for a successful response.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/filing-harvester/internal/clock/system"
	"github.com/JakeFAU/filing-harvester/internal/filing"
	"github.com/JakeFAU/filing-harvester/internal/metrics"
)

// Config controls fetcher behavior. It is read-only after construction, so
// many concurrent Fetch calls share one Fetcher without coordination.
type Config struct {
	RequestTimeout   time.Duration
	MaxAttempts      int
	BaseRetryDelay   time.Duration
	RateLimitBackoff time.Duration
	MinRequestDelay  time.Duration
	MaxRequestDelay  time.Duration
	ProxyBaseURL     string
	SourceOrigin     string
	LocalRoot        string
	DryRun           bool
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseRetryDelay <= 0 {
		c.BaseRetryDelay = 2 * time.Second
	}
	if c.RateLimitBackoff <= 0 {
		c.RateLimitBackoff = defaultRateLimitBackoff
	}
	if c.MinRequestDelay < 0 {
		c.MinRequestDelay = 0
	}
	if c.MaxRequestDelay < c.MinRequestDelay {
		c.MaxRequestDelay = c.MinRequestDelay
	}
	return c
}

// Fetcher downloads one filing end-to-end. It never returns an error or
// panics to the caller; all failure is captured inside the DownloadResult.
type Fetcher struct {
	cfg    Config
	client *http.Client
	blobs  filing.BlobStore
	clock  filing.Clock
	rng    Rand
	logger *zap.Logger
}

// New constructs a Fetcher. blobs may be nil when no remote storage target is
// configured; client, clock, rng, and logger fall back to sane defaults.
func New(
	cfg Config,
	client *http.Client,
	blobs filing.BlobStore,
	clock filing.Clock,
	rng Rand,
	logger *zap.Logger,
) *Fetcher {
	cfg = cfg.withDefaults()
	if client == nil {
		client = &http.Client{Timeout: cfg.RequestTimeout}
	}
	if clock == nil {
		clock = system.New()
	}
	if rng == nil {
		rng = NewRand()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		cfg:    cfg,
		client: client,
		blobs:  blobs,
		clock:  clock,
		rng:    rng,
		logger: logger,
	}
}

// Fetch acquires one filing and reports the outcome.
func (f *Fetcher) Fetch(ctx context.Context, fl filing.Filing) (res filing.DownloadResult) {
	res = filing.DownloadResult{FilingID: fl.ID}
	start := f.clock.Now()
	defer func() {
		res.Duration = f.clock.Now().Sub(start)
	}()

	if f.cfg.DryRun {
		res.Success = true
		return res
	}

	reqURL := f.resolveURL(fl.SourceURL)
	body, contentType, attempts, err := f.download(ctx, reqURL)
	res.Attempts = attempts
	if err != nil {
		res.Err = err
		f.logger.Warn("download failed",
			zap.String("filing_id", fl.ID),
			zap.String("url", reqURL),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return res
	}
	if contentType == "" {
		contentType = contentTypeFor(fl)
	}

	if f.cfg.LocalRoot != "" {
		localPath, werr := f.writeLocal(fl, body)
		if werr != nil {
			res.Err = fmt.Errorf("write local copy: %w", werr)
			return res
		}
		res.LocalPath = localPath
	}
	if f.blobs != nil {
		key := filing.StorageKey(fl)
		if _, perr := f.blobs.PutObject(ctx, key, contentType, body); perr != nil {
			res.Err = fmt.Errorf("store object: %w", perr)
			return res
		}
		res.StorageKey = key
	}

	res.Bytes = int64(len(body))
	res.Success = true
	metrics.TotalDownloads.Inc()
	metrics.TotalBytesStored.Add(float64(len(body)))
	f.logger.Debug("filing downloaded",
		zap.String("filing_id", fl.ID),
		zap.Int64("bytes", res.Bytes),
		zap.String("storage_key", res.StorageKey),
	)
	return res
}

// download runs the attempt loop. The returned attempt count includes the
// final attempt; a cancellation during a pre-request wait does not count.
func (f *Fetcher) download(ctx context.Context, reqURL string) ([]byte, string, int, error) {
	var lastErr error
	for attempt := 1; attempt <= f.cfg.MaxAttempts; attempt++ {
		if err := f.pause(ctx, f.requestDelay()); err != nil {
			return nil, "", attempt - 1, err
		}

		body, contentType, err := f.doRequest(ctx, reqURL)
		if err == nil {
			return body, contentType, attempt, nil
		}
		lastErr = err

		// 404 is authoritative: the document does not exist at that URL.
		if filing.IsNotFound(err) || filing.IsCanceled(err) {
			return nil, "", attempt, err
		}
		if attempt == f.cfg.MaxAttempts {
			break
		}

		var backoff time.Duration
		if filing.IsRateLimited(err) {
			backoff = rateLimitBackoff(f.cfg.RateLimitBackoff, attempt, f.rng)
		} else {
			backoff = standardBackoff(f.cfg.BaseRetryDelay, attempt, f.rng)
		}
		f.logger.Debug("retrying after backoff",
			zap.String("url", reqURL),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		if werr := f.pause(ctx, backoff); werr != nil {
			return nil, "", attempt, werr
		}
	}
	return nil, "", f.cfg.MaxAttempts, lastErr
}

func (f *Fetcher) doRequest(ctx context.Context, reqURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header = requestHeaders(f.rng)

	metrics.TotalRequests.Inc()
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.TotalRequestErrors.Inc()
		return nil, "", fmt.Errorf("execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		metrics.TotalNotFoundHits.Inc()
		return nil, "", &filing.NotFoundError{URL: reqURL, StatusCode: resp.StatusCode}
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		metrics.TotalRateLimitHits.Inc()
		return nil, "", &filing.RateLimitError{URL: reqURL, StatusCode: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		metrics.TotalRequestErrors.Inc()
		return nil, "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, reqURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// resolveURL rewrites the source origin to the proxy base when configured.
func (f *Fetcher) resolveURL(sourceURL string) string {
	if f.cfg.ProxyBaseURL == "" || f.cfg.SourceOrigin == "" {
		return sourceURL
	}
	if !strings.HasPrefix(sourceURL, f.cfg.SourceOrigin) {
		return sourceURL
	}
	return strings.TrimSuffix(f.cfg.ProxyBaseURL, "/") + "/" +
		strings.TrimPrefix(strings.TrimPrefix(sourceURL, f.cfg.SourceOrigin), "/")
}

// requestDelay draws the anti-detection delay uniformly from [min, max].
func (f *Fetcher) requestDelay() time.Duration {
	spread := f.cfg.MaxRequestDelay - f.cfg.MinRequestDelay
	return f.cfg.MinRequestDelay + jitter(spread, f.rng)
}

// pause waits for delay or until the context finishes, whichever is first.
func (f *Fetcher) pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("wait interrupted: %w", err)
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (f *Fetcher) writeLocal(fl filing.Filing, body []byte) (string, error) {
	fullPath := filepath.Join(f.cfg.LocalRoot, filepath.FromSlash(filing.LocalRelPath(fl)))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("create directories: %w", err)
	}
	if err := os.WriteFile(fullPath, body, 0o600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fullPath, nil
}

func contentTypeFor(fl filing.Filing) string {
	ext := filing.ResolveExtension(fl.FileExtension, fl.SourceURL)
	if ct := mime.TypeByExtension("." + ext); ct != "" {
		return ct
	}
	return "application/pdf"
}
