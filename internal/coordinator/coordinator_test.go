package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/filing-harvester/internal/filing"
	"github.com/JakeFAU/filing-harvester/internal/storage/memory"
)

type fakeFetcher struct {
	mu          sync.Mutex
	results     map[string]filing.DownloadResult
	calls       map[string]int
	delay       time.Duration
	blockOnCtx  bool
	inFlight    int
	maxInFlight int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		results: make(map[string]filing.DownloadResult),
		calls:   make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, fl filing.Filing) filing.DownloadResult {
	f.mu.Lock()
	f.calls[fl.ID]++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.blockOnCtx {
		<-ctx.Done()
		return filing.DownloadResult{
			FilingID: fl.ID,
			Err:      fmt.Errorf("fetch interrupted: %w", ctx.Err()),
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if res, ok := f.results[fl.ID]; ok {
		return res
	}
	return filing.DownloadResult{
		FilingID:   fl.ID,
		Success:    true,
		StorageKey: filing.StorageKey(fl),
		Bytes:      128,
		Attempts:   1,
	}
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []map[string]any
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	if m, ok := payload.(map[string]any); ok {
		p.messages = append(p.messages, m)
	}
	return "msg-id", nil
}

func pendingFiling(id string) filing.Filing {
	return filing.Filing{
		ID:         id,
		Exchange:   "nse",
		SourceID:   "src-" + id,
		SourceURL:  "https://filings.example.com/" + id + ".pdf",
		CompanyID:  "C-9",
		ReportDate: time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC),
		Status:     filing.StatusPending,
	}
}

func newCoordinator(store filing.Store, fetcher ItemFetcher, pub filing.Publisher, concurrency int) *Coordinator {
	return New(store, fetcher, pub, nil, Config{Concurrency: concurrency, Topic: "filings-stored"}, zap.NewNop())
}

func TestRunByIDsAllSucceed(t *testing.T) {
	t.Parallel()

	store := memory.NewFilingStore()
	store.Seed(pendingFiling("a"), pendingFiling("b"), pendingFiling("c"))
	fetcher := newFakeFetcher()
	pub := &fakePublisher{}
	c := newCoordinator(store, fetcher, pub, 2)

	outcome, err := c.RunByIDs(context.Background(), []string{"a", "b", "c"}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, outcome.Total)
	require.Equal(t, 3, outcome.Succeeded)
	require.Zero(t, outcome.Failed)
	require.Len(t, outcome.Results, 3)
	require.NotEmpty(t, outcome.BatchID)

	for _, id := range []string{"a", "b", "c"} {
		fl, ok := store.Get(id)
		require.True(t, ok)
		require.Equal(t, filing.StatusCompleted, fl.Status)
		require.NotEmpty(t, fl.StorageKey)
	}
	require.Len(t, pub.messages, 3)
}

func TestRunByIDsMixedNotFoundAndSuccess(t *testing.T) {
	t.Parallel()

	store := memory.NewFilingStore()
	store.Seed(pendingFiling("gone"), pendingFiling("ok"))
	fetcher := newFakeFetcher()
	fetcher.results["gone"] = filing.DownloadResult{
		FilingID: "gone",
		Err:      &filing.NotFoundError{URL: "https://filings.example.com/gone.pdf", StatusCode: 404},
		Attempts: 1,
	}
	c := newCoordinator(store, fetcher, nil, 2)

	outcome, err := c.RunByIDs(context.Background(), []string{"gone", "ok"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, outcome.Succeeded)
	require.Equal(t, 1, outcome.Failed)

	gone, _ := store.Get("gone")
	require.Equal(t, filing.StatusURLFailure, gone.Status)
	require.Empty(t, gone.StorageKey)
	require.Contains(t, gone.LastError, "HTTP 404")

	ok, _ := store.Get("ok")
	require.Equal(t, filing.StatusCompleted, ok.Status)
	require.NotEmpty(t, ok.StorageKey)
}

func TestRunByIDsRateLimitedPersisted(t *testing.T) {
	t.Parallel()

	store := memory.NewFilingStore()
	store.Seed(pendingFiling("throttled"))
	fetcher := newFakeFetcher()
	fetcher.results["throttled"] = filing.DownloadResult{
		FilingID: "throttled",
		Err:      &filing.RateLimitError{URL: "https://filings.example.com/throttled.pdf", StatusCode: 429},
		Attempts: 3,
	}
	c := newCoordinator(store, fetcher, nil, 1)

	outcome, err := c.RunByIDs(context.Background(), []string{"throttled"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, outcome.Failed)

	fl, _ := store.Get("throttled")
	require.Equal(t, filing.StatusRateLimited, fl.Status)
	require.Contains(t, fl.LastError, "HTTP 429")
}

func TestRunByIDsSkipsResolvedFilings(t *testing.T) {
	t.Parallel()

	store := memory.NewFilingStore()
	done := pendingFiling("done")
	done.Status = filing.StatusCompleted
	done.StorageKey = "nse/9/2024/02/20/src-done.pdf"
	urlFail := pendingFiling("absent")
	urlFail.Status = filing.StatusURLFailure
	stale := pendingFiling("stale")
	stale.StorageKey = "nse/9/2024/02/20/src-stale.pdf" // stale bookkeeping, key already present
	store.Seed(done, urlFail, stale)

	fetcher := newFakeFetcher()
	c := newCoordinator(store, fetcher, nil, 2)

	outcome, err := c.RunByIDs(context.Background(), []string{"done", "absent", "stale"}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, outcome.Total)
	require.Equal(t, 3, outcome.Succeeded)
	require.Equal(t, 3, outcome.Skipped)
	require.Zero(t, outcome.Failed)
	require.Zero(t, fetcher.totalCalls())
	for _, res := range outcome.Results {
		require.True(t, res.Skipped)
		require.True(t, res.Success)
	}
}

func TestRunByIDsConcurrencyCap(t *testing.T) {
	t.Parallel()

	store := memory.NewFilingStore()
	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("f-%d", i)
		store.Seed(pendingFiling(id))
		ids = append(ids, id)
	}
	fetcher := newFakeFetcher()
	fetcher.delay = 20 * time.Millisecond
	c := newCoordinator(store, fetcher, nil, 2)

	outcome, err := c.RunByIDs(context.Background(), ids, nil)
	require.NoError(t, err)
	require.Equal(t, 8, outcome.Succeeded)
	require.LessOrEqual(t, fetcher.maxInFlight, 2)
}

func TestRunByIDsCancellationMidBatch(t *testing.T) {
	t.Parallel()

	store := memory.NewFilingStore()
	ids := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("f-%d", i)
		store.Seed(pendingFiling(id))
		ids = append(ids, id)
	}
	fetcher := newFakeFetcher()
	fetcher.blockOnCtx = true
	c := newCoordinator(store, fetcher, nil, 2)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	outcome, err := c.RunByIDs(ctx, ids, nil)
	require.NoError(t, err)
	require.Equal(t, 6, outcome.Total)
	require.Equal(t, 6, outcome.Failed)
	require.Len(t, outcome.Results, 6)
	for _, res := range outcome.Results {
		require.True(t, filing.IsCanceled(res.Err), "expected cancellation result, got %v", res.Err)
	}
	// Terminal writes survive the canceled context.
	for _, id := range ids {
		fl, _ := store.Get(id)
		require.Equal(t, filing.StatusFailed, fl.Status)
	}
}

func TestRunByIDsStoreUnavailable(t *testing.T) {
	t.Parallel()

	c := newCoordinator(&unavailableStore{}, newFakeFetcher(), nil, 2)
	_, err := c.RunByIDs(context.Background(), []string{"a"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "load filings")
}

func TestRunByIDsPersistenceErrorsAreSwallowed(t *testing.T) {
	t.Parallel()

	inner := memory.NewFilingStore()
	inner.Seed(pendingFiling("a"))
	store := &terminalWriteFailStore{FilingStore: inner}
	c := newCoordinator(store, newFakeFetcher(), nil, 1)

	outcome, err := c.RunByIDs(context.Background(), []string{"a"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, outcome.Succeeded)
}

func TestRunPendingUsesLimit(t *testing.T) {
	t.Parallel()

	store := memory.NewFilingStore()
	for i := 0; i < 5; i++ {
		store.Seed(pendingFiling(fmt.Sprintf("f-%d", i)))
	}
	fetcher := newFakeFetcher()
	c := newCoordinator(store, fetcher, nil, 2)

	outcome, err := c.RunPending(context.Background(), 3, nil)
	require.NoError(t, err)
	require.Equal(t, 3, outcome.Total)
	require.Equal(t, 3, fetcher.totalCalls())
}

func TestRunSinglePersistsTerminalStatus(t *testing.T) {
	t.Parallel()

	store := memory.NewFilingStore()
	store.Seed(pendingFiling("solo"))
	fetcher := newFakeFetcher()
	c := newCoordinator(store, fetcher, nil, 1)

	fl, _ := store.Get("solo")
	res := c.RunSingle(context.Background(), fl)
	require.True(t, res.Success)

	stored, _ := store.Get("solo")
	require.Equal(t, filing.StatusCompleted, stored.Status)
	require.NotEmpty(t, stored.StorageKey)
}

func TestRunSingleSkipsResolvedFiling(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	c := newCoordinator(memory.NewFilingStore(), fetcher, nil, 1)

	fl := pendingFiling("solo")
	fl.Status = filing.StatusCompleted
	fl.StorageKey = "nse/9/2024/02/20/src-solo.pdf"

	res := c.RunSingle(context.Background(), fl)
	require.True(t, res.Success)
	require.True(t, res.Skipped)
	require.Zero(t, fetcher.totalCalls())
}

func TestProgressCallbackInvokedPerResult(t *testing.T) {
	t.Parallel()

	store := memory.NewFilingStore()
	store.Seed(pendingFiling("a"), pendingFiling("b"), pendingFiling("c"))
	c := newCoordinator(store, newFakeFetcher(), nil, 1)

	var mu sync.Mutex
	var seen []int
	progress := func(done, total int, _ filing.DownloadResult) {
		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, 3, total)
		seen = append(seen, done)
	}

	_, err := c.RunByIDs(context.Background(), []string{"a", "b", "c"}, progress)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, seen)
}

type unavailableStore struct{}

func (*unavailableStore) GetFilingsByIDs(context.Context, []string) ([]filing.Filing, error) {
	return nil, errors.New("connection refused")
}

func (*unavailableStore) GetPendingFilings(context.Context, int) ([]filing.Filing, error) {
	return nil, errors.New("connection refused")
}

func (*unavailableStore) SetInProgress(context.Context, string) error {
	return errors.New("connection refused")
}

func (*unavailableStore) SetTerminalStatus(context.Context, string, string, string, filing.Status, string) error {
	return errors.New("connection refused")
}

type terminalWriteFailStore struct {
	*memory.FilingStore
}

func (s *terminalWriteFailStore) SetTerminalStatus(context.Context, string, string, string, filing.Status, string) error {
	return errors.New("write timeout")
}
