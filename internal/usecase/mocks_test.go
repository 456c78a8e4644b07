package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"

	"content-pipeline/internal/domain"
	"content-pipeline/internal/domain/model"
	"content-pipeline/internal/domain/ports/adapter"
	"content-pipeline/internal/domain/ports/repository"
)

// memTxManager runs the callback without a real transaction; the in-memory
// repos ignore the tx handle anyway.
type memTxManager struct{}

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, repository.NoTX)
}

// memContentRepo is an in-memory ContentRepository with the same claim and
// witness semantics as the Postgres implementation.
type memContentRepo struct {
	mu      sync.Mutex
	nextID  int64
	store   map[int64]*model.ContentItem
	saveErr error

	reclaimStaleCalls int
}

func newMemContentRepo() *memContentRepo {
	return &memContentRepo{nextID: 1, store: make(map[int64]*model.ContentItem)}
}

func (m *memContentRepo) add(item *model.ContentItem) *model.ContentItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == 0 {
		item.ID = m.nextID
		m.nextID++
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	cp := cloneItem(item)
	m.store[item.ID] = cp
	return cp
}

func cloneItem(item *model.ContentItem) *model.ContentItem {
	cp := *item
	cp.Platforms = append([]model.Platform(nil), item.Platforms...)
	if item.PlatformState != nil {
		cp.PlatformState = make(map[model.Platform]*model.PlatformState, len(item.PlatformState))
		for p, ps := range item.PlatformState {
			psCp := *ps
			if ps.Outcome != nil {
				o := *ps.Outcome
				psCp.Outcome = &o
			}
			cp.PlatformState[p] = &psCp
		}
	}
	return &cp
}

func (m *memContentRepo) Save(ctx context.Context, _ repository.Tx, item *model.ContentItem) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.ID == 0 {
		item.ID = m.nextID
		m.nextID++
		if item.CreatedAt.IsZero() {
			item.CreatedAt = time.Now()
		}
	} else if _, ok := m.store[item.ID]; !ok {
		return domain.ErrNotFound
	}
	m.store[item.ID] = cloneItem(item)
	return nil
}

func (m *memContentRepo) FindByID(ctx context.Context, _ repository.Tx, id int64) (*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneItem(item), nil
}

func (m *memContentRepo) ListByStatus(ctx context.Context, _ repository.Tx, status model.Status, limit int) ([]*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ContentItem
	for _, item := range m.store {
		if item.Status == status {
			out = append(out, cloneItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memContentRepo) ClaimNextForPosting(ctx context.Context, platform model.Platform, now time.Time) (*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *model.ContentItem
	for _, item := range m.store {
		if !item.EligibleAt(platform, now) {
			continue
		}
		if best == nil || item.CreatedAt.After(best.CreatedAt) {
			best = item
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	if err := best.TransitionTo(model.PostingStatus(platform)); err != nil {
		return nil, err
	}
	claimedAt := now
	best.ClaimedAt = &claimedAt
	return cloneItem(best), nil
}

func (m *memContentRepo) RecordOutcome(ctx context.Context, _ repository.Tx, id int64, platform model.Platform, outcome *model.PostOutcome) error {
	if outcome == nil || outcome.PostID == "" {
		return domain.ErrInvalidArgument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	ps := item.State(platform)
	if ps.Outcome != nil {
		return nil // witness is never overwritten
	}
	o := *outcome
	ps.Outcome = &o
	return nil
}

func (m *memContentRepo) MarkPosted(ctx context.Context, _ repository.Tx, id int64, platform model.Platform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if item.Status != model.PostingStatus(platform) && item.Status != model.StatusApproved {
		return domain.ErrInvalidTransition
	}
	item.Status = model.StatusPosted
	item.ClaimedAt = nil
	return nil
}

func (m *memContentRepo) ReleaseForRetry(ctx context.Context, _ repository.Tx, id int64, platform model.Platform, reason string, kind model.FailureKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if item.Status != model.PostingStatus(platform) {
		return domain.ErrInvalidTransition
	}
	item.Status = model.StatusApproved
	item.ClaimedAt = nil
	ps := item.State(platform)
	ps.RetryCount++
	ps.LastError = reason
	ps.FailureKind = kind
	now := time.Now()
	ps.LastFailedAt = &now
	return nil
}

func (m *memContentRepo) ReleaseClaim(ctx context.Context, _ repository.Tx, id int64, platform model.Platform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	if item.Status != model.PostingStatus(platform) {
		return domain.ErrInvalidTransition
	}
	item.Status = model.StatusApproved
	item.ClaimedAt = nil
	return nil
}

func (m *memContentRepo) ResetRetries(ctx context.Context, _ repository.Tx, id int64, platform model.Platform) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	ps := item.State(platform)
	ps.RetryCount = 0
	ps.LastError = ""
	ps.FailureKind = ""
	ps.LastFailedAt = nil
	return nil
}

func (m *memContentRepo) ReclaimStale(ctx context.Context, platform model.Platform, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reclaimStaleCalls++
	cutoff := time.Now().Add(-olderThan)
	n := 0
	for _, item := range m.store {
		if item.Status == model.PostingStatus(platform) && item.ClaimedAt != nil && item.ClaimedAt.Before(cutoff) {
			item.Status = model.StatusApproved
			item.ClaimedAt = nil
			n++
		}
	}
	return n, nil
}

func (m *memContentRepo) DeleteRejectedBefore(ctx context.Context, _ repository.Tx, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, item := range m.store {
		if item.Status == model.StatusRejected && item.CreatedAt.Before(cutoff) {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

func (m *memContentRepo) ListNeedingTranslation(ctx context.Context, _ repository.Tx, limit int) ([]*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ContentItem
	for _, item := range m.store {
		if item.Status == model.StatusDraft && item.NeedsTranslation && item.TranslatedText == "" {
			out = append(out, cloneItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memContentRepo) ListNeedingImage(ctx context.Context, _ repository.Tx, limit int) ([]*model.ContentItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ContentItem
	for _, item := range m.store {
		eligible := item.Status == model.StatusPendingApproval ||
			(item.Status == model.StatusDraft && !item.NeedsTranslation)
		hasImage := len(item.ImageData) > 0 || item.LocalImagePath != "" || item.ImageURL != ""
		if eligible && !hasImage {
			out = append(out, cloneItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memContentRepo) LatestCreatedAt(ctx context.Context, _ repository.Tx) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest time.Time
	for _, item := range m.store {
		if item.CreatedAt.After(latest) {
			latest = item.CreatedAt
		}
	}
	return latest, nil
}

func (m *memContentRepo) LatestPostedAt(ctx context.Context, _ repository.Tx, platform model.Platform) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest time.Time
	for _, item := range m.store {
		if ps, ok := item.PlatformState[platform]; ok && ps.Outcome != nil && ps.Outcome.PostedAt.After(latest) {
			latest = ps.Outcome.PostedAt
		}
	}
	return latest, nil
}

func (m *memContentRepo) CountByStatus(ctx context.Context, _ repository.Tx) (map[model.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[model.Status]int)
	for _, item := range m.store {
		counts[item.Status]++
	}
	return counts, nil
}

// memApprovalLogRepo is an in-memory append-only audit log.
type memApprovalLogRepo struct {
	mu      sync.Mutex
	entries []*model.ApprovalLogEntry
}

func newMemApprovalLogRepo() *memApprovalLogRepo {
	return &memApprovalLogRepo{}
}

func (m *memApprovalLogRepo) Append(ctx context.Context, _ repository.Tx, entry *model.ApprovalLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memApprovalLogRepo) ListByContent(ctx context.Context, _ repository.Tx, contentID int64) ([]*model.ApprovalLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.ApprovalLogEntry
	for _, e := range m.entries {
		if e.ContentID == contentID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// mockPoster is a function-field PlatformPoster.
type mockPoster struct {
	platform   model.Platform
	publishFn  func(ctx context.Context, post adapter.RenderedPost) (*model.PostOutcome, error)
	verifyFn   func(ctx context.Context) error
	publishLog []adapter.RenderedPost
	mu         sync.Mutex
}

func (m *mockPoster) Platform() model.Platform { return m.platform }

func (m *mockPoster) Publish(ctx context.Context, post adapter.RenderedPost) (*model.PostOutcome, error) {
	m.mu.Lock()
	m.publishLog = append(m.publishLog, post)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, post)
	}
	return &model.PostOutcome{PostID: "mock_1", PostURL: "https://example.com/mock_1", PostedAt: time.Now()}, nil
}

func (m *mockPoster) VerifyCredentials(ctx context.Context) error {
	if m.verifyFn != nil {
		return m.verifyFn(ctx)
	}
	return nil
}

func (m *mockPoster) publishCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.publishLog)
}

// mockNotifier records every event.
type mockNotifier struct {
	mu        sync.Mutex
	events    []adapter.NotifyEvent
	payloads  []adapter.NotifyPayload
	notifyErr error
}

func (m *mockNotifier) Notify(ctx context.Context, event adapter.NotifyEvent, payload adapter.NotifyPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	m.payloads = append(m.payloads, payload)
	return m.notifyErr
}

func (m *mockNotifier) eventsSeen() []adapter.NotifyEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]adapter.NotifyEvent(nil), m.events...)
}

// mockLimiter is a function-field RateLimiter.
type mockLimiter struct {
	allowFn func(ctx context.Context, platform model.Platform, perHour int) (bool, error)
}

func (m *mockLimiter) AllowPublish(ctx context.Context, platform model.Platform, perHour int) (bool, error) {
	if m.allowFn != nil {
		return m.allowFn(ctx, platform, perHour)
	}
	return true, nil
}

// mockTranslator is a function-field Translator.
type mockTranslator struct {
	translateFn func(ctx context.Context, title, body, targetLang string) (*adapter.Translation, error)
	calls       int
}

func (m *mockTranslator) Translate(ctx context.Context, title, body, targetLang string) (*adapter.Translation, error) {
	m.calls++
	if m.translateFn != nil {
		return m.translateFn(ctx, title, body, targetLang)
	}
	return &adapter.Translation{Title: "ПЕРЕКЛАД: " + title, Body: "ПЕРЕКЛАД: " + body}, nil
}

// mockImageGen is a function-field ImageGenerator.
type mockImageGen struct {
	generateFn func(ctx context.Context, title, body string) (*adapter.GeneratedImage, error)
	calls      int
}

func (m *mockImageGen) GenerateForArticle(ctx context.Context, title, body string) (*adapter.GeneratedImage, error) {
	m.calls++
	if m.generateFn != nil {
		return m.generateFn(ctx, title, body)
	}
	return &adapter.GeneratedImage{Data: []byte("png"), Prompt: "prompt for " + title}, nil
}
