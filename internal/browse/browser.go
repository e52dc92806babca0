// Package browse implements a session-scoped view over the shared note
// catalog: page-zero caching keyed by the full query identity, incremental
// pagination, stale-response discarding and best-effort suggestions.
package browse

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/campusnotes/campus-notes-api/internal/models"
	"github.com/campusnotes/campus-notes-api/internal/service"
)

// ListFunc fetches one page of notes. Typically NoteService.List.
type ListFunc func(ctx context.Context, filter models.NoteFilter) (*service.NoteListResult, error)

// SuggestFunc fetches shuffled recent notes. Typically NoteService.Suggestions.
type SuggestFunc func(ctx context.Context, collegeDomain string) ([]models.DisplayNote, error)

// Query is the filter identity a session is currently browsing.
type Query struct {
	CollegeDomain string
	SearchMode    models.SearchMode
	Search        string
	SubjectID     string
	Semester      string
	YearOfStudy   *int
	Tags          []string
}

func (q Query) filter(page, pageSize int) models.NoteFilter {
	return models.NoteFilter{
		CollegeDomain: q.CollegeDomain,
		SearchMode:    q.SearchMode,
		Search:        q.Search,
		SubjectID:     q.SubjectID,
		Semester:      q.Semester,
		YearOfStudy:   q.YearOfStudy,
		Tags:          q.Tags,
		Page:          page,
		PageSize:      pageSize,
	}
}

// Config tunes a browse session.
type Config struct {
	PageSize int
}

type cacheEntry struct {
	notes   []models.DisplayNote
	hasMore bool
}

// Browser is one user's view over the catalog. The page-zero cache belongs
// to the session: it is constructed here and dies with it. All state is
// guarded by the mutex; fetches run outside the lock.
type Browser struct {
	list    ListFunc
	suggest SuggestFunc
	logger  *zap.Logger
	cfg     Config

	mu          sync.Mutex
	query       Query
	generation  uint64
	loadedGen   uint64
	hasLoaded   bool
	notes       []models.DisplayNote
	page        int
	hasMore     bool
	lastErr     error
	suggestions []models.DisplayNote
	cache       map[string]cacheEntry
}

// New constructs a browse session.
func New(list ListFunc, suggest SuggestFunc, cfg Config, logger *zap.Logger) *Browser {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 12
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{
		list:    list,
		suggest: suggest,
		logger:  logger,
		cfg:     cfg,
		cache:   make(map[string]cacheEntry),
	}
}

// SetQuery switches the session to a new query identity. The cache entry
// for the new key is dropped so the first fetch under it is always fresh,
// the session resets to page zero, and any in-flight fetch for the old
// identity will be discarded when it lands.
func (b *Browser) SetQuery(q Query) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.query = q
	b.generation++
	b.page = 0
	b.lastErr = nil
	delete(b.cache, service.CacheKey(q.filter(0, b.cfg.PageSize)))
}

// Fetch loads the given page. Page zero is served from the session cache
// when present. A fetch whose query changed mid-flight is dropped without
// touching session state.
func (b *Browser) Fetch(ctx context.Context, page int, reset bool) error {
	if page < 0 {
		page = 0
	}

	b.mu.Lock()
	gen := b.generation
	q := b.query
	key := service.CacheKey(q.filter(0, b.cfg.PageSize))
	if page == 0 {
		if entry, ok := b.cache[key]; ok {
			b.applyLocked(gen, 0, entry.notes, entry.hasMore, true)
			b.mu.Unlock()
			return nil
		}
	}
	b.mu.Unlock()

	result, err := b.list(ctx, q.filter(page, b.cfg.PageSize))

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		// A newer query superseded this fetch; the response is stale.
		return nil
	}
	if err != nil {
		b.lastErr = err
		return err
	}

	if page == 0 {
		b.cache[key] = cacheEntry{notes: result.Notes, hasMore: result.Pagination.HasMore}
	}
	b.applyLocked(gen, page, result.Notes, result.Pagination.HasMore, reset || page == 0)
	return nil
}

func (b *Browser) applyLocked(gen uint64, page int, notes []models.DisplayNote, hasMore, replace bool) {
	if replace {
		b.notes = append([]models.DisplayNote(nil), notes...)
	} else {
		b.notes = append(b.notes, notes...)
	}
	b.page = page
	b.hasMore = hasMore
	b.lastErr = nil
	b.loadedGen = gen
	b.hasLoaded = true
}

// LoadMore fetches the next page and appends it.
func (b *Browser) LoadMore(ctx context.Context) error {
	b.mu.Lock()
	next := b.page + 1
	b.mu.Unlock()
	return b.Fetch(ctx, next, false)
}

// LoadSuggestions fetches shuffled recent notes for the current domain.
// Failures are silent: suggestions are decoration, never an error surface.
func (b *Browser) LoadSuggestions(ctx context.Context) {
	b.mu.Lock()
	gen := b.generation
	domain := b.query.CollegeDomain
	b.mu.Unlock()

	notes, err := b.suggest(ctx, domain)
	if err != nil {
		b.logger.Debug("suggestion fetch failed", zap.Error(err))
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		return
	}
	b.suggestions = notes
}

// Notes returns what the session should render: suggestions until the
// primary result for the current query lands, then the primary list.
func (b *Browser) Notes() []models.DisplayNote {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hasLoaded && b.loadedGen == b.generation {
		return b.notes
	}
	return b.suggestions
}

// ShowingSuggestions reports whether Notes currently serves suggestions.
func (b *Browser) ShowingSuggestions() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !(b.hasLoaded && b.loadedGen == b.generation)
}

// HasMore reports whether another page is expected.
func (b *Browser) HasMore() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasMore
}

// Page returns the last loaded page index.
func (b *Browser) Page() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.page
}

// Err returns the error of the most recent failed fetch, cleared by the
// next successful one.
func (b *Browser) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}
