package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/couple-checkin/internal/domain"
	"github.com/tbourn/couple-checkin/internal/repo"
	"github.com/tbourn/couple-checkin/internal/search"
)

// QuoteInput is one quote in an import file.
type QuoteInput struct {
	Message string `yaml:"message" json:"message"`
	Source  string `yaml:"source"  json:"source"`
}

// QuoteService serves inspirational quotes. Suggestions come from an
// in-memory index that is rebuilt after imports.
type QuoteService struct {
	DB *gorm.DB
	// Pick returns an index in [0, n). Defaults to math/rand.
	Pick func(n int) int

	mu    sync.RWMutex
	index search.Index
	byID  map[string]domain.Quote
}

// Random returns one quote, or ErrQuoteNotFound when the table is empty.
func (s *QuoteService) Random(ctx context.Context) (*domain.Quote, error) {
	tr := otel.Tracer("services/QuoteService")
	ctx, span := tr.Start(ctx, "Random")
	defer span.End()

	n, err := repo.CountQuotes(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrQuoteNotFound
	}
	pick := s.Pick
	if pick == nil {
		pick = rand.IntN
	}
	q, err := repo.QuoteAt(ctx, s.DB, pick(int(n)))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrQuoteNotFound
	}
	return q, err
}

// Suggest ranks quotes by word overlap with text and returns at most k.
func (s *QuoteService) Suggest(ctx context.Context, text string, k int) ([]domain.Quote, error) {
	tr := otel.Tracer("services/QuoteService")
	ctx, span := tr.Start(ctx, "Suggest",
		trace.WithAttributes(attribute.Int("k", k)),
	)
	defer span.End()

	s.mu.RLock()
	idx, byID := s.index, s.byID
	s.mu.RUnlock()
	if idx == nil {
		if err := s.Reindex(ctx); err != nil {
			return nil, err
		}
		s.mu.RLock()
		idx, byID = s.index, s.byID
		s.mu.RUnlock()
	}

	res := idx.TopK(text, k)
	out := make([]domain.Quote, 0, len(res))
	for _, r := range res {
		if q, ok := byID[r.ID]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

// Reindex rebuilds the suggestion index from the quote table.
func (s *QuoteService) Reindex(ctx context.Context) error {
	all, err := repo.ListQuotes(ctx, s.DB)
	if err != nil {
		return err
	}
	docs := make([]search.Doc, 0, len(all))
	byID := make(map[string]domain.Quote, len(all))
	for _, q := range all {
		docs = append(docs, search.Doc{ID: q.ID, Text: q.Message})
		byID[q.ID] = q
	}
	idx := search.NewIndex(docs, search.WithStopwords(search.EnglishStopwords))

	s.mu.Lock()
	s.index, s.byID = idx, byID
	s.mu.Unlock()
	return nil
}

// Import upserts quotes by message and rebuilds the index. Blank messages are
// skipped. It returns the number of quotes written.
func (s *QuoteService) Import(ctx context.Context, in []QuoteInput) (int, error) {
	tr := otel.Tracer("services/QuoteService")
	ctx, span := tr.Start(ctx, "Import",
		trace.WithAttributes(attribute.Int("quotes", len(in))),
	)
	defer span.End()

	n := 0
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, qi := range in {
			q, err := domain.NewQuote(qi.Message, qi.Source)
			if errors.Is(err, domain.ErrEmptyQuote) {
				continue
			}
			if err != nil {
				return err
			}
			if err := repo.UpsertQuote(ctx, tx, q); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, s.Reindex(ctx)
}
