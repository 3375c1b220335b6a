package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lendmatch/internal/lock"
	"lendmatch/internal/metrics"
	"lendmatch/pkg/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type QuoteLoader interface {
	Quote(ctx context.Context, quoteID int64) (*types.Quote, error)
	ApplicantInfo(ctx context.Context, quoteID int64) (*types.ApplicantInfo, error)
	LoanDetails(ctx context.Context, quoteID int64) (*types.LoanDetails, error)
	RentalInfo(ctx context.Context, quoteID int64) (*types.RentalInfo, error)
}

type ProductLoader interface {
	CandidateProducts(ctx context.Context, loanType *types.LoanType) ([]*types.LoanProduct, error)
}

type ResultStore interface {
	SaveMatchResults(ctx context.Context, quoteID int64, results []*types.MatchResult) error
	MatchResultsByQuote(ctx context.Context, quoteID int64) ([]*types.MatchResult, error)
}

type Locker interface {
	Lock(ctx context.Context, quoteID int64) (lock.ReleaseFunc, error)
}

type Archiver interface {
	ArchiveRun(ctx context.Context, run *types.MatchRun) (string, error)
}

type ServiceOption func(*Service)

// WithLocker serialises runs for the same quote.
func WithLocker(locker Locker) ServiceOption {
	return func(s *Service) { s.locker = locker }
}

// WithArchiver stores every committed run. Archive failures are logged only.
func WithArchiver(archiver Archiver) ServiceOption {
	return func(s *Service) { s.archiver = archiver }
}

// WithTimeout bounds a whole run, persistence included.
func WithTimeout(timeout time.Duration) ServiceOption {
	return func(s *Service) { s.timeout = timeout }
}

// Service loads quotes and products, runs the engine and persists verdicts.
type Service struct {
	engine   *Engine
	quotes   QuoteLoader
	products ProductLoader
	results  ResultStore
	locker   Locker
	archiver Archiver
	timeout  time.Duration
	logger   *logrus.Logger
}

func NewService(engine *Engine, quotes QuoteLoader, products ProductLoader, results ResultStore, logger *logrus.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		engine:   engine,
		quotes:   quotes,
		products: products,
		results:  results,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Match evaluates the quote against every candidate product and upserts the
// verdicts. The summary reflects this run, including every product verdict,
// even where persistence collapsed several products of one lender.
func (s *Service) Match(ctx context.Context, quoteID int64) (summary *types.MatchSummary, err error) {
	start := time.Now()
	defer func() {
		outcome := runOutcome(err)
		metrics.MatchRunsTotal.WithLabelValues(outcome).Inc()
		metrics.MatchRunDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if s.locker != nil {
		release, err := s.locker.Lock(ctx, quoteID)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WithError(err).WithField("quote_id", quoteID).Warn("failed to release match lock")
			}
		}()
	}

	snapshot, results, err := s.Evaluate(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	if err := s.results.SaveMatchResults(ctx, quoteID, results); err != nil {
		return nil, fmt.Errorf("failed to save match results for quote %d: %w", quoteID, err)
	}

	recordVerdicts(results)
	s.archive(ctx, snapshot, results, start)

	summary = newSummary(quoteID, results)
	total := len(results)
	summary.TotalLenders = &total

	s.logger.WithFields(logrus.Fields{
		"quote_id":     quoteID,
		"total":        total,
		"qualified":    summary.QualifiedCount,
		"disqualified": summary.DisqualifiedCount,
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("quote matched")

	return summary, nil
}

// Evaluate runs the engine without persisting anything.
func (s *Service) Evaluate(ctx context.Context, quoteID int64) (*types.QuoteSnapshot, []*types.MatchResult, error) {
	snapshot, products, err := s.load(ctx, quoteID, true)
	if err != nil {
		return nil, nil, err
	}

	return snapshot, s.engine.Evaluate(snapshot, products), nil
}

// Matches returns the persisted verdicts of the quote, qualified first.
func (s *Service) Matches(ctx context.Context, quoteID int64) (*types.MatchSummary, error) {
	if _, err := s.quotes.Quote(ctx, quoteID); err != nil {
		return nil, err
	}

	results, err := s.results.MatchResultsByQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}

	summary := newSummary(quoteID, results)
	total := len(results)
	summary.TotalMatches = &total
	return summary, nil
}

// Snapshot returns the quote with whichever sub-records exist.
func (s *Service) Snapshot(ctx context.Context, quoteID int64) (*types.QuoteSnapshot, error) {
	snapshot, _, err := s.load(ctx, quoteID, false)
	return snapshot, err
}

// load reads the quote row first since its loan type selects the candidate
// products, then fetches the sub-records and products concurrently.
func (s *Service) load(ctx context.Context, quoteID int64, withProducts bool) (*types.QuoteSnapshot, []*types.LoanProduct, error) {
	quote, err := s.quotes.Quote(ctx, quoteID)
	if err != nil {
		return nil, nil, err
	}

	snapshot := &types.QuoteSnapshot{Quote: quote}
	var products []*types.LoanProduct

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := s.quotes.ApplicantInfo(gctx, quoteID)
		snapshot.ApplicantInfo = info
		return err
	})
	g.Go(func() error {
		details, err := s.quotes.LoanDetails(gctx, quoteID)
		snapshot.LoanDetails = details
		return err
	})
	g.Go(func() error {
		rental, err := s.quotes.RentalInfo(gctx, quoteID)
		snapshot.RentalInfo = rental
		return err
	})
	if withProducts {
		g.Go(func() error {
			loaded, err := s.products.CandidateProducts(gctx, quote.LoanType)
			products = loaded
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to load quote %d: %w", quoteID, err)
	}

	return snapshot, products, nil
}

func (s *Service) archive(ctx context.Context, snapshot *types.QuoteSnapshot, results []*types.MatchResult, ranAt time.Time) {
	if s.archiver == nil {
		return
	}

	key, err := s.archiver.ArchiveRun(ctx, &types.MatchRun{
		QuoteID: snapshot.ID,
		RanAt:   ranAt,
		Quote:   snapshot,
		Results: results,
	})
	if err != nil {
		s.logger.WithError(err).WithField("quote_id", snapshot.ID).Error("failed to archive match run")
		return
	}

	s.logger.WithField("quote_id", snapshot.ID).WithField("key", key).Debug("match run archived")
}

func newSummary(quoteID int64, results []*types.MatchResult) *types.MatchSummary {
	qualified, disqualified := types.SplitMatchResults(results)
	return &types.MatchSummary{
		QuoteID:             quoteID,
		QualifiedCount:      len(qualified),
		DisqualifiedCount:   len(disqualified),
		QualifiedLenders:    qualified,
		DisqualifiedLenders: disqualified,
	}
}

func recordVerdicts(results []*types.MatchResult) {
	for _, result := range results {
		metrics.MatchVerdictsTotal.WithLabelValues(string(result.MatchStatus)).Inc()
		for _, reason := range result.DisqualificationReasons {
			metrics.DisqualificationReasonsTotal.WithLabelValues(reason.Field).Inc()
		}
	}
}

func runOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, types.ErrQuoteNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, types.ErrMatchInProgress):
		return metrics.OutcomeInProgress
	default:
		return metrics.OutcomeError
	}
}
