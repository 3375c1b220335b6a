package matching

import (
	"context"
	"errors"
	"sync"
	"testing"

	"lendmatch/internal/lock"
	"lendmatch/internal/utils"
	"lendmatch/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps quotes, products and persisted verdicts in memory. Saved
// verdicts are keyed by (quote, lender) like the database table.
type fakeStore struct {
	mu        sync.Mutex
	snapshots map[int64]*types.QuoteSnapshot
	products  []*types.LoanProduct
	saved     map[int64]map[int64]*types.MatchResult
	saves     int

	productsErr error
	saveErr     error
	loanTypes   []*types.LoanType
}

func newFakeStore(snapshots ...*types.QuoteSnapshot) *fakeStore {
	store := &fakeStore{
		snapshots: make(map[int64]*types.QuoteSnapshot),
		saved:     make(map[int64]map[int64]*types.MatchResult),
	}
	for _, snapshot := range snapshots {
		store.snapshots[snapshot.ID] = snapshot
	}
	return store
}

func (f *fakeStore) Quote(ctx context.Context, quoteID int64) (*types.Quote, error) {
	snapshot, ok := f.snapshots[quoteID]
	if !ok {
		return nil, types.ErrQuoteNotFound
	}
	return snapshot.Quote, nil
}

func (f *fakeStore) ApplicantInfo(ctx context.Context, quoteID int64) (*types.ApplicantInfo, error) {
	return f.snapshots[quoteID].ApplicantInfo, nil
}

func (f *fakeStore) LoanDetails(ctx context.Context, quoteID int64) (*types.LoanDetails, error) {
	return f.snapshots[quoteID].LoanDetails, nil
}

func (f *fakeStore) RentalInfo(ctx context.Context, quoteID int64) (*types.RentalInfo, error) {
	return f.snapshots[quoteID].RentalInfo, nil
}

func (f *fakeStore) CandidateProducts(ctx context.Context, loanType *types.LoanType) ([]*types.LoanProduct, error) {
	f.mu.Lock()
	f.loanTypes = append(f.loanTypes, loanType)
	f.mu.Unlock()

	if f.productsErr != nil {
		return nil, f.productsErr
	}

	products := make([]*types.LoanProduct, 0, len(f.products))
	for _, product := range f.products {
		if loanType == nil || product.LoanType == *loanType {
			products = append(products, product)
		}
	}
	return products, nil
}

func (f *fakeStore) SaveMatchResults(ctx context.Context, quoteID int64, results []*types.MatchResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return f.saveErr
	}

	f.saves++
	rows := make(map[int64]*types.MatchResult)
	for lenderID, row := range f.saved[quoteID] {
		rows[lenderID] = row
	}
	for _, result := range results {
		rows[result.LenderID] = result
	}
	f.saved[quoteID] = rows
	return nil
}

func (f *fakeStore) MatchResultsByQuote(ctx context.Context, quoteID int64) ([]*types.MatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := f.saved[quoteID]
	results := make([]*types.MatchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, row)
	}
	qualified, disqualified := types.SplitMatchResults(results)
	sortByLender(qualified)
	sortByLender(disqualified)
	return append(qualified, disqualified...), nil
}

func sortByLender(results []*types.MatchResult) {
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].LenderID < results[j-1].LenderID; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

type fakeLocker struct {
	err      error
	locked   []int64
	released []int64
}

func (f *fakeLocker) Lock(ctx context.Context, quoteID int64) (lock.ReleaseFunc, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.locked = append(f.locked, quoteID)
	return func(ctx context.Context) error {
		f.released = append(f.released, quoteID)
		return nil
	}, nil
}

type fakeArchiver struct {
	runs []*types.MatchRun
	err  error
}

func (f *fakeArchiver) ArchiveRun(ctx context.Context, run *types.MatchRun) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.runs = append(f.runs, run)
	return "match-runs/quote-42/run.json", nil
}

func lenderProduct(productID, lenderID int64, name string) *types.LoanProduct {
	product := testProduct()
	product.ID = productID
	product.LenderID = lenderID
	product.Lender = &types.Lender{ID: lenderID, CompanyName: name}
	return product
}

func newTestService(store *fakeStore, opts ...ServiceOption) (*Service, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewService(testEngine(), store, store, store, logger, opts...), hook
}

func TestService_Match(t *testing.T) {
	store := newFakeStore(testQuote())

	tooSmall := lenderProduct(9, 5, "Harbor Bridge Lending")
	tooSmall.MaxLoanAmount = nullDecimal("300000")
	rental := lenderProduct(11, 6, "Rental Only")
	rental.LoanType = types.LoanTypeDSCRRental

	store.products = []*types.LoanProduct{lenderProduct(7, 3, "Lone Star Capital"), tooSmall, rental}

	svc, _ := newTestService(store)

	summary, err := svc.Match(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), summary.QuoteID)
	require.NotNil(t, summary.TotalLenders)
	assert.Equal(t, 2, *summary.TotalLenders)
	assert.Nil(t, summary.TotalMatches)
	assert.Equal(t, 1, summary.QualifiedCount)
	assert.Equal(t, 1, summary.DisqualifiedCount)
	assert.Equal(t, int64(3), summary.QualifiedLenders[0].LenderID)
	assert.Equal(t, int64(5), summary.DisqualifiedLenders[0].LenderID)
	assert.Equal(t, []string{"loan_amount"}, reasonFields(summary.DisqualifiedLenders[0]))

	require.Len(t, store.loanTypes, 1)
	assert.Equal(t, types.LoanTypeBridgeFixAndFlip, *store.loanTypes[0])
	assert.Len(t, store.saved[42], 2)
}

func TestService_Match_QuoteNotFound(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)

	_, err := svc.Match(context.Background(), 404)
	assert.ErrorIs(t, err, types.ErrQuoteNotFound)
	assert.Zero(t, store.saves)
}

func TestService_Match_NoCandidateProducts(t *testing.T) {
	store := newFakeStore(testQuote())
	svc, _ := newTestService(store)

	summary, err := svc.Match(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 0, *summary.TotalLenders)
	assert.NotNil(t, summary.QualifiedLenders)
	assert.NotNil(t, summary.DisqualifiedLenders)
}

func TestService_Match_UnsetLoanTypeUsesAllProducts(t *testing.T) {
	quote := testQuote()
	quote.LoanType = nil
	store := newFakeStore(quote)

	rental := lenderProduct(11, 6, "Rental Only")
	rental.LoanType = types.LoanTypeDSCRRental
	store.products = []*types.LoanProduct{lenderProduct(7, 3, "Lone Star Capital"), rental}

	svc, _ := newTestService(store)

	summary, err := svc.Match(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 2, *summary.TotalLenders)
	assert.Nil(t, store.loanTypes[0])
}

func TestService_Match_SaveFailure(t *testing.T) {
	store := newFakeStore(testQuote())
	store.products = []*types.LoanProduct{lenderProduct(7, 3, "Lone Star Capital")}
	store.saveErr = errors.New("deadlock detected")

	archiver := &fakeArchiver{}
	svc, _ := newTestService(store, WithArchiver(archiver))

	_, err := svc.Match(context.Background(), 42)
	assert.ErrorIs(t, err, store.saveErr)
	assert.Empty(t, archiver.runs)
	assert.Empty(t, store.saved[42])
}

func TestService_Match_LoadFailure(t *testing.T) {
	store := newFakeStore(testQuote())
	store.productsErr = errors.New("connection refused")
	svc, _ := newTestService(store)

	_, err := svc.Match(context.Background(), 42)
	assert.ErrorIs(t, err, store.productsErr)
	assert.ErrorContains(t, err, "failed to load quote 42")
	assert.Zero(t, store.saves)
}

func TestService_Match_RerunOverwritesSameLender(t *testing.T) {
	store := newFakeStore(testQuote())
	store.products = []*types.LoanProduct{lenderProduct(7, 3, "Lone Star Capital")}
	svc, _ := newTestService(store)
	ctx := context.Background()

	_, err := svc.Match(ctx, 42)
	require.NoError(t, err)

	store.snapshots[42].ApplicantInfo.CreditScore = utils.IntPtr(600)
	store.products[0].MinCreditScore = utils.IntPtr(680)

	_, err = svc.Match(ctx, 42)
	require.NoError(t, err)

	summary, err := svc.Matches(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, *summary.TotalMatches)
	assert.Equal(t, 1, summary.DisqualifiedCount)
	assert.Equal(t, []string{"credit_score"}, reasonFields(summary.DisqualifiedLenders[0]))
}

func TestService_Match_LastProductOfLenderWins(t *testing.T) {
	store := newFakeStore(testQuote())
	restrictive := lenderProduct(8, 3, "Lone Star Capital")
	restrictive.StatesFunded = []string{"FL"}
	store.products = []*types.LoanProduct{lenderProduct(7, 3, "Lone Star Capital"), restrictive}
	svc, _ := newTestService(store)
	ctx := context.Background()

	summary, err := svc.Match(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 2, *summary.TotalLenders)

	persisted, err := svc.Matches(ctx, 42)
	require.NoError(t, err)
	require.Equal(t, 1, *persisted.TotalMatches)
	assert.Equal(t, int64(8), *persisted.DisqualifiedLenders[0].LoanProductID)
}

func TestService_Match_Lock(t *testing.T) {
	t.Run("held and released", func(t *testing.T) {
		store := newFakeStore(testQuote())
		locker := &fakeLocker{}
		svc, _ := newTestService(store, WithLocker(locker))

		_, err := svc.Match(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, []int64{42}, locker.locked)
		assert.Equal(t, []int64{42}, locker.released)
	})

	t.Run("in progress", func(t *testing.T) {
		store := newFakeStore(testQuote())
		locker := &fakeLocker{err: types.ErrMatchInProgress}
		svc, _ := newTestService(store, WithLocker(locker))

		_, err := svc.Match(context.Background(), 42)
		assert.ErrorIs(t, err, types.ErrMatchInProgress)
		assert.Zero(t, store.saves)
	})
}

func TestService_Match_Archive(t *testing.T) {
	t.Run("archives committed run", func(t *testing.T) {
		store := newFakeStore(testQuote())
		store.products = []*types.LoanProduct{lenderProduct(7, 3, "Lone Star Capital")}
		archiver := &fakeArchiver{}
		svc, _ := newTestService(store, WithArchiver(archiver))

		_, err := svc.Match(context.Background(), 42)
		require.NoError(t, err)
		require.Len(t, archiver.runs, 1)
		assert.Equal(t, int64(42), archiver.runs[0].QuoteID)
		assert.Len(t, archiver.runs[0].Results, 1)
	})

	t.Run("archive failure is logged only", func(t *testing.T) {
		store := newFakeStore(testQuote())
		archiver := &fakeArchiver{err: errors.New("access denied")}
		svc, hook := newTestService(store, WithArchiver(archiver))

		_, err := svc.Match(context.Background(), 42)
		require.NoError(t, err)

		var logged bool
		for _, entry := range hook.AllEntries() {
			if entry.Message == "failed to archive match run" {
				logged = true
				assert.Equal(t, logrus.ErrorLevel, entry.Level)
			}
		}
		assert.True(t, logged)
	})
}

func TestService_Matches(t *testing.T) {
	t.Run("unknown quote", func(t *testing.T) {
		svc, _ := newTestService(newFakeStore())

		_, err := svc.Matches(context.Background(), 404)
		assert.ErrorIs(t, err, types.ErrQuoteNotFound)
	})

	t.Run("never matched", func(t *testing.T) {
		svc, _ := newTestService(newFakeStore(testQuote()))

		summary, err := svc.Matches(context.Background(), 42)
		require.NoError(t, err)
		assert.Equal(t, 0, *summary.TotalMatches)
		assert.Nil(t, summary.TotalLenders)
		assert.Empty(t, summary.QualifiedLenders)
		assert.Empty(t, summary.DisqualifiedLenders)
	})
}

func TestService_Snapshot(t *testing.T) {
	store := newFakeStore(testQuote())
	svc, _ := newTestService(store)

	snapshot, err := svc.Snapshot(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), snapshot.ID)
	require.NotNil(t, snapshot.LoanDetails)
	assert.Nil(t, snapshot.RentalInfo)
	assert.Empty(t, store.loanTypes)
}
