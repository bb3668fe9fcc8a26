package settlement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/app/repository"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/database"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/ledger"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor/processortest"
)

type fixture struct {
	engine     *Engine
	ledger     *ledger.Service
	repos      *repository.Repositories
	twin       *processortest.Server
	ambassador *models.Ambassador
	brand      *models.Brand
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	repos := repository.NewRepositories(db)
	twin := processortest.NewServer(t)
	client := twin.ProcessorClient()
	ledgerSvc := ledger.NewService(repos, client, "usd")

	a, err := ledgerSvc.CreateAmbassador(ctx, "kim@example.com", "secret123")
	require.NoError(t, err)
	b, err := ledgerSvc.CreateBrand(ctx, "pay@brand.com", "routing@tribe.com", "Brand")
	require.NoError(t, err)

	return &fixture{
		engine:     NewEngine(repos, ledgerSvc, client),
		ledger:     ledgerSvc,
		repos:      repos,
		twin:       twin,
		ambassador: a,
		brand:      b,
	}
}

func (f *fixture) link(t *testing.T, accountID string) {
	t.Helper()
	require.NoError(t, f.repos.Ambassador.SetPayoutDestination(context.Background(), f.ambassador.ID, accountID, models.OnboardingComplete))
}

func (f *fixture) contract(t *testing.T, amount int64) *models.Contract {
	t.Helper()
	c, err := f.engine.CreateContract(context.Background(), f.ambassador.ID, f.brand.ID, "https://x", amount)
	require.NoError(t, err)
	return c
}

func TestAcceptContractEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "acct_kim")

	c := f.contract(t, 5000)
	assert.False(t, c.Accepted)
	assert.Empty(t, c.StripeTransferID)

	settled, err := f.engine.AcceptContract(ctx, c.UUID)
	require.NoError(t, err)
	assert.True(t, settled.Accepted)
	assert.Equal(t, models.ContractStatusSettled, settled.Status)
	assert.NotEmpty(t, settled.StripeTransferID)
	assert.NotEmpty(t, settled.StripePaymentIntentID)
	require.NotNil(t, settled.SettledAt)

	charges := f.twin.Charges()
	require.Len(t, charges, 1)
	assert.EqualValues(t, 5000, charges[0].Amount)
	assert.Equal(t, "usd", charges[0].Currency)
	assert.Equal(t, "acct_kim", charges[0].Destination)
	assert.Equal(t, f.brand.StripeCustomerID, charges[0].Customer)
	assert.Equal(t, "https://x", charges[0].Description)
	assert.Equal(t, c.UUID, charges[0].Metadata["contractID"])

	stored, err := f.ledger.GetContract(ctx, c.UUID)
	require.NoError(t, err)
	assert.True(t, stored.Accepted)
	assert.Equal(t, charges[0].Transfer, stored.StripeTransferID)
	assert.Equal(t, charges[0].ID, stored.StripePaymentIntentID)

	_, err = f.engine.AcceptContract(ctx, c.UUID)
	assert.ErrorIs(t, err, apperror.ErrAlreadySettled)
	assert.Len(t, f.twin.Charges(), 1)
}

func TestAcceptContractNotOnboarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.contract(t, 5000)

	_, err := f.engine.AcceptContract(ctx, c.UUID)
	assert.ErrorIs(t, err, apperror.ErrNotOnboarded)
	assert.Empty(t, f.twin.Charges())

	stored, err := f.ledger.GetContract(ctx, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusPending, stored.Status)
	assert.False(t, stored.Accepted)
}

func TestAcceptContractNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.AcceptContract(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAcceptContractDeclinedCanBeRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "acct_kim")
	c := f.contract(t, 5000)

	f.twin.FailCharges("card_declined", "Your card was declined.")
	_, err := f.engine.AcceptContract(ctx, c.UUID)
	var perr *processor.Error
	require.True(t, errors.As(err, &perr), "got %v", err)
	assert.Equal(t, 402, apperror.HTTPStatus(err))
	assert.Contains(t, err.Error(), "Your card was declined.")

	stored, err := f.ledger.GetContract(ctx, c.UUID)
	require.NoError(t, err)
	assert.Equal(t, models.ContractStatusPending, stored.Status)
	assert.False(t, stored.Accepted)
	assert.Empty(t, stored.StripeTransferID)
	assert.Contains(t, stored.LastError, "card_declined")

	f.twin.FailCharges("", "")
	settled, err := f.engine.AcceptContract(ctx, c.UUID)
	require.NoError(t, err)
	assert.True(t, settled.Accepted)
	assert.Empty(t, settled.LastError)
}

func TestAcceptContractProvisionsMissingCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "acct_kim")

	legacy := &models.Brand{ClientEmail: "legacy@brand.com", TribeEmail: "r@tribe.com", Name: "Legacy"}
	require.NoError(t, f.repos.Brand.Create(ctx, legacy))
	c, err := f.engine.CreateContract(ctx, f.ambassador.ID, legacy.ID, "https://x", 1200)
	require.NoError(t, err)

	_, err = f.engine.AcceptContract(ctx, c.UUID)
	require.NoError(t, err)

	stored, err := f.ledger.GetBrand(ctx, legacy.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasCustomer())
	charges := f.twin.Charges()
	require.Len(t, charges, 1)
	assert.Equal(t, stored.StripeCustomerID, charges[0].Customer)
}

func TestAcceptContractConcurrentSingleCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "acct_kim")
	c := f.contract(t, 5000)
	f.twin.SetChargeDelay(50 * time.Millisecond)

	const callers = 5
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.engine.AcceptContract(ctx, c.UUID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			errors.Is(err, apperror.ErrSettlementInProgress) || errors.Is(err, apperror.ErrAlreadySettled),
			"unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.twin.Charges(), 1)
}

func TestAcceptContractRecordsOutcomeAfterCancel(t *testing.T) {
	f := newFixture(t)
	f.link(t, "acct_kim")
	c := f.contract(t, 5000)

	ctx, cancel := context.WithCancel(context.Background())
	charger := chargerFunc(func(_ context.Context, p processor.ChargeParams) (*processor.Charge, error) {
		cancel()
		return &processor.Charge{ID: "ch_after_cancel", Amount: p.Amount, Currency: p.Currency}, nil
	})
	f.engine.charger = charger

	settled, err := f.engine.AcceptContract(ctx, c.UUID)
	require.NoError(t, err)
	// without a transfer reference the charge id is recorded
	assert.Equal(t, "ch_after_cancel", settled.StripeTransferID)

	stored, err := f.ledger.GetContract(context.Background(), c.UUID)
	require.NoError(t, err)
	assert.True(t, stored.IsSettled())
}

func TestAcceptContractTransportFailureIsPaymentError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.link(t, "acct_kim")
	c := f.contract(t, 5000)
	f.engine.charger = chargerFunc(func(context.Context, processor.ChargeParams) (*processor.Charge, error) {
		return nil, errors.New("dial tcp: i/o timeout")
	})

	_, err := f.engine.AcceptContract(ctx, c.UUID)
	var perr *processor.Error
	require.True(t, errors.As(err, &perr), "got %T: %v", err, err)
	assert.Equal(t, processor.TypeConnection, perr.Type)
	assert.Equal(t, 402, apperror.HTTPStatus(err))
	assert.Contains(t, apperror.PublicMessage(err), "dial tcp: i/o timeout")

	stored, err := f.ledger.GetContract(ctx, c.UUID)
	require.NoError(t, err)
	assert.True(t, stored.IsPending())
	assert.False(t, stored.Accepted)
	assert.Contains(t, stored.LastError, "dial tcp: i/o timeout")
}

func TestCreateTestContract(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.engine.intn = func(n int) int {
		assert.Equal(t, 9001, n)
		return n - 1
	}

	c, err := f.engine.CreateTestContract(ctx, f.ambassador)
	require.NoError(t, err)
	assert.EqualValues(t, 10000, c.Amount)
	assert.Equal(t, SamplePostLink, c.PostLink)
	assert.Equal(t, f.ambassador.ID, c.AmbassadorID)
	assert.False(t, c.Accepted)
}

type chargerFunc func(ctx context.Context, p processor.ChargeParams) (*processor.Charge, error)

func (fn chargerFunc) CreateCharge(ctx context.Context, p processor.ChargeParams) (*processor.Charge, error) {
	return fn(ctx, p)
}
