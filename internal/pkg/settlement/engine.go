// Package settlement drives contracts from pending to settled by charging
// the brand and routing the funds to the ambassador's Stripe account.
package settlement

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/app/repository"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/ledger"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/metrics"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
)

const (
	SamplePostLink    = "https://www.instagram.com/p/CCrR7dtA3Ul/"
	minSampleAmount   = 1000
	maxSampleAmount   = 10000
	contractIDMetaKey = "contractID"
)

type Charger interface {
	CreateCharge(ctx context.Context, params processor.ChargeParams) (*processor.Charge, error)
}

type Engine struct {
	contracts repository.ContractRepository
	ledger    *ledger.Service
	charger   Charger
	now       func() time.Time
	intn      func(n int) int
}

func NewEngine(repos *repository.Repositories, ledgerSvc *ledger.Service, charger Charger) *Engine {
	return &Engine{
		contracts: repos.Contract,
		ledger:    ledgerSvc,
		charger:   charger,
		now:       time.Now,
		intn:      rand.IntN,
	}
}

// CreateContract inserts a pending contract. Nothing is charged.
func (e *Engine) CreateContract(ctx context.Context, ambassadorID, brandID uint, postLink string, amount int64) (*models.Contract, error) {
	return e.ledger.CreateContract(ctx, ambassadorID, brandID, postLink, amount)
}

// CreateTestContract creates a contract between the ambassador and a random
// brand with a random amount between $10 and $100.
func (e *Engine) CreateTestContract(ctx context.Context, ambassador *models.Ambassador) (*models.Contract, error) {
	brand, err := e.ledger.RandomBrand(ctx)
	if err != nil {
		return nil, err
	}
	amount := int64(minSampleAmount + e.intn(maxSampleAmount-minSampleAmount+1))
	return e.ledger.CreateContract(ctx, ambassador.ID, brand.ID, SamplePostLink, amount)
}

// AcceptContract charges the brand for the contract with the ambassador's
// account as destination. At most one charge is in flight per contract:
// the contract is moved to settling before the processor is called.
// Any charge failure, transport errors included, returns the contract to
// pending and is returned as a *processor.Error; nothing is retried.
func (e *Engine) AcceptContract(ctx context.Context, contractUUID string) (*models.Contract, error) {
	contract, err := e.ledger.GetContract(ctx, contractUUID)
	if err != nil {
		return nil, err
	}
	if !contract.IsPending() {
		metrics.ObserveSettlement(metrics.SettlementRejected)
		if contract.IsSettled() {
			return nil, apperror.ErrAlreadySettled
		}
		return nil, apperror.ErrSettlementInProgress
	}

	ambassador, err := e.ledger.GetAmbassador(ctx, contract.AmbassadorID)
	if err != nil {
		return nil, err
	}
	if !ambassador.IsOnboarded() {
		metrics.ObserveSettlement(metrics.SettlementRejected)
		return nil, apperror.ErrNotOnboarded
	}

	brand := contract.Brand
	if brand == nil {
		if brand, err = e.ledger.GetBrand(ctx, contract.BrandID); err != nil {
			return nil, err
		}
	}
	if err := e.ledger.EnsureCustomer(ctx, brand); err != nil {
		return nil, err
	}

	won, err := e.contracts.TransitionStatus(ctx, contract.ID, models.ContractStatusPending, models.ContractStatusSettling)
	if err != nil {
		return nil, err
	}
	if !won {
		metrics.ObserveSettlement(metrics.SettlementRejected)
		return nil, e.lostRace(ctx, contract.ID)
	}

	charge, chargeErr := e.charger.CreateCharge(ctx, processor.ChargeParams{
		Amount:      contract.Amount,
		Currency:    contract.Currency,
		Customer:    brand.StripeCustomerID,
		Destination: ambassador.PayoutDestination(),
		Description: contract.PostLink,
		Metadata:    map[string]string{contractIDMetaKey: contract.UUID},
	})

	// the outcome is recorded even if the caller has gone away
	writeCtx := context.WithoutCancel(ctx)
	if chargeErr != nil {
		metrics.ObserveSettlement(metrics.SettlementFailed)
		fiberlog.Warnf("[Settlement] charge for contract %s failed: %v", contract.UUID, chargeErr)
		if err := e.contracts.MarkFailed(writeCtx, contract.ID, chargeErr.Error()); err != nil {
			fiberlog.Errorf("[Settlement] could not return contract %s to pending: %v", contract.UUID, err)
		}
		return nil, fmt.Errorf("accept contract %s: %w", contract.UUID, processor.AsError(chargeErr))
	}

	transferID := charge.Transfer
	if transferID == "" {
		transferID = charge.ID
	}
	settledAt := e.now().UTC()
	if err := e.contracts.MarkSettled(writeCtx, contract.ID, charge.ID, transferID, settledAt); err != nil {
		// charged but not recorded: the contract stays in settling for manual reconciliation
		fiberlog.Errorf("[Settlement] contract %s charged as %s but not recorded: %v", contract.UUID, charge.ID, err)
		return nil, fmt.Errorf("record settlement of contract %s: %w", contract.UUID, err)
	}

	metrics.ObserveSettlement(metrics.SettlementSettled)
	metrics.ObserveSettledAmount(contract.Currency, contract.Amount)
	fiberlog.Infof("[Settlement] contract %s settled: charge=%s transfer=%s", contract.UUID, charge.ID, transferID)

	contract.Status = models.ContractStatusSettled
	contract.Accepted = true
	contract.StripePaymentIntentID = charge.ID
	contract.StripeTransferID = transferID
	contract.LastError = ""
	contract.SettledAt = &settledAt
	return contract, nil
}

// lostRace reports why the pending -> settling transition did not apply.
func (e *Engine) lostRace(ctx context.Context, id uint) error {
	current, err := e.contracts.GetByID(ctx, id)
	if err != nil {
		return apperror.FromGorm(err, "contract")
	}
	if current.IsSettled() {
		return apperror.ErrAlreadySettled
	}
	return apperror.ErrSettlementInProgress
}
