// Package payout moves an ambassador's available Stripe balance to their
// bank account or debit card with an instant payout.
package payout

import (
	"context"
	"fmt"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/apperror"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/metrics"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
)

const MethodInstant = "instant"

type Processor interface {
	RetrieveBalance(ctx context.Context, accountID string) (*processor.Balance, error)
	CreatePayout(ctx context.Context, accountID string, params processor.PayoutParams) (*processor.Payout, error)
}

// Result describes what a payout request did. Skipped is set when there
// was nothing available to pay out.
type Result struct {
	Payout   *processor.Payout
	Amount   int64
	Currency string
	Skipped  bool
}

type Service struct {
	proc                Processor
	statementDescriptor string
}

func NewService(proc Processor, statementDescriptor string) *Service {
	return &Service{proc: proc, statementDescriptor: statementDescriptor}
}

// Payout pays out the first available balance entry of the ambassador's
// account in full. A zero balance is not an error.
func (s *Service) Payout(ctx context.Context, ambassador *models.Ambassador) (*Result, error) {
	if !ambassador.IsOnboarded() {
		return nil, apperror.ErrNotOnboarded
	}
	accountID := ambassador.PayoutDestination()

	balance, err := s.proc.RetrieveBalance(ctx, accountID)
	if err != nil {
		metrics.ObservePayout(metrics.PayoutFailed)
		return nil, fmt.Errorf("retrieve balance for %s: %w", accountID, err)
	}
	available := balance.FirstAvailable()
	if available.Amount <= 0 {
		metrics.ObservePayout(metrics.PayoutSkipped)
		fiberlog.Infof("[Payout] nothing available for ambassador %d", ambassador.ID)
		return &Result{Currency: available.Currency, Skipped: true}, nil
	}

	p, err := s.proc.CreatePayout(ctx, accountID, processor.PayoutParams{
		Amount:              available.Amount,
		Currency:            available.Currency,
		StatementDescriptor: s.statementDescriptor,
		Method:              MethodInstant,
	})
	if err != nil {
		metrics.ObservePayout(metrics.PayoutFailed)
		return nil, fmt.Errorf("create payout for %s: %w", accountID, err)
	}

	metrics.ObservePayout(metrics.PayoutPaid)
	fiberlog.Infof("[Payout] %s paid out %d %s to ambassador %d", p.ID, p.Amount, p.Currency, ambassador.ID)
	return &Result{Payout: p, Amount: p.Amount, Currency: p.Currency}, nil
}
