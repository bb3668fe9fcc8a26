// Package webhook records Stripe webhook deliveries once per event id and
// reacts to the few event types that change what the dashboard shows.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trib3/stripe-connect-rocketrides/app/models"
	"github.com/trib3/stripe-connect-rocketrides/app/repository"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/metrics"
	"github.com/trib3/stripe-connect-rocketrides/internal/pkg/processor"
)

var ErrInvalidPayload = errors.New("invalid webhook payload")

// Outcome describes what happened to a delivery.
type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeIgnored          Outcome = "ignored"
	OutcomeInvalidSignature Outcome = "invalid_signature"
	OutcomeInvalidPayload   Outcome = "invalid_payload"
)

// Event is the part of a Stripe event envelope the platform reads.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Account string `json:"account"`
	Data    struct {
		Object struct {
			ID           string            `json:"id"`
			Object       string            `json:"object"`
			Destination  string            `json:"destination"`
			Metadata     map[string]string `json:"metadata"`
			TransferData *struct {
				Destination string `json:"destination"`
			} `json:"transfer_data"`
		} `json:"object"`
	} `json:"data"`
}

// destination returns the connected account a platform charge paid into.
func (e *Event) destination() string {
	obj := e.Data.Object
	if obj.TransferData != nil && obj.TransferData.Destination != "" {
		return obj.TransferData.Destination
	}
	return obj.Destination
}

// BalanceInvalidator drops cached connected-account balances.
type BalanceInvalidator interface {
	Invalidate(ctx context.Context, accountID string)
}

type Service struct {
	events    repository.ProcessorEventRepository
	balances  BalanceInvalidator
	secret    string
	tolerance time.Duration
}

func NewService(events repository.ProcessorEventRepository, balances BalanceInvalidator, secret string) *Service {
	return &Service{
		events:    events,
		balances:  balances,
		secret:    strings.TrimSpace(secret),
		tolerance: processor.DefaultTolerance,
	}
}

// Handle verifies, records and dispatches one delivery. Signature failures
// are recorded too so that forged deliveries stay visible in the event log.
func (s *Service) Handle(ctx context.Context, payload []byte, signatureHeader string) (Outcome, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil || strings.TrimSpace(event.ID) == "" || event.Type == "" {
		metrics.ObserveWebhook(string(OutcomeInvalidPayload))
		return OutcomeInvalidPayload, ErrInvalidPayload
	}

	sigErr := processor.VerifyWebhookSignature(payload, signatureHeader, s.secret, s.tolerance)
	created, stored, err := s.events.CreateIfNotExists(ctx, &models.ProcessorEvent{
		Provider:        models.ProcessorStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		AccountID:       event.Account,
		PayloadJSON:     string(payload),
		SignatureValid:  sigErr == nil,
	})
	if err != nil {
		return "", fmt.Errorf("record webhook event %s: %w", event.ID, err)
	}
	if !created {
		metrics.ObserveWebhook(string(OutcomeDuplicate))
		return OutcomeDuplicate, nil
	}
	if sigErr != nil {
		s.markProcessed(ctx, stored.ID, sigErr)
		metrics.ObserveWebhook(string(OutcomeInvalidSignature))
		return OutcomeInvalidSignature, sigErr
	}

	outcome := s.dispatch(ctx, &event)
	s.markProcessed(ctx, stored.ID, nil)
	metrics.ObserveWebhook(string(outcome))
	return outcome, nil
}

func (s *Service) dispatch(ctx context.Context, event *Event) Outcome {
	switch event.Type {
	case "payout.paid", "payout.failed", "balance.available":
		s.invalidate(ctx, event.Account)
	case "charge.succeeded", "charge.refunded":
		s.invalidate(ctx, event.destination())
		s.invalidate(ctx, event.Account)
		if id := event.Data.Object.Metadata["contractID"]; id != "" {
			fiberlog.Infof("[Webhook] %s for contract %s", event.Type, id)
		}
	case "account.application.deauthorized":
		fiberlog.Warnf("[Webhook] connected account %s deauthorized the platform", event.Account)
		s.invalidate(ctx, event.Account)
	default:
		return OutcomeIgnored
	}
	return OutcomeProcessed
}

func (s *Service) invalidate(ctx context.Context, accountID string) {
	if s.balances == nil || accountID == "" {
		return
	}
	s.balances.Invalidate(ctx, accountID)
}

func (s *Service) markProcessed(ctx context.Context, id uint, processingErr error) {
	msg := ""
	if processingErr != nil {
		msg = processingErr.Error()
	}
	if err := s.events.MarkProcessed(context.WithoutCancel(ctx), id, msg); err != nil {
		fiberlog.Errorf("[Webhook] failed to mark event %d processed: %v", id, err)
	}
}
