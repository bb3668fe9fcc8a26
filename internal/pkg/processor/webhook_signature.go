package processor

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	SignatureHeader  = "Stripe-Signature"
	DefaultTolerance = webhook.DefaultTolerance
)

var (
	ErrMissingSignature = errors.New("missing or malformed Stripe-Signature header")
	ErrInvalidSignature = errors.New("webhook signature does not match")
	ErrExpiredSignature = errors.New("webhook timestamp outside tolerance")
)

// VerifyWebhookSignature checks a Stripe-Signature header against the
// endpoint secret. A tolerance of zero disables the timestamp check.
func VerifyWebhookSignature(payload []byte, header, secret string, tolerance time.Duration) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return errors.New("webhook secret is empty")
	}

	var err error
	if tolerance > 0 {
		err = webhook.ValidatePayloadWithTolerance(payload, header, secret, tolerance)
	} else {
		err = webhook.ValidatePayloadIgnoringTolerance(payload, header, secret)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, webhook.ErrNotSigned), errors.Is(err, webhook.ErrInvalidHeader):
		return ErrMissingSignature
	case errors.Is(err, webhook.ErrTooOld):
		return ErrExpiredSignature
	case errors.Is(err, webhook.ErrNoValidSignature):
		return ErrInvalidSignature
	default:
		return err
	}
}

// SignPayload produces a Stripe-Signature header value for payload.
func SignPayload(payload []byte, secret string, at time.Time) string {
	sig := webhook.ComputeSignature(at, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(sig))
}
