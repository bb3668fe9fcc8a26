package processor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payout.paid"}`)
	secret := "whsec_test"
	now := time.Now()

	valid := SignPayload(payload, secret, now)
	assert.NoError(t, VerifyWebhookSignature(payload, valid, secret, DefaultTolerance))

	// extra schemes and rotated secrets are tolerated
	withExtra := valid + ",v0=deadbeef,v1=00"
	assert.NoError(t, VerifyWebhookSignature(payload, withExtra, secret, DefaultTolerance))

	assert.ErrorIs(t, VerifyWebhookSignature(payload, valid, "whsec_other", DefaultTolerance), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature([]byte(`{}`), valid, secret, DefaultTolerance), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyWebhookSignature(payload, "", secret, DefaultTolerance), ErrMissingSignature)
	assert.ErrorIs(t, VerifyWebhookSignature(payload, "t=abc,v1=00", secret, DefaultTolerance), ErrMissingSignature)
	assert.Error(t, VerifyWebhookSignature(payload, valid, "", DefaultTolerance))
}

func TestVerifyWebhookSignatureTolerance(t *testing.T) {
	payload := []byte(`{"id":"evt_2","type":"payout.paid"}`)
	secret := "whsec_test"
	stale := SignPayload(payload, secret, time.Now().Add(-10*time.Minute))

	assert.ErrorIs(t, VerifyWebhookSignature(payload, stale, secret, DefaultTolerance), ErrExpiredSignature)
	assert.NoError(t, VerifyWebhookSignature(payload, stale, secret, 0))
	assert.NoError(t, VerifyWebhookSignature(payload, stale, secret, time.Hour))
}
