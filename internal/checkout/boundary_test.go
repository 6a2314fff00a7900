package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProtect_PassesThroughResults(t *testing.T) {
	session, _, _ := newTestSession(t)

	result := Protect(session, func() StepResult {
		return session.CompleteShipping(validAddress())
	})

	assert.True(t, result.OK)
	assert.Equal(t, StepPayment, session.Step())
}

func TestProtect_PanicBeforePaymentConfirmed(t *testing.T) {
	session, _, _ := newTestSession(t)

	result := Protect(session, func() StepResult {
		panic("template render failed")
	})

	assert.False(t, result.OK)
	assert.Equal(t, failureBeforeCapture, result.Message)
	assert.Contains(t, result.Message, "No payment has been captured")
}

func TestProtect_PanicAfterPaymentConfirmed(t *testing.T) {
	session, _, _ := newTestSession(t)
	advanceToReview(t, session)
	require.True(t, session.PaymentConfirmed())

	result := Protect(session, func() StepResult {
		panic("review summary blew up")
	})

	assert.False(t, result.OK)
	assert.Equal(t, failureAfterCapture, result.Message)
	// The no-charge wording must never appear once a charge exists.
	assert.NotContains(t, result.Message, "No payment has been captured")
}

func TestProtect_SessionStateSurvivesPanic(t *testing.T) {
	session, _, _ := newTestSession(t)
	advanceToPayment(t, session)

	Protect(session, func() StepResult {
		panic("boom")
	})

	// The flow can continue from where it was.
	assert.Equal(t, StepPayment, session.Step())
	assert.True(t, session.CreateIntent(context.Background()).OK)
}
