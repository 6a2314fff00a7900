package checkout

import "log"

// Messages shown when an unexpected runtime error escapes a step handler.
// The no-charge wording is only used while it is truthful, i.e. before a
// successful payment confirmation exists.
const (
	failureBeforeCapture = "Something went wrong. No payment has been captured. You can retry or return to your cart."
	failureAfterCapture  = "Something went wrong while finishing your order. Your payment has been confirmed; please retry."
)

// Protect runs a step operation and converts a panic into a failure result
// instead of letting it unwind the whole flow. Expected failures never
// panic; they come back as tagged StepResults from the operation itself.
func Protect(s *Session, fn func() StepResult) (result StepResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Checkout] Unexpected error during %s step: %v", s.Step(), r)
			if s.PaymentConfirmed() {
				result = failResult(failureAfterCapture)
			} else {
				result = failResult(failureBeforeCapture)
			}
		}
	}()
	return fn()
}
