package domain

import "errors"

var (
	ErrIllegalTransition      = errors.New("illegal lifecycle transition")
	ErrVerificationInProgress = errors.New("verification already in progress")
)

// The request lifecycle is a state machine over (Fulfillment,
// VerificationStatus). Every mutation of those fields goes through the
// methods below so that illegal combinations (completed+loading,
// pending+verified) cannot be produced.
//
//	(pending, idle) --BeginVerification--> (pending, loading)
//	(pending, loading) --ApplyVerification, match--> (completed, verified)
//	(pending, loading) --ApplyVerification, no match--> (completed, notVerified)
//	(pending, loading) --FailVerification--> (pending, notVerified)
//	(pending, notVerified) --BeginVerification--> (pending, loading)   "check again"
//	(pending, not loading) --Cancel--> (canceled, unchanged)
//
// Completed never reverts to pending; only a fresh BeginVerification
// re-enters loading, and only from a pending request.

// BeginVerification marks the request as undergoing a verification
// attempt. Only a pending request that is idle or previously notVerified
// may start one; a request already loading is rejected so two clients
// cannot run the pipeline concurrently.
func (r *Request) BeginVerification() error {
	if r.VerificationStatus == VerificationLoading {
		return ErrVerificationInProgress
	}
	if r.Fulfillment != FulfillmentPending {
		return ErrIllegalTransition
	}
	if r.VerificationStatus != VerificationIdle && r.VerificationStatus != VerificationNotVerified {
		return ErrIllegalTransition
	}
	r.VerificationStatus = VerificationLoading
	return nil
}

// ApplyVerification records the outcome of a verification attempt in which
// the model responded. The attempt counts as fulfillment regardless of
// whether a matching transaction was found, so fulfillment advances to
// completed either way.
func (r *Request) ApplyVerification(vr VerificationResult) error {
	if r.VerificationStatus != VerificationLoading {
		return ErrIllegalTransition
	}
	r.Fulfillment = FulfillmentCompleted
	r.ReimburseAmount = vr.ReimburseAmount
	r.RequestTextSummary = vr.RequestTextSummary
	if vr.PurchaseMade {
		r.VerificationStatus = VerificationVerified
		r.FullPrice = vr.FullAmount
		r.PurchaseLocation = vr.PurchaseLocation
	} else {
		r.VerificationStatus = VerificationNotVerified
		r.FullPrice = 0
		r.PurchaseLocation = ""
	}
	return nil
}

// FailVerification records a hard pipeline failure (aggregator down, model
// unreachable, malformed output). Fulfillment stays pending: unlike a
// "model responded, no match" outcome, nothing was established about the
// purchase at all.
func (r *Request) FailVerification() error {
	if r.VerificationStatus != VerificationLoading {
		return ErrIllegalTransition
	}
	r.VerificationStatus = VerificationNotVerified
	return nil
}

// CanSendPaymentRequest reports whether a reimbursement request may be
// sent for this request. A verification attempt must have finished, one
// way or the other.
func (r *Request) CanSendPaymentRequest() bool {
	return r.VerificationStatus == VerificationVerified || r.VerificationStatus == VerificationNotVerified
}

// RecordPaymentRequest notes the amount sent as a reimbursement request.
// Payment sends are terminal with respect to the state machine: they never
// touch Fulfillment or VerificationStatus, and a custom amount may always
// be re-sent.
func (r *Request) RecordPaymentRequest(amount float64) error {
	if !r.CanSendPaymentRequest() {
		return ErrIllegalTransition
	}
	r.PaymentRequestSent = amount
	return nil
}

// Cancel withdraws a pending request. A request mid-verification or
// already completed cannot be canceled.
func (r *Request) Cancel() error {
	if r.Fulfillment != FulfillmentPending || r.VerificationStatus == VerificationLoading {
		return ErrIllegalTransition
	}
	r.Fulfillment = FulfillmentCanceled
	return nil
}
