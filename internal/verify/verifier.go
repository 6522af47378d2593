// Package verify implements the purchase-verification pipeline: fetch a
// window of the requester's bank transactions, ask a language model to
// reconcile the free-text request against them, and parse the reply into
// a structured verification result.
package verify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/buy4me/buy4me/internal/domain"
)

// ErrVerificationUnavailable is the single failure surfaced to callers.
// Whatever went wrong underneath (aggregator, model, malformed output) is
// wrapped and logged here; user-facing layers only ever say "could not
// verify".
var ErrVerificationUnavailable = errors.New("purchase verification unavailable")

const (
	fetchTimeout = 10 * time.Second
	modelTimeout = 30 * time.Second
)

// TransactionSource yields a user's recent bank transactions given a
// stored access credential.
type TransactionSource interface {
	GetTransactions(ctx context.Context, accessToken string) ([]domain.BankTransaction, error)
}

// Completer sends a system+user prompt to a language model and returns
// the raw text reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Verifier composes the pipeline. Both collaborators are injected so
// tests substitute fakes; nothing is constructed at package scope.
type Verifier struct {
	bank  TransactionSource
	model Completer
}

func NewVerifier(bank TransactionSource, model Completer) *Verifier {
	return &Verifier{bank: bank, model: model}
}

// VerifyPurchase runs one verification attempt from scratch. No retries
// and no caching of partial state: the caller's "check again" re-invokes
// this exact sequence. Each external call runs under its own bounded
// timeout so a stalled collaborator converts into a failure rather than a
// hang.
func (v *Verifier) VerifyPurchase(ctx context.Context, requestText, accessToken string) (domain.VerificationResult, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()
	txns, err := v.bank.GetTransactions(fetchCtx, accessToken)
	if err != nil {
		log.Printf("verify: transaction fetch failed: %v", err)
		return domain.VerificationResult{}, fmt.Errorf("%w: fetching transactions", ErrVerificationUnavailable)
	}
	if len(txns) > maxPromptTransactions {
		txns = txns[:maxPromptTransactions]
	}

	modelCtx, cancel := context.WithTimeout(ctx, modelTimeout)
	defer cancel()
	raw, err := v.model.Complete(modelCtx, systemPrompt, buildPrompt(txns, requestText))
	if err != nil {
		log.Printf("verify: model call failed: %v", err)
		return domain.VerificationResult{}, fmt.Errorf("%w: querying model", ErrVerificationUnavailable)
	}

	vr, err := parseResult(raw)
	if err != nil {
		// The raw reply goes to the log for operators; callers only see
		// the generic failure.
		var malformed *MalformedOutputError
		if errors.As(err, &malformed) {
			log.Printf("verify: %v; raw model output: %q", err, malformed.Raw)
		} else {
			log.Printf("verify: extracting result: %v", err)
		}
		return domain.VerificationResult{}, fmt.Errorf("%w: extracting result", ErrVerificationUnavailable)
	}

	return normalizeResult(vr, requestText), nil
}
