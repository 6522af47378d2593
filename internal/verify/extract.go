package verify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/buy4me/buy4me/internal/domain"
)

// MalformedOutputError reports model output from which no result could be
// extracted. Raw carries the full reply for logging; it is never surfaced
// to end users.
type MalformedOutputError struct {
	Raw string
	Err error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed model output: %v", e.Err)
	}
	return "malformed model output: no JSON object found"
}

func (e *MalformedOutputError) Unwrap() error {
	return e.Err
}

// parseResult extracts the verification result from the model's raw reply.
// The substring between the first '{' and the last '}' is treated as the
// candidate JSON document, tolerating any commentary the model emits
// around it despite instructions. An exactly-empty object is the model's
// canonical "no purchase, no information" answer and parses to the zero
// result rather than an error.
func parseResult(raw string) (domain.VerificationResult, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return domain.VerificationResult{}, &MalformedOutputError{Raw: raw}
	}

	candidate := raw[start : end+1]
	if candidate == "{}" {
		return domain.VerificationResult{}, nil
	}

	var vr domain.VerificationResult
	if err := json.Unmarshal([]byte(candidate), &vr); err != nil {
		return domain.VerificationResult{}, &MalformedOutputError{Raw: raw, Err: err}
	}
	return vr, nil
}

// normalizeResult hardens a parsed result against field-level nonsense the
// model may produce: negative amounts, a claimed match without an amount,
// a missing summary. The request text backfills the summary so downstream
// payment notes always have a label.
func normalizeResult(vr domain.VerificationResult, requestText string) domain.VerificationResult {
	if vr.FullAmount < 0 {
		vr.FullAmount = 0
	}
	if vr.ReimburseAmount < 0 {
		vr.ReimburseAmount = 0
	}
	if vr.PurchaseMade && vr.FullAmount <= 0 {
		vr.PurchaseMade = false
		vr.PurchaseLocation = ""
	}
	if !vr.PurchaseMade {
		vr.FullAmount = 0
	}
	if vr.RequestTextSummary == "" {
		vr.RequestTextSummary = summarize(requestText)
	}
	return vr
}

// summarize falls back to the first three words of the request text.
func summarize(text string) string {
	words := strings.Fields(text)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}
