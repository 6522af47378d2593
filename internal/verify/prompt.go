package verify

import (
	"fmt"
	"strings"

	"github.com/buy4me/buy4me/internal/domain"
)

// The system role is part of the output contract: the model's reply shape
// drifts if the role wording changes, so it is a constant, not a knob.
const systemPrompt = "You are an assistant that reconciles purchase requests against bank transactions."

// maxPromptTransactions bounds the prompt size; the fetcher caps its list
// at the same value and the orchestrator enforces it again before building.
const maxPromptTransactions = 20

// buildPrompt serializes the transaction list and the purchase request
// into the reconciliation instruction. Amounts, merchants and dates are
// embedded verbatim so the model can reason over exact values, and the
// request text is never altered or summarized.
func buildPrompt(txns []domain.BankTransaction, requestText string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Purchase request: %q\n\n", requestText)

	b.WriteString("Bank transactions from the last 7 days:\n")
	if len(txns) == 0 {
		b.WriteString("(none)\n")
	}
	for i, t := range txns {
		fmt.Fprintf(&b, "[%d] $%.2f at %s on %s\n", i+1, t.Amount, t.Merchant, t.Date)
	}

	b.WriteString(`
Decide whether one of the transactions covers the requested purchase. Rules:
- A transaction matches only if its spending plausibly covers the request.
- If several transactions match, use the most recent one.
- If the matching transaction's amount is unreasonably high for the request
  (for example a single item bought as part of a large basket), set
  reimburseAmount to a reasonable cost for the requested items, but still
  report the transaction's true amount as fullAmount.
- If no transaction matches, set purchaseMade to false and fullAmount to 0,
  and still estimate a reasonable reimburseAmount for the requested items.
- Always produce requestTextSummary: a 2-3 word label for the request,
  suitable for a payment note.

Return ONLY this JSON object, with no other text:
{"purchaseMade": boolean, "fullAmount": number, "reimburseAmount": number, "purchaseLocation": string, "requestTextSummary": string}
`)

	return b.String()
}
