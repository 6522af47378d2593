package verify

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/buy4me/buy4me/internal/domain"
)

func TestParseResult_PlainJSON(t *testing.T) {
	raw := `{"purchaseMade":true,"fullAmount":6.5,"reimburseAmount":6.5,"purchaseLocation":"Blank Street Coffee","requestTextSummary":"coffee"}`
	vr, err := parseResult(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !vr.PurchaseMade || vr.FullAmount != 6.5 || vr.PurchaseLocation != "Blank Street Coffee" {
		t.Errorf("unexpected result: %+v", vr)
	}
}

func TestParseResult_ToleratesSurroundingProse(t *testing.T) {
	obj := `{"purchaseMade":true,"fullAmount":142,"reimburseAmount":4.29,"purchaseLocation":"Whole Foods","requestTextSummary":"milk"}`
	raw := "Sure! Based on the transactions, here is my answer:\n" + obj + "\nLet me know if you need anything else."

	vr, err := parseResult(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Extraction must agree with parsing the object directly.
	var direct domain.VerificationResult
	if err := json.Unmarshal([]byte(obj), &direct); err != nil {
		t.Fatal(err)
	}
	if vr != direct {
		t.Errorf("extracted %+v, direct parse %+v", vr, direct)
	}
}

func TestParseResult_EmptyObjectIsDegenerateSuccess(t *testing.T) {
	vr, err := parseResult("{}")
	if err != nil {
		t.Fatalf("empty object must not be an error, got %v", err)
	}
	if vr.PurchaseMade || vr.ReimburseAmount != 0 {
		t.Errorf("expected zero result, got %+v", vr)
	}
}

func TestParseResult_NoJSONObject(t *testing.T) {
	for _, raw := range []string{
		"",
		"I could not find any matching transaction.",
		"}{", // end precedes start
	} {
		_, err := parseResult(raw)
		var malformed *MalformedOutputError
		if !errors.As(err, &malformed) {
			t.Errorf("raw %q: expected MalformedOutputError, got %v", raw, err)
			continue
		}
		if malformed.Raw != raw {
			t.Errorf("raw text must be carried for diagnostics, got %q", malformed.Raw)
		}
	}
}

func TestParseResult_InvalidJSON(t *testing.T) {
	raw := `{"purchaseMade": maybe}`
	_, err := parseResult(raw)
	var malformed *MalformedOutputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedOutputError, got %v", err)
	}
	if malformed.Err == nil {
		t.Error("parse error must be carried")
	}
	if malformed.Raw != raw {
		t.Errorf("raw text must be carried, got %q", malformed.Raw)
	}
}

func TestNormalizeResult(t *testing.T) {
	t.Run("negative amounts clamped", func(t *testing.T) {
		vr := normalizeResult(domain.VerificationResult{FullAmount: -5, ReimburseAmount: -3}, "milk")
		if vr.FullAmount != 0 || vr.ReimburseAmount != 0 {
			t.Errorf("expected amounts clamped to 0, got %+v", vr)
		}
	})

	t.Run("match without amount demoted", func(t *testing.T) {
		vr := normalizeResult(domain.VerificationResult{
			PurchaseMade: true, FullAmount: 0, ReimburseAmount: 4, PurchaseLocation: "Somewhere",
		}, "milk")
		if vr.PurchaseMade {
			t.Error("a claimed match without a positive amount must be demoted")
		}
		if vr.PurchaseLocation != "" {
			t.Errorf("location must be cleared on demotion, got %q", vr.PurchaseLocation)
		}
	})

	t.Run("unmatched zeroes full amount", func(t *testing.T) {
		vr := normalizeResult(domain.VerificationResult{PurchaseMade: false, FullAmount: 17}, "milk")
		if vr.FullAmount != 0 {
			t.Errorf("unmatched result must report fullAmount 0, got %v", vr.FullAmount)
		}
	})

	t.Run("summary backfilled", func(t *testing.T) {
		vr := normalizeResult(domain.VerificationResult{}, "a coffee from Blank Street")
		if vr.RequestTextSummary != "a coffee from" {
			t.Errorf("expected first three words, got %q", vr.RequestTextSummary)
		}
	})

	t.Run("existing summary kept", func(t *testing.T) {
		vr := normalizeResult(domain.VerificationResult{RequestTextSummary: "coffee"}, "a coffee from Blank Street")
		if vr.RequestTextSummary != "coffee" {
			t.Errorf("model summary must win, got %q", vr.RequestTextSummary)
		}
	})
}
