package parser

import (
	"testing"

	"ledgerlens/internal/testutil"
)

func citiPDFParser(t *testing.T) *PDFParser {
	t.Helper()
	cfg, err := LoadConfig("")
	testutil.AssertNoError(t, err)
	p, err := NewPDFParser(*cfg.Institutions["citi_cc"].PDF)
	testutil.AssertNoError(t, err)
	return p
}

func citiStatementRows() []string {
	return []string{
		"Citi ThankYou Card Statement",
		"Billing period 01/01/24 - 01/31/24",
		"Credit limit $5,000",
		"Available credit limit $4,019",
		"Previous balance $1,200.50",
		"Purchases +$662.50",
		"Credits -$231.00",
		"Cash advances $0.00",
		"Fees charged $0.00",
		"New balance $980.20",
		"Points earned 1,234",
		"Points redeemed 0",
		"Payments -$500.00",
		"Minimum payment due $35.00",
		"Payment due date 02/25/24",
		"Purchase APR 21.99%",
		"Interest charged $10.00",
		"01/05 COFFEE SHOP $42.10",
		"01/09 GROCERY MART $118.72",
		"01/12 ONLINE PAYMENT - THANK YOU $231.00-",
	}
}

func TestPDFParserParseText(t *testing.T) {
	t.Run("full_statement", func(t *testing.T) {
		p := citiPDFParser(t)

		result, err := p.ParseText(citiStatementRows())
		testutil.AssertNoError(t, err)

		if result.LowConfidence {
			t.Error("all sections present, confidence should not be low")
		}
		if len(result.Lines) != 3 {
			t.Fatalf("expected 3 transaction lines, got %d", len(result.Lines))
		}

		first := result.Lines[0]
		if first.Date != "01/05" || first.Description != "COFFEE SHOP" || first.Amount != "$42.10" {
			t.Errorf("unexpected first line: %+v", first)
		}
		if first.TypeHint != "" {
			t.Errorf("purchase should carry no credit hint, got %q", first.TypeHint)
		}
		if result.Lines[2].TypeHint != "credit" {
			t.Errorf("trailing minus should hint credit, got %q", result.Lines[2].TypeHint)
		}

		expected := map[string]string{
			"previous_balance": "$1,200.50",
			"new_balance":      "$980.20",
			"credit_limit":     "$5,000",
			"available_credit": "$4,019",
			"purchases":        "+$662.50",
			"cash_advances":    "$0.00",
			"fees":             "$0.00",
			"points_earned":    "1234",
			"points_redeemed":  "0",
			"payments":         "-$500.00",
			"min_payment_due":  "$35.00",
			"payment_due_date": "02/25/24",
			"interest_rate":    "0.2199",
			"interest_paid":    "$10.00",
		}
		for name, want := range expected {
			if got := result.Fields[name]; got != want {
				t.Errorf("field %s: expected %q, got %q", name, want, got)
			}
		}
	})

	t.Run("unsupported_layout", func(t *testing.T) {
		p := citiPDFParser(t)

		_, err := p.ParseText([]string{
			"Quarterly investor newsletter",
			"Nothing in here resembles a ledger",
		})
		testutil.AssertAppError(t, err, "PARSE_ERROR")
	})

	t.Run("partial_sections_low_confidence", func(t *testing.T) {
		p := citiPDFParser(t)

		result, err := p.ParseText([]string{
			"01/05 COFFEE SHOP $42.10",
			"01/09 GROCERY MART $118.72",
		})
		testutil.AssertNoError(t, err)

		if !result.LowConfidence {
			t.Error("missing summary sections should set low confidence")
		}
		if len(result.Lines) != 2 {
			t.Errorf("expected 2 lines from partial statement, got %d", len(result.Lines))
		}
	})

	t.Run("summary_only_low_confidence", func(t *testing.T) {
		p := citiPDFParser(t)

		result, err := p.ParseText([]string{
			"Previous balance $1,200.50",
			"New balance $980.20",
		})
		testutil.AssertNoError(t, err)

		if !result.LowConfidence {
			t.Error("statement without a transaction block should set low confidence")
		}
		if len(result.Lines) != 0 {
			t.Errorf("expected no lines, got %d", len(result.Lines))
		}
	})
}

func TestTransforms(t *testing.T) {
	cases := []struct {
		transform string
		in        string
		want      string
	}{
		{"strip_separators", "1,234", "1234"},
		{"dollars_to_points", "$12.34", "1234"},
		{"dollars_to_points", "-5.00", "500"},
		{"percent_to_decimal", "24.99%", "0.2499"},
	}
	for _, tc := range cases {
		got, err := transformRegistry[tc.transform](tc.in)
		testutil.AssertNoError(t, err)
		if got != tc.want {
			t.Errorf("%s(%q): expected %q, got %q", tc.transform, tc.in, got, tc.want)
		}
	}
}

func TestNewPDFParserValidation(t *testing.T) {
	_, err := NewPDFParser(PDFConfig{})
	if err == nil {
		t.Error("expected error for config without transaction pattern")
	}

	_, err = NewPDFParser(PDFConfig{TransactionPattern: `^(\d+)$`})
	if err == nil {
		t.Error("expected error for pattern without three capture groups")
	}

	_, err = NewPDFParser(PDFConfig{
		TransactionPattern: `^(\d{2}/\d{2})\s+(.+?)\s+([\d.]+)$`,
		Fields: []PDFFieldSpec{
			{Name: "x", LabelPatterns: []string{"X"}, ValuePattern: `(\d+)`, Transform: "no_such_transform"},
		},
	})
	if err == nil {
		t.Error("expected error for unknown transform")
	}
}
