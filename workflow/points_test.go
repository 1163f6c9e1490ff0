package workflow

import (
	"testing"

	"github.com/greenloop-dev/greenloop_backend/models"
	"github.com/shopspring/decimal"
)

func testPolicy() *PointsPolicy {
	return &PointsPolicy{
		Rates: map[models.WasteCategory]decimal.Decimal{
			models.CategoryPlastic: decimal.NewFromInt(10),
			models.CategoryPaper:   decimal.NewFromInt(5),
			models.CategoryEwaste:  decimal.NewFromInt(25),
		},
		DefaultRate: decimal.NewFromInt(5),
		FlatAmounts: map[models.TransactionType]int{
			models.TxTaskCompleted:       20,
			models.TxEventParticipation:  15,
			models.TxMarketplaceApproved: 10,
		},
		JobMinimum: 10,
	}
}

func TestWeightPoints(t *testing.T) {
	policy := testPolicy()

	cases := []struct {
		category models.WasteCategory
		weight   string
		expected int
	}{
		{models.CategoryPlastic, "5", 50},
		{models.CategoryPlastic, "5.04", 50},  // rounds down
		{models.CategoryPlastic, "5.05", 51},  // rounds half up
		{models.CategoryPaper, "2.5", 13},     // 12.5 rounds half up
		{models.CategoryEwaste, "0.1", 3},     // 2.5 rounds half up
		{models.CategoryGlass, "4", 20},       // unknown to this policy: default rate
		{models.CategoryPlastic, "0.01", 0},   // 0.1 rounds to zero
	}
	for _, tc := range cases {
		weight, err := decimal.NewFromString(tc.weight)
		if err != nil {
			t.Fatalf("bad weight %q: %v", tc.weight, err)
		}
		got := policy.WeightPoints(tc.category, weight)
		if got != tc.expected {
			t.Fatalf("WeightPoints(%s, %s) expected %d, got %d", tc.category, tc.weight, tc.expected, got)
		}
	}
}

func TestJobPointsFloorsAtMinimum(t *testing.T) {
	policy := testPolicy()

	// 0.5 kg paper -> 2.5 -> 3 points, below the 10 point floor.
	got := policy.JobPoints(models.CategoryPaper, decimal.NewFromFloat(0.5))
	if got != 10 {
		t.Fatalf("expected job minimum 10, got %d", got)
	}

	// 5 kg plastic -> 50 points, above the floor.
	got = policy.JobPoints(models.CategoryPlastic, decimal.NewFromInt(5))
	if got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}
}

func TestFlatPoints(t *testing.T) {
	policy := testPolicy()

	if got := policy.FlatPoints(models.TxTaskCompleted); got != 20 {
		t.Fatalf("expected 20 for task completion, got %d", got)
	}
	if got := policy.FlatPoints(models.TxReportVerified); got != 0 {
		t.Fatalf("expected 0 for unconfigured type, got %d", got)
	}
}

func TestLoadPointsPolicyDefaults(t *testing.T) {
	policy := LoadPointsPolicy()

	// Built-in defaults apply when no env overrides are set.
	if got := policy.WeightPoints(models.CategoryPlastic, decimal.NewFromInt(5)); got != 50 {
		t.Fatalf("expected 50 for 5kg plastic at default rates, got %d", got)
	}
	if policy.JobMinimum <= 0 {
		t.Fatalf("expected a positive job minimum, got %d", policy.JobMinimum)
	}
	if got := policy.FlatPoints(models.TxTaskCompleted); got != 20 {
		t.Fatalf("expected default 20 for task completion, got %d", got)
	}
	// The floor key must not leak into the flat table as a transaction type.
	for txType := range policy.FlatAmounts {
		if _, err := models.ParseTransactionType(string(txType)); err != nil {
			t.Fatalf("flat table contains invalid transaction type %q", txType)
		}
	}
}
