package workflow

import (
	"github.com/greenloop-dev/greenloop_backend/config"
	"github.com/greenloop-dev/greenloop_backend/models"
	"github.com/shopspring/decimal"
)

// PointsPolicy is the deterministic credit table: pts/kg per waste category
// for weighed entities, flat amounts for the rest. It is plain configuration
// (config.CreditRates); no scoring model is involved.
type PointsPolicy struct {
	Rates       map[models.WasteCategory]decimal.Decimal
	DefaultRate decimal.Decimal
	FlatAmounts map[models.TransactionType]int

	// JobMinimum floors job credits: doorstep pickups have fixed handling
	// overhead regardless of weight.
	JobMinimum int
}

func LoadPointsPolicy() *PointsPolicy {
	policy := &PointsPolicy{
		Rates:       make(map[models.WasteCategory]decimal.Decimal),
		DefaultRate: config.CreditDefaultRate(),
		FlatAmounts: make(map[models.TransactionType]int),
	}
	for key, rate := range config.CreditRates() {
		category, err := models.ParseWasteCategory(key)
		if err != nil {
			continue
		}
		policy.Rates[category] = rate
	}
	for key, amount := range config.FlatCreditAmounts() {
		if key == "job_verified_minimum" {
			policy.JobMinimum = amount
			continue
		}
		txType, err := models.ParseTransactionType(key)
		if err != nil {
			continue
		}
		policy.FlatAmounts[txType] = amount
	}
	return policy
}

// WeightPoints computes rate(category) * weightKg, rounded half-up to a
// whole point. Unknown categories use the default rate.
func (p *PointsPolicy) WeightPoints(category models.WasteCategory, weightKg decimal.Decimal) int {
	rate, ok := p.Rates[category]
	if !ok {
		rate = p.DefaultRate
	}
	return int(rate.Mul(weightKg).Round(0).IntPart())
}

// FlatPoints returns the configured flat amount for a transaction type,
// zero when none is configured.
func (p *PointsPolicy) FlatPoints(txType models.TransactionType) int {
	return p.FlatAmounts[txType]
}

// JobPoints is weight-based like reports but never below JobMinimum.
func (p *PointsPolicy) JobPoints(category models.WasteCategory, weightKg decimal.Decimal) int {
	points := p.WeightPoints(category, weightKg)
	if points < p.JobMinimum {
		return p.JobMinimum
	}
	return points
}
