package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Credit policy is configuration, not code: rates were never canonical in the
// product copy ("10-50 credits"), so operators own the table.
//
// Env:
// - CREDIT_RATES="plastic:10,paper:5,metal:15,glass:8,organic:3,ewaste:25,mixed:5"
//   (points per kg, decimals allowed)
// - CREDIT_DEFAULT_RATE="5"            fallback pts/kg for unknown categories
// - CREDIT_FLAT_AMOUNTS="task_completed:20,event_participation:15,marketplace_approved:10"
// - WORKER_RADIUS_KM="20"              default service radius for workers without one
// - ASSIGNMENT_MODE="nearest"          nearest | broadcast

const (
	AssignmentModeNearest   = "nearest"
	AssignmentModeBroadcast = "broadcast"
)

var defaultCreditRates = map[string]decimal.Decimal{
	"plastic": decimal.NewFromInt(10),
	"paper":   decimal.NewFromInt(5),
	"metal":   decimal.NewFromInt(15),
	"glass":   decimal.NewFromInt(8),
	"organic": decimal.NewFromInt(3),
	"ewaste":  decimal.NewFromInt(25),
	"mixed":   decimal.NewFromInt(5),
}

var defaultFlatAmounts = map[string]int{
	"task_completed":       20,
	"event_participation":  15,
	"marketplace_approved": 10,
	"job_verified_minimum": 10,
}

// CreditRates returns pts/kg per waste category.
func CreditRates() map[string]decimal.Decimal {
	rates := make(map[string]decimal.Decimal, len(defaultCreditRates))
	for k, v := range defaultCreditRates {
		rates[k] = v
	}
	for key, val := range parsePairs(os.Getenv("CREDIT_RATES")) {
		d, err := decimal.NewFromString(val)
		if err != nil || d.IsNegative() {
			continue
		}
		rates[key] = d
	}
	return rates
}

func CreditDefaultRate() decimal.Decimal {
	if v := strings.TrimSpace(os.Getenv("CREDIT_DEFAULT_RATE")); v != "" {
		if d, err := decimal.NewFromString(v); err == nil && !d.IsNegative() {
			return d
		}
	}
	return decimal.NewFromInt(5)
}

// FlatCreditAmounts returns flat point awards keyed by transaction type.
func FlatCreditAmounts() map[string]int {
	amounts := make(map[string]int, len(defaultFlatAmounts))
	for k, v := range defaultFlatAmounts {
		amounts[k] = v
	}
	for key, val := range parsePairs(os.Getenv("CREDIT_FLAT_AMOUNTS")) {
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			continue
		}
		amounts[key] = n
	}
	return amounts
}

func DefaultWorkerRadiusKm() float64 {
	if v := strings.TrimSpace(os.Getenv("WORKER_RADIUS_KM")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return 20
}

// AssignmentMode decides whether a verified report fans out to every eligible
// worker or only the nearest one. Default is nearest (ties broken by earliest
// registered worker).
func AssignmentMode() string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ASSIGNMENT_MODE")))
	if v == AssignmentModeBroadcast {
		return AssignmentModeBroadcast
	}
	return AssignmentModeNearest
}

// OutboxDispatchEnabled gates the background notification dispatcher.
// Default on; set OUTBOX_DISPATCH=false for tests and one-shot tools.
func OutboxDispatchEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("OUTBOX_DISPATCH")))
	if v == "false" || v == "0" || v == "no" {
		return false
	}
	return true
}

func parsePairs(raw string) map[string]string {
	out := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return out
	}
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}
