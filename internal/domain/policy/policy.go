// Package policy defines the tunables shared by the candidate generator,
// scorer and matcher.
//
// A Policy is validated once at startup and then passed by value into every
// component, so nothing in the pipeline reads process-wide settings.
//
// Example usage:
//
//	p, err := policy.Default().Validate()
//	if err != nil {
//		return err // *model.ConfigurationError
//	}
//	gen := candidates.NewGenerator(p)
package policy

import (
	"encoding/json"
	"math"
	"strings"

	"golang.org/x/text/currency"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
)

// Policy holds matching configuration
type Policy struct {
	AmountWeight float64 `yaml:"amount_weight" json:"amount_weight"`
	DateWeight   float64 `yaml:"date_weight" json:"date_weight"`
	VendorWeight float64 `yaml:"vendor_weight" json:"vendor_weight"`

	DateWindowDays int   `yaml:"date_window_days" json:"date_window_days"` // Default: 5
	AmountEpsilon  int64 `yaml:"amount_epsilon" json:"amount_epsilon"`     // Minor units, default: 0 (exact)

	MinScore           float64 `yaml:"min_score" json:"min_score"`                       // Default: 0.6
	AmbiguityMargin    float64 `yaml:"ambiguity_margin" json:"ambiguity_margin"`         // Default: 0.02
	EarlyPostingFactor float64 `yaml:"early_posting_factor" json:"early_posting_factor"` // Default: 2

	DefaultCurrency string `yaml:"default_currency" json:"default_currency"` // Default: CAD
	Workers         int    `yaml:"workers" json:"workers"`                   // Scoring goroutines, 0 = 1
}

// Default returns sensible defaults
func Default() Policy {
	return Policy{
		AmountWeight:       0.5,
		DateWeight:         0.3,
		VendorWeight:       0.2,
		DateWindowDays:     5,
		AmountEpsilon:      0,
		MinScore:           0.6,
		AmbiguityMargin:    0.02,
		EarlyPostingFactor: 2,
		DefaultCurrency:    "CAD",
		Workers:            4,
	}
}

// Validate checks every field and returns a copy whose weights sum to 1.
// It never partially applies anything: on error the zero Policy is returned.
func (p Policy) Validate() (Policy, error) {
	weights := map[string]float64{
		"amount_weight": p.AmountWeight,
		"date_weight":   p.DateWeight,
		"vendor_weight": p.VendorWeight,
	}
	for _, field := range []string{"amount_weight", "date_weight", "vendor_weight"} {
		w := weights[field]
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			return Policy{}, &model.ConfigurationError{Field: field, Reason: "must be a finite, non-negative number"}
		}
	}

	sum := p.AmountWeight + p.DateWeight + p.VendorWeight
	if sum <= 0 {
		return Policy{}, &model.ConfigurationError{Field: "weights", Reason: "at least one weight must be positive"}
	}

	if p.DateWindowDays < 0 {
		return Policy{}, &model.ConfigurationError{Field: "date_window_days", Reason: "must not be negative"}
	}
	if p.AmountEpsilon < 0 {
		return Policy{}, &model.ConfigurationError{Field: "amount_epsilon", Reason: "must not be negative"}
	}
	if math.IsNaN(p.MinScore) || p.MinScore < 0 || p.MinScore > 1 {
		return Policy{}, &model.ConfigurationError{Field: "min_score", Reason: "must be within [0, 1]"}
	}
	if math.IsNaN(p.AmbiguityMargin) || p.AmbiguityMargin < 0 || p.AmbiguityMargin >= 1 {
		return Policy{}, &model.ConfigurationError{Field: "ambiguity_margin", Reason: "must be within [0, 1)"}
	}
	if math.IsNaN(p.EarlyPostingFactor) || math.IsInf(p.EarlyPostingFactor, 0) || p.EarlyPostingFactor < 1 {
		return Policy{}, &model.ConfigurationError{Field: "early_posting_factor", Reason: "must be at least 1"}
	}
	if p.Workers < 0 {
		return Policy{}, &model.ConfigurationError{Field: "workers", Reason: "must not be negative"}
	}

	code := strings.ToUpper(strings.TrimSpace(p.DefaultCurrency))
	if _, err := currency.ParseISO(code); err != nil {
		return Policy{}, &model.ConfigurationError{Field: "default_currency", Reason: "not an ISO 4217 code"}
	}

	out := p
	out.AmountWeight = p.AmountWeight / sum
	out.DateWeight = p.DateWeight / sum
	out.VendorWeight = p.VendorWeight / sum
	out.DefaultCurrency = code
	if out.Workers == 0 {
		out.Workers = 1
	}
	return out, nil
}

// Fingerprint is a stable text form of the policy, stored with every match
// run so a run can be reproduced.
func (p Policy) Fingerprint() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}
