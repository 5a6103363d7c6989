package matcher

import "github.com/eshaffer321/receipt-ledger/internal/domain/model"

// Summary counts decisions by status
type Summary struct {
	Matched   int `json:"matched"`
	Ambiguous int `json:"ambiguous"`
	Unmatched int `json:"unmatched"`
}

// Total returns the number of receipts decided
func (s Summary) Total() int {
	return s.Matched + s.Ambiguous + s.Unmatched
}

// Summarize counts decisions by status
func Summarize(decisions []model.MatchDecision) Summary {
	var s Summary
	for _, d := range decisions {
		switch d.Status {
		case model.StatusMatched:
			s.Matched++
		case model.StatusAmbiguous:
			s.Ambiguous++
		case model.StatusUnmatched:
			s.Unmatched++
		}
	}
	return s
}
