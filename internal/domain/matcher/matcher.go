// Package matcher resolves scored receipt/transaction candidates into
// one-to-one match decisions.
//
// The matcher uses global greedy-by-score assignment:
//   - All edges are sorted by score, best first
//   - An edge is committed only when both its receipt and its transaction are
//     still free and its score reaches the minimum
//   - A receipt whose best free alternative scores within the ambiguity
//     margin of the edge being committed is held for review instead
//
// Equal scores are ordered by smaller date gap, then receipt id, then
// transaction id, so the output is fully determined by the input.
//
// Example usage:
//
//	m := matcher.NewMatcher(p)
//	decisions := m.Resolve(runID, scored, set.Unmatched)
//	for _, d := range decisions {
//		if d.Status == model.StatusMatched {
//			// d.TransactionID is this receipt's transaction
//		}
//	}
package matcher

import (
	"sort"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
	"github.com/eshaffer321/receipt-ledger/internal/domain/policy"
)

// Matcher assigns receipts to transactions
type Matcher struct {
	policy policy.Policy
}

// NewMatcher creates a new matcher with the given policy
func NewMatcher(p policy.Policy) *Matcher {
	return &Matcher{policy: p}
}

// Less reports whether edge a is resolved before edge b. Ties on score and
// date gap go to the receipt with a known purchase time, then to the earlier
// purchase, then to the smaller ids.
func Less(a, b model.ScoredCandidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if ga, gb := a.Breakdown.AbsDateGap(), b.Breakdown.AbsDateGap(); ga != gb {
		return ga < gb
	}
	if a.PurchaseTimed != b.PurchaseTimed {
		return a.PurchaseTimed
	}
	if a.PurchaseTimed && a.PurchaseTime != b.PurchaseTime {
		return a.PurchaseTime < b.PurchaseTime
	}
	if a.ReceiptID != b.ReceiptID {
		return a.ReceiptID < b.ReceiptID
	}
	return a.TransactionID < b.TransactionID
}

// Resolve decides every receipt. scored holds the candidate edges; unmatched
// lists receipts that had no candidate at all. The input slices are not
// modified. Decisions come back ordered by receipt id.
func (m *Matcher) Resolve(runID string, scored []model.ScoredCandidate, unmatched []string) []model.MatchDecision {
	edges := make([]model.ScoredCandidate, len(scored))
	copy(edges, scored)
	sort.SliceStable(edges, func(i, j int) bool { return Less(edges[i], edges[j]) })

	// Per-receipt edges in resolution order.
	byReceipt := make(map[string][]model.ScoredCandidate)
	for _, e := range edges {
		byReceipt[e.ReceiptID] = append(byReceipt[e.ReceiptID], e)
	}

	matched := make(map[string]model.ScoredCandidate)
	held := make(map[string]model.ScoredCandidate)
	claimed := make(map[string]bool)

	for _, e := range edges {
		if e.Score < m.policy.MinScore {
			break
		}
		if _, done := matched[e.ReceiptID]; done {
			continue
		}
		if _, done := held[e.ReceiptID]; done {
			continue
		}
		if claimed[e.TransactionID] {
			continue
		}

		if m.hasNearTie(e, byReceipt[e.ReceiptID], claimed) {
			held[e.ReceiptID] = e
			continue
		}

		matched[e.ReceiptID] = e
		claimed[e.TransactionID] = true
	}

	decisions := make([]model.MatchDecision, 0, len(byReceipt)+len(unmatched))
	for receiptID, candidates := range byReceipt {
		decisions = append(decisions, m.classify(runID, receiptID, candidates, matched, held))
	}
	for _, receiptID := range unmatched {
		if _, ok := byReceipt[receiptID]; ok {
			continue
		}
		decisions = append(decisions, model.MatchDecision{
			ReceiptID: receiptID,
			Status:    model.StatusUnmatched,
			RunID:     runID,
			Reason:    model.ReasonNoCandidates,
		})
	}

	sort.Slice(decisions, func(i, j int) bool { return decisions[i].ReceiptID < decisions[j].ReceiptID })
	return decisions
}

// hasNearTie reports whether another free transaction scores within the
// ambiguity margin of e for the same receipt. The check does not depend on
// the minimum score, so raising the threshold only ever removes matches.
// A zero margin disables holds.
func (m *Matcher) hasNearTie(e model.ScoredCandidate, candidates []model.ScoredCandidate, claimed map[string]bool) bool {
	if m.policy.AmbiguityMargin <= 0 {
		return false
	}
	for _, c := range candidates {
		if c.TransactionID == e.TransactionID || claimed[c.TransactionID] {
			continue
		}
		// candidates is sorted, so the first free alternative is the best one.
		return e.Score-c.Score < m.policy.AmbiguityMargin
	}
	return false
}

func (m *Matcher) classify(
	runID, receiptID string,
	candidates []model.ScoredCandidate,
	matched, held map[string]model.ScoredCandidate,
) model.MatchDecision {
	d := model.MatchDecision{ReceiptID: receiptID, RunID: runID}

	if e, ok := matched[receiptID]; ok {
		d.TransactionID, d.Score = e.TransactionID, e.Score
		d.Status, d.Reason = model.StatusMatched, model.ReasonCommitted
		return d
	}
	if e, ok := held[receiptID]; ok {
		d.TransactionID, d.Score = e.TransactionID, e.Score
		d.Status, d.Reason = model.StatusAmbiguous, model.ReasonNearTie
		return d
	}

	best := candidates[0]
	if best.Score <= 0 {
		d.Status, d.Reason = model.StatusUnmatched, model.ReasonZeroScore
		return d
	}

	d.TransactionID, d.Score = best.TransactionID, best.Score
	d.Status = model.StatusAmbiguous
	if best.Score >= m.policy.MinScore {
		d.Reason = model.ReasonClaimed
	} else {
		d.Reason = model.ReasonBelowMinScore
	}
	return d
}
