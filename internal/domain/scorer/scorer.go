// Package scorer rates how likely a receipt and a transaction describe the
// same purchase.
package scorer

import (
	"context"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/sync/errgroup"

	"github.com/eshaffer321/receipt-ledger/internal/domain/candidates"
	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
	"github.com/eshaffer321/receipt-ledger/internal/domain/policy"
)

// Scorer computes composite scores under a validated policy.
type Scorer struct {
	policy policy.Policy
}

// New creates a scorer. p must come from policy.Policy.Validate.
func New(p policy.Policy) *Scorer {
	return &Scorer{policy: p}
}

// Score rates one pair. The result is in [0, 1] and depends only on its
// inputs and the policy.
func (s *Scorer) Score(r, t model.NormalizedRecord) model.ScoredCandidate {
	diff := r.Amount - t.Amount
	if diff < 0 {
		diff = -diff
	}
	gap := int(t.Day - r.Day)

	b := model.ScoreBreakdown{
		Amount:      AmountScore(diff, s.policy.AmountEpsilon),
		Date:        DateScore(gap, s.policy.DateWindowDays, s.policy.EarlyPostingFactor),
		Vendor:      VendorScore(r.VendorToken, t.VendorToken),
		DateGapDays: gap,
		AmountDiff:  diff,
	}

	total := s.policy.AmountWeight*b.Amount + s.policy.DateWeight*b.Date + s.policy.VendorWeight*b.Vendor

	return model.ScoredCandidate{
		ReceiptID:     r.ID,
		TransactionID: t.ID,
		Score:         round(clamp(total)),
		Breakdown:     b,
		PurchaseTime:  r.TimeOfDay,
		PurchaseTimed: r.HasTime,
	}
}

// ScoreAll scores every pair, spreading the work over the policy's worker
// count. The output is index-aligned with pairs.
func (s *Scorer) ScoreAll(ctx context.Context, pairs []candidates.Pair) ([]model.ScoredCandidate, error) {
	out := make([]model.ScoredCandidate, len(pairs))
	if len(pairs) == 0 {
		return out, ctx.Err()
	}

	workers := s.policy.Workers
	if workers < 1 {
		workers = 1
	}
	chunk := (len(pairs) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < len(pairs); start += chunk {
		start, end := start, min(start+chunk, len(pairs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				out[i] = s.Score(pairs[i].Receipt, pairs[i].Transaction)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// AmountScore is 1 for an exact match and falls linearly to 0 at epsilon.
func AmountScore(diff, epsilon int64) float64 {
	if diff == 0 {
		return 1
	}
	if epsilon <= 0 || diff >= epsilon {
		return 0
	}
	return 1 - float64(diff)/float64(epsilon)
}

// DateScore is 1 on the purchase day and 0 at the window edge. gap is posted
// day minus purchase day; postings before the purchase decay earlyFactor
// times faster.
func DateScore(gap, windowDays int, earlyFactor float64) float64 {
	if gap == 0 {
		return 1
	}
	if windowDays <= 0 {
		return 0
	}
	rate := 1.0
	if gap < 0 {
		gap = -gap
		rate = earlyFactor
	}
	return clamp(1 - rate*float64(gap)/float64(windowDays))
}

// VendorScore is the normalized edit-distance similarity between a receipt
// vendor token and a transaction salient token. When the description carries
// trailing words the receipt lacks (city, branch name), its leading words are
// compared as well and the better result wins.
func VendorScore(receiptToken, salientToken string) float64 {
	if receiptToken == "" || salientToken == "" {
		return 0
	}

	best := similarity(receiptToken, salientToken)

	want := len(strings.Fields(receiptToken))
	fields := strings.Fields(salientToken)
	if want < len(fields) {
		if s := similarity(receiptToken, strings.Join(fields[:want], " ")); s > best {
			best = s
		}
	}
	return best
}

func similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	d := levenshtein.ComputeDistance(a, b)
	return clamp(1 - float64(d)/float64(longest))
}

func clamp(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

// round keeps scores comparable across platforms and readable in the ledger.
func round(x float64) float64 {
	return math.Round(x*1e6) / 1e6
}
