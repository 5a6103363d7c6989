// Package candidates narrows the receipt x transaction space down to the pairs
// worth scoring.
//
// Transactions are indexed by currency, then by posted day, with every day
// bucket sorted by amount. A receipt visits only the day buckets inside the
// date window and binary-searches each one for its amount range, so the work
// per receipt is bounded by the window size and the bucket depth rather than
// by the total number of transactions.
package candidates

import (
	"sort"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
	"github.com/eshaffer321/receipt-ledger/internal/domain/policy"
)

// Pair is a receipt and a transaction that passed the currency, date and
// amount filters.
type Pair struct {
	Receipt     model.NormalizedRecord
	Transaction model.NormalizedRecord
}

// Set is the generator's output.
type Set struct {
	// Pairs is ordered by receipt id, then transaction id.
	Pairs []Pair
	// ByReceipt maps each receipt id with candidates to its sorted
	// transaction ids.
	ByReceipt map[string][]string
	// Unmatched lists, sorted, the receipts with no candidate at all.
	Unmatched []string
}

// Index is a date-bucketed, amount-sorted view of transactions.
type Index struct {
	buckets map[string]map[int64][]model.NormalizedRecord
}

// NewIndex builds the index. The input slice is not modified.
func NewIndex(transactions []model.NormalizedRecord) *Index {
	idx := &Index{buckets: make(map[string]map[int64][]model.NormalizedRecord)}
	for _, t := range transactions {
		days, ok := idx.buckets[t.Currency]
		if !ok {
			days = make(map[int64][]model.NormalizedRecord)
			idx.buckets[t.Currency] = days
		}
		days[t.Day] = append(days[t.Day], t)
	}
	for _, days := range idx.buckets {
		for _, bucket := range days {
			sort.Slice(bucket, func(i, j int) bool {
				if bucket[i].Amount != bucket[j].Amount {
					return bucket[i].Amount < bucket[j].Amount
				}
				return bucket[i].ID < bucket[j].ID
			})
		}
	}
	return idx
}

// Lookup returns transactions in the receipt's currency posted within
// windowDays of its date and within epsilon minor units of its amount,
// ordered by id.
func (idx *Index) Lookup(r model.NormalizedRecord, windowDays int, epsilon int64) []model.NormalizedRecord {
	days, ok := idx.buckets[r.Currency]
	if !ok {
		return nil
	}

	lo, hi := r.Amount-epsilon, r.Amount+epsilon
	var out []model.NormalizedRecord
	for day := r.Day - int64(windowDays); day <= r.Day+int64(windowDays); day++ {
		bucket := days[day]
		start := sort.Search(len(bucket), func(i int) bool { return bucket[i].Amount >= lo })
		for i := start; i < len(bucket) && bucket[i].Amount <= hi; i++ {
			out = append(out, bucket[i])
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Generate builds the candidate set for receipts against transactions.
func Generate(receipts, transactions []model.NormalizedRecord, p policy.Policy) Set {
	idx := NewIndex(transactions)

	ordered := make([]model.NormalizedRecord, len(receipts))
	copy(ordered, receipts)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	set := Set{ByReceipt: make(map[string][]string)}
	for _, r := range ordered {
		matches := idx.Lookup(r, p.DateWindowDays, p.AmountEpsilon)
		if len(matches) == 0 {
			set.Unmatched = append(set.Unmatched, r.ID)
			continue
		}
		ids := make([]string, 0, len(matches))
		for _, t := range matches {
			set.Pairs = append(set.Pairs, Pair{Receipt: r, Transaction: t})
			ids = append(ids, t.ID)
		}
		set.ByReceipt[r.ID] = ids
	}
	return set
}
