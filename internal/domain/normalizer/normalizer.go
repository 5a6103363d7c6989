// Package normalizer canonicalizes receipts and bank transactions into the
// common comparison shape used by the rest of the pipeline. Everything here is
// pure: no I/O, no clock, no package state that changes.
package normalizer

import (
	"errors"
	"strings"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
)

// NormalizeReceipt converts a parsed receipt. Amounts keep the receipt's sign:
// a purchase is positive spend, a refund slip negative.
func NormalizeReceipt(r model.Receipt, defaultCurrency string) (model.NormalizedRecord, error) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return model.NormalizedRecord{}, invalid(model.KindReceipt, r.ID, "id", r.ID, model.ErrMissingID)
	}

	unit, err := ParseCurrency(r.Currency, defaultCurrency)
	if err != nil {
		return model.NormalizedRecord{}, invalid(model.KindReceipt, id, "currency", r.Currency, err)
	}

	amount, err := ParseAmount(r.Total, unit)
	if err != nil {
		return model.NormalizedRecord{}, invalid(model.KindReceipt, id, "total", r.Total, err)
	}

	date, tod, hasTime, err := ParseDate(r.PurchasedAt)
	if err != nil {
		return model.NormalizedRecord{}, invalid(model.KindReceipt, id, "purchased_at", r.PurchasedAt, err)
	}

	return model.NormalizedRecord{
		ID:          id,
		Kind:        model.KindReceipt,
		Amount:      amount,
		Currency:    unit.String(),
		Date:        date,
		Day:         DayNumber(date),
		TimeOfDay:   tod,
		HasTime:     hasTime,
		VendorToken: VendorToken(r.Vendor),
	}, nil
}

// NormalizeTransaction converts a statement line. The posted amount is
// negated so expenses compare against receipt totals directly.
func NormalizeTransaction(t model.Transaction, defaultCurrency string) (model.NormalizedRecord, error) {
	id := strings.TrimSpace(t.ID)
	if id == "" {
		return model.NormalizedRecord{}, invalid(model.KindTransaction, t.ID, "id", t.ID, model.ErrMissingID)
	}

	unit, err := ParseCurrency(t.Currency, defaultCurrency)
	if err != nil {
		return model.NormalizedRecord{}, invalid(model.KindTransaction, id, "currency", t.Currency, err)
	}

	amount, err := ParseAmount(t.Amount, unit)
	if err != nil {
		return model.NormalizedRecord{}, invalid(model.KindTransaction, id, "amount", t.Amount, err)
	}

	date, _, _, err := ParseDate(t.PostedDate)
	if err != nil {
		return model.NormalizedRecord{}, invalid(model.KindTransaction, id, "posted_date", t.PostedDate, err)
	}

	return model.NormalizedRecord{
		ID:          id,
		Kind:        model.KindTransaction,
		Amount:      -amount,
		Currency:    unit.String(),
		Date:        date,
		Day:         DayNumber(date),
		VendorToken: SalientToken(t.Description),
	}, nil
}

// Batch is the outcome of normalizing one run's input.
type Batch struct {
	Receipts     []model.NormalizedRecord
	Transactions []model.NormalizedRecord
	Invalid      []*model.InvalidInputError
}

// NormalizeBatch normalizes every record, collecting per-record failures
// instead of stopping. Input order is preserved. A repeated id keeps its first
// occurrence; later ones are reported as invalid.
func NormalizeBatch(receipts []model.Receipt, transactions []model.Transaction, defaultCurrency string) Batch {
	var out Batch

	seen := make(map[string]bool, len(receipts))
	for _, r := range receipts {
		n, err := NormalizeReceipt(r, defaultCurrency)
		if err == nil && seen[n.ID] {
			err = invalid(model.KindReceipt, n.ID, "id", r.ID, model.ErrDuplicateID)
		}
		if err != nil {
			out.Invalid = append(out.Invalid, asInvalid(err))
			continue
		}
		seen[n.ID] = true
		out.Receipts = append(out.Receipts, n)
	}

	seen = make(map[string]bool, len(transactions))
	for _, t := range transactions {
		n, err := NormalizeTransaction(t, defaultCurrency)
		if err == nil && seen[n.ID] {
			err = invalid(model.KindTransaction, n.ID, "id", t.ID, model.ErrDuplicateID)
		}
		if err != nil {
			out.Invalid = append(out.Invalid, asInvalid(err))
			continue
		}
		seen[n.ID] = true
		out.Transactions = append(out.Transactions, n)
	}

	return out
}

func invalid(kind model.RecordKind, id, field, value string, err error) *model.InvalidInputError {
	return &model.InvalidInputError{Kind: kind, RecordID: id, Field: field, Value: value, Err: err}
}

func asInvalid(err error) *model.InvalidInputError {
	var ie *model.InvalidInputError
	if errors.As(err, &ie) {
		return ie
	}
	return &model.InvalidInputError{Err: err}
}
