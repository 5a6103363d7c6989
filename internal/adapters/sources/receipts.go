package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
)

// receiptJSON accepts totals written as strings or as bare numbers
type receiptJSON struct {
	ID          string          `json:"id"`
	Vendor      string          `json:"vendor"`
	Total       json.RawMessage `json:"total"`
	Currency    string          `json:"currency"`
	PurchasedAt string          `json:"purchased_at"`
	ImageRef    string          `json:"image_ref"`
	Confidence  float64         `json:"confidence"`
	Location    string          `json:"location"`
	Category    string          `json:"category"`
}

// LoadReceipts decodes parsed receipts: either a JSON array or an object
// with a "receipts" array.
func LoadReceipts(r io.Reader) ([]model.Receipt, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipts: %w", err)
	}

	var raw []receiptJSON
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapper struct {
			Receipts []receiptJSON `json:"receipts"`
		}
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, fmt.Errorf("failed to decode receipts: %w", err)
		}
		raw = wrapper.Receipts
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode receipts: %w", err)
	}

	out := make([]model.Receipt, 0, len(raw))
	for _, rr := range raw {
		out = append(out, model.Receipt{
			ID:          rr.ID,
			Vendor:      rr.Vendor,
			Total:       totalText(rr.Total),
			Currency:    rr.Currency,
			PurchasedAt: rr.PurchasedAt,
			ImageRef:    rr.ImageRef,
			Confidence:  rr.Confidence,
			Location:    rr.Location,
			Category:    rr.Category,
		})
	}
	return out, nil
}

// LoadReceiptsFile reads receipts from a JSON file
func LoadReceiptsFile(path string) ([]model.Receipt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadReceipts(f)
}

// totalText keeps the total as text so the normalizer sees exactly what was
// written; a malformed total then becomes a per-record error.
func totalText(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return text
}
