// Package sources reads bank statements and parsed receipts into the record
// types the reconciliation pipeline consumes.
package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/receipt-ledger/internal/domain/model"
	"github.com/eshaffer321/receipt-ledger/internal/domain/normalizer"
)

// transactionNamespace scopes statement-derived transaction ids
var transactionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("receipt-ledger/transactions"))

// Statement column positions: date, description, debit, credit[, card]
const (
	colDate = iota
	colDescription
	colDebit
	colCredit
	colCard
)

// StatementOptions configures ParseStatement
type StatementOptions struct {
	AccountID string
	Currency  string // empty leaves currency to the policy default
}

// ParseError reports one statement row that could not be read
type ParseError struct {
	Row  int // 1-indexed, 0 for file-level problems
	Msg  string
	Data []string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Msg)
}

// Statement is a parsed statement file
type Statement struct {
	AccountID    string
	Transactions []model.Transaction
	Errors       []*ParseError
	From, To     string // posted date range, YYYY-MM-DD; empty when no rows parsed
	CardNumber   string // card column of the first row, when present
}

// ParseStatement reads a bank CSV export with rows of
// date,description,debit,credit and an optional trailing card column.
//
// A debit becomes a negative amount and a credit a positive one. Blank rows
// are skipped and a leading header row is ignored. Rows that fail to parse
// are collected in Statement.Errors; only a read failure returns an error.
//
// Transaction ids are derived from the account, the row content and the
// number of identical rows seen before it, so re-importing the same file
// yields the same ids.
func ParseStatement(r io.Reader, opts StatementOptions) (*Statement, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	st := &Statement{AccountID: opts.AccountID}
	seen := make(map[string]int)
	rowNum := 0

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++
		if err != nil {
			var csvErr *csv.ParseError
			if errors.As(err, &csvErr) {
				st.Errors = append(st.Errors, &ParseError{Row: rowNum, Msg: csvErr.Err.Error()})
				continue
			}
			return st, fmt.Errorf("failed to read statement: %w", err)
		}

		if blank(row) {
			continue
		}
		if rowNum == 1 && isHeader(row) {
			continue
		}

		txn, perr := parseRow(row, rowNum, opts)
		if perr != nil {
			st.Errors = append(st.Errors, perr)
			continue
		}

		key := strings.Join([]string{opts.AccountID, txn.PostedDate, txn.Description, txn.Amount}, "|")
		txn.ID = uuid.NewSHA1(transactionNamespace, []byte(key+"|"+strconv.Itoa(seen[key]))).String()
		seen[key]++

		if st.CardNumber == "" && len(row) > colCard {
			st.CardNumber = strings.TrimSpace(row[colCard])
		}
		if st.From == "" || txn.PostedDate < st.From {
			st.From = txn.PostedDate
		}
		if txn.PostedDate > st.To {
			st.To = txn.PostedDate
		}
		st.Transactions = append(st.Transactions, txn)
	}

	return st, nil
}

func parseRow(row []string, rowNum int, opts StatementOptions) (model.Transaction, *ParseError) {
	fail := func(format string, args ...any) (model.Transaction, *ParseError) {
		return model.Transaction{}, &ParseError{Row: rowNum, Msg: fmt.Sprintf(format, args...), Data: row}
	}

	if len(row) <= colCredit {
		return fail("row has %d columns, expected at least 4", len(row))
	}

	dateText := strings.TrimSpace(row[colDate])
	if dateText == "" {
		return fail("missing transaction date")
	}
	date, _, _, err := normalizer.ParseDate(dateText)
	if err != nil {
		return fail("invalid date %q", dateText)
	}

	description := strings.TrimSpace(row[colDescription])
	if description == "" {
		return fail("missing description")
	}

	debit, ok := cleanAmount(row[colDebit])
	if !ok {
		return fail("invalid debit %q", row[colDebit])
	}
	credit, ok := cleanAmount(row[colCredit])
	if !ok {
		return fail("invalid credit %q", row[colCredit])
	}
	var amount decimal.Decimal
	switch {
	case debit != "":
		d, err := decimal.NewFromString(debit)
		if err != nil {
			return fail("invalid debit %q", row[colDebit])
		}
		amount = d.Abs().Neg()
	case credit != "":
		c, err := decimal.NewFromString(credit)
		if err != nil {
			return fail("invalid credit %q", row[colCredit])
		}
		amount = c.Abs()
	default:
		return fail("missing both debit and credit amounts")
	}

	return model.Transaction{
		AccountID:   opts.AccountID,
		Amount:      amount.String(),
		Currency:    opts.Currency,
		PostedDate:  date.Format("2006-01-02"),
		Description: description,
	}, nil
}

// cleanAmount strips the dollar sign and thousands separators. It reports
// false for misplaced commas.
func cleanAmount(s string) (string, bool) {
	s = strings.TrimSpace(s)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	s, ok := normalizer.StripGrouping(strings.TrimPrefix(s, "$"))
	if !ok {
		return "", false
	}
	return sign + s, true
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func isHeader(row []string) bool {
	return strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(row[0], "\ufeff")), "date")
}
