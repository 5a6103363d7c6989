package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Account is what identification knows about a configured account
type Account struct {
	ID         string
	Label      string
	CardSuffix string
}

// IdentifyAccount picks the account a statement belongs to.
//
// The file name wins: the account with the longest label contained in it is
// chosen, so "business-visa" beats "visa". Otherwise a five-column first row
// is checked for a card number ending in a configured suffix.
func IdentifyAccount(filename string, firstRow []string, accounts []Account) (string, bool) {
	name := strings.ToLower(filepath.Base(filename))

	best, bestLen := "", 0
	for _, a := range accounts {
		label := strings.ToLower(strings.TrimSpace(a.Label))
		if label != "" && strings.Contains(name, label) && len(label) > bestLen {
			best, bestLen = a.ID, len(label)
		}
	}
	if best != "" {
		return best, true
	}

	if len(firstRow) > colCard {
		card := strings.TrimSpace(firstRow[colCard])
		for _, a := range accounts {
			if a.CardSuffix != "" && strings.HasSuffix(card, a.CardSuffix) {
				return a.ID, true
			}
		}
	}
	return "", false
}

// ReadStatementFile identifies and parses one statement file. An
// unidentifiable file is an error.
func ReadStatementFile(path string, accounts []Account, currency string) (*Statement, error) {
	first, err := firstRow(path)
	if err != nil {
		return nil, err
	}

	accountID, ok := IdentifyAccount(path, first, accounts)
	if !ok {
		return nil, fmt.Errorf("could not identify account for %s", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseStatement(f, StatementOptions{AccountID: accountID, Currency: currency})
}

// DiscoverStatements returns path itself when it is a file, or the CSV files
// directly inside it when it is a directory, sorted by name.
func DiscoverStatements(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	matches, err := filepath.Glob(filepath.Join(path, "*.csv"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func firstRow(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		if !blank(row) && !isHeader(row) {
			return row, nil
		}
	}
}
