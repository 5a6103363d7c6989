package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedVendorEntries writes four current entries: two under different
// spellings of the same vendor, one under another vendor and one without.
func seedVendorEntries(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	err := repo.WithTx(ctx, func(tx LedgerTx) error {
		startRun(t, tx, "run-1")
		require.NoError(t, tx.EnsureAccount(ctx, Account{ID: "visa"}))

		for i, name := range []string{"Tim Hortons Inc.", "TIM HORTONS", "Blue Bottle", ""} {
			e := entry("t"+string(rune('1'+i)), "", "run-1")
			if name != "" {
				id, err := tx.UpsertVendor(ctx, name)
				require.NoError(t, err)
				e.VendorID = id
			}
			if _, err := tx.InsertEntry(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestListLedger_VendorToken(t *testing.T) {
	repos := map[string]func(t *testing.T) Repository{
		"sqlite": func(t *testing.T) Repository { return openStore(t) },
		"mock":   func(t *testing.T) Repository { return NewMockRepository() },
	}

	for name, open := range repos {
		t.Run(name, func(t *testing.T) {
			repo := open(t)
			seedVendorEntries(t, repo)
			ctx := context.Background()

			tims, err := repo.ListLedger(ctx, LedgerFilters{Vendor: "tim hortons ltd"})
			require.NoError(t, err)
			assert.Equal(t, 2, tims.TotalCount)
			ids := []string{tims.Entries[0].TransactionID, tims.Entries[1].TransactionID}
			assert.ElementsMatch(t, []string{"t1", "t2"}, ids)

			bottle, err := repo.ListLedger(ctx, LedgerFilters{Vendor: "BLUE  BOTTLE"})
			require.NoError(t, err)
			require.Equal(t, 1, bottle.TotalCount)
			assert.Equal(t, "Blue Bottle", bottle.Entries[0].VendorName)

			none, err := repo.ListLedger(ctx, LedgerFilters{Vendor: "Starbucks"})
			require.NoError(t, err)
			assert.Equal(t, 0, none.TotalCount)
			assert.Empty(t, none.Entries)

			all, err := repo.ListLedger(ctx, LedgerFilters{})
			require.NoError(t, err)
			assert.Equal(t, 4, all.TotalCount)
		})
	}
}

func TestUpsertVendor_StoresToken(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.WithTx(ctx, func(tx LedgerTx) error {
		_, err := tx.UpsertVendor(ctx, "Café Olimpico Ltée")
		return err
	}))

	var token string
	require.NoError(t, store.db.QueryRow(`SELECT token FROM vendors WHERE name = ?`, "Café Olimpico Ltée").Scan(&token))
	assert.Equal(t, "cafe olimpico", token)
}
