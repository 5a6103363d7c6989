package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"

	"github.com/eshaffer321/receipt-ledger/internal/domain/normalizer"
)

func init() {
	goose.AddMigrationContext(upVendorTokens, downVendorTokens)
}

// upVendorTokens adds the normalized vendor token column and backfills it.
// The token comes from the same normalizer the matcher uses, which SQL alone
// cannot reproduce.
func upVendorTokens(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `ALTER TABLE vendors ADD COLUMN token TEXT NOT NULL DEFAULT ''`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `CREATE INDEX idx_vendors_token ON vendors(token)`); err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, name FROM vendors`)
	if err != nil {
		return err
	}

	type vendor struct {
		id   int64
		name string
	}
	var vendors []vendor
	for rows.Next() {
		var v vendor
		if err := rows.Scan(&v.id, &v.name); err != nil {
			_ = rows.Close()
			return err
		}
		vendors = append(vendors, v)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, v := range vendors {
		if _, err := tx.ExecContext(ctx, `UPDATE vendors SET token = ? WHERE id = ?`,
			normalizer.VendorToken(v.name), v.id); err != nil {
			return err
		}
	}
	return nil
}

func downVendorTokens(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DROP INDEX idx_vendors_token`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `ALTER TABLE vendors DROP COLUMN token`)
	return err
}
