package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

const (
	upsertVendorSQL  = `INSERT INTO "Vendor" (name) VALUES ($1) ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id`
	insertInvoiceSQL = `INSERT INTO "Invoice" (invoice_no, "vendorId", total) VALUES ($1, $2, $3)`
)

type Summary struct {
	Vendors  int
	Invoices int
}

// Loader writes records into the invoice schema in a single transaction.
type Loader struct {
	DB     *sql.DB
	Logger *slog.Logger
}

func NewLoader(db *sql.DB, logger *slog.Logger) *Loader {
	return &Loader{DB: db, Logger: logger}
}

func (l *Loader) Load(ctx context.Context, records []Record) (Summary, error) {
	if l.DB == nil {
		return Summary{}, fmt.Errorf("database is required")
	}
	if len(records) == 0 {
		return Summary{}, nil
	}

	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	vendorIDs := make(map[string]int64)
	summary := Summary{}
	for i, record := range records {
		name := record.VendorName
		if name == "" {
			name = UnknownVendor
		}
		vendorID, ok := vendorIDs[name]
		if !ok {
			if err := tx.QueryRowContext(ctx, upsertVendorSQL, name).Scan(&vendorID); err != nil {
				return Summary{}, fmt.Errorf("upsert vendor %q: %w", name, err)
			}
			vendorIDs[name] = vendorID
			summary.Vendors++
		}
		if _, err := tx.ExecContext(ctx, insertInvoiceSQL, record.InvoiceNo, vendorID, record.Total); err != nil {
			return Summary{}, fmt.Errorf("insert invoice %d (%s): %w", i, record.InvoiceNo, err)
		}
		summary.Invoices++
	}

	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("commit seed: %w", err)
	}
	if l.Logger != nil {
		l.Logger.Info("seed_loaded", slog.Int("vendors", summary.Vendors), slog.Int("invoices", summary.Invoices))
	}
	return summary, nil
}
