package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/flowbit/flowbit/internal/query"
)

const (
	statsSQL      = `SELECT SUM(total) AS total_spend, COUNT(*) AS total_invoices, AVG(total) AS avg_invoice_value FROM "Invoice";`
	topVendorsSQL = `SELECT v.name, SUM(i.total) AS spend FROM "Invoice" i JOIN "Vendor" v ON i."vendorId"=v.id GROUP BY v.name ORDER BY spend DESC LIMIT 10;`
)

type Stats struct {
	TotalSpend      float64 `json:"totalSpend"`
	TotalInvoices   int64   `json:"totalInvoices"`
	AvgInvoiceValue float64 `json:"avgInvoiceValue"`
}

type VendorSpend struct {
	Name  string  `json:"name"`
	Spend float64 `json:"spend"`
}

// Service runs the fixed dashboard reports through an Executor, so report
// failures carry the same query.Error kinds as prompt queries.
type Service struct {
	Executor query.Executor
}

func NewService(executor query.Executor) *Service {
	return &Service{Executor: executor}
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	result, err := s.Executor.Execute(ctx, statsSQL)
	if err != nil {
		return Stats{}, fmt.Errorf("invoice stats: %w", err)
	}
	if len(result.Rows) == 0 {
		return Stats{}, nil
	}
	row := result.Rows[0]

	var stats Stats
	if stats.TotalSpend, err = floatColumn(row, "total_spend"); err != nil {
		return Stats{}, err
	}
	count, err := floatColumn(row, "total_invoices")
	if err != nil {
		return Stats{}, err
	}
	stats.TotalInvoices = int64(count)
	if stats.AvgInvoiceValue, err = floatColumn(row, "avg_invoice_value"); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

func (s *Service) TopVendors(ctx context.Context) ([]VendorSpend, error) {
	result, err := s.Executor.Execute(ctx, topVendorsSQL)
	if err != nil {
		return nil, fmt.Errorf("top vendors: %w", err)
	}
	vendors := make([]VendorSpend, 0, len(result.Rows))
	for _, row := range result.Rows {
		value, _ := row.Get("name")
		name, _ := value.(string)
		spend, err := floatColumn(row, "spend")
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, VendorSpend{Name: name, Spend: spend})
	}
	return vendors, nil
}

// floatColumn reads a numeric column. NULL aggregates read as zero.
func floatColumn(row query.Row, column string) (float64, error) {
	value, ok := row.Get(column)
	if !ok {
		return 0, reportValueError(column, fmt.Errorf("missing from report"))
	}
	switch typed := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return typed, nil
	case float32:
		return float64(typed), nil
	case int64:
		return float64(typed), nil
	case int32:
		return float64(typed), nil
	case int:
		return float64(typed), nil
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, reportValueError(column, err)
		}
		return parsed, nil
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)
		if err != nil {
			return 0, reportValueError(column, err)
		}
		return parsed, nil
	default:
		return 0, reportValueError(column, fmt.Errorf("unexpected type %T", value))
	}
}

func reportValueError(column string, err error) error {
	return &query.Error{Kind: query.KindSerialization, Op: "report", Err: fmt.Errorf("column %q: %w", column, err)}
}
