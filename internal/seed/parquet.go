package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
)

const parquetReadBatch = 256

func EncodeParquet(records []Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("records are required")
	}
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[Record](buf)
	if _, err := writer.Write(records); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeParquet reads flat vendor_name/invoice_no/total rows.
func DecodeParquet(r io.ReaderAt, size int64) ([]Record, error) {
	reader := parquet.NewGenericReader[Record](io.NewSectionReader(r, 0, size))
	defer func() { _ = reader.Close() }()

	records := make([]Record, 0, reader.NumRows())
	batch := make([]Record, parquetReadBatch)
	for {
		count, err := reader.Read(batch)
		records = append(records, batch[:count]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
		if count == 0 {
			break
		}
	}

	for i := range records {
		if records[i].VendorName == "" {
			records[i].VendorName = UnknownVendor
		}
		if records[i].InvoiceNo == "" {
			records[i].InvoiceNo = randomInvoiceNo()
		}
	}
	return records, nil
}
