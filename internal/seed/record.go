package seed

// Record is one invoice to load, with the vendor it belongs to.
type Record struct {
	VendorName string  `parquet:"vendor_name" json:"vendor_name"`
	InvoiceNo  string  `parquet:"invoice_no" json:"invoice_no"`
	Total      float64 `parquet:"total" json:"total"`
}

const UnknownVendor = "Unknown Vendor"
