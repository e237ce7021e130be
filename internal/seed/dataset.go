package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
)

// document mirrors the parts of an analytics export entry that are loaded.
// Every field is optional.
type document struct {
	ExtractedData struct {
		LLMData struct {
			Vendor struct {
				Value struct {
					VendorName field `json:"vendorName"`
				} `json:"value"`
			} `json:"vendor"`
			Invoice struct {
				Value struct {
					InvoiceID field `json:"invoiceId"`
				} `json:"value"`
			} `json:"invoice"`
			Summary struct {
				Value struct {
					InvoiceTotal field `json:"invoiceTotal"`
				} `json:"value"`
			} `json:"summary"`
		} `json:"llmData"`
	} `json:"extractedData"`
}

type field struct {
	Value json.RawMessage `json:"value"`
}

// DecodeJSON reads an analytics export: a JSON array of extracted documents.
func DecodeJSON(r io.Reader) ([]Record, error) {
	var docs []document
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode analytics export: %w", err)
	}

	records := make([]Record, 0, len(docs))
	for _, doc := range docs {
		llm := doc.ExtractedData.LLMData
		vendor := stringValue(llm.Vendor.Value.VendorName.Value)
		if vendor == "" {
			vendor = UnknownVendor
		}
		invoiceNo := stringValue(llm.Invoice.Value.InvoiceID.Value)
		if invoiceNo == "" {
			invoiceNo = randomInvoiceNo()
		}
		records = append(records, Record{
			VendorName: vendor,
			InvoiceNo:  invoiceNo,
			Total:      totalValue(llm.Summary.Value.InvoiceTotal.Value),
		})
	}
	return records, nil
}

func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String()
	}
	return ""
}

// totalValue accepts numbers and numeric strings. Anything else reads as 0.
func totalValue(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
		return 0
	}
	return parsed
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomInvoiceNo() string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return "INV-" + string(suffix)
}
