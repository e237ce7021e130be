package seed

import (
	"fmt"
	"math"
	"math/rand"
)

var vendorNames = []string{
	"Acme Supplies",
	"Globex Logistics",
	"Initech Software",
	"Umbrella Facilities",
	"Stark Components",
	"Wayne Office Goods",
	"Hooli Cloud",
	"Vandelay Imports",
}

// Generator produces synthetic invoices. Output is fully determined by the seed.
type Generator struct {
	rnd      *rand.Rand
	vendors  []string
	sequence int64
}

func NewGenerator(seed int64, vendorCardinality int) *Generator {
	if vendorCardinality <= 0 || vendorCardinality > len(vendorNames) {
		vendorCardinality = len(vendorNames)
	}
	return &Generator{
		rnd:     rand.New(rand.NewSource(seed)),
		vendors: vendorNames[:vendorCardinality],
	}
}

func (g *Generator) NextRecord() Record {
	g.sequence++
	return Record{
		VendorName: g.vendors[g.rnd.Intn(len(g.vendors))],
		InvoiceNo:  fmt.Sprintf("INV-%06d", g.sequence),
		Total:      g.pickTotal(),
	}
}

func (g *Generator) Records(n int) []Record {
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, g.NextRecord())
	}
	return records
}

// pickTotal skews toward small invoices with an occasional large one.
func (g *Generator) pickTotal() float64 {
	p := g.rnd.Intn(100)
	switch {
	case p < 60:
		return round2(50 + g.rnd.Float64()*450)
	case p < 90:
		return round2(500 + g.rnd.Float64()*4500)
	default:
		return round2(5000 + g.rnd.Float64()*45000)
	}
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
