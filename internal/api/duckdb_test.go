package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/flowbit/flowbit/internal/analytics"
	"github.com/flowbit/flowbit/internal/config"
	"github.com/flowbit/flowbit/internal/query/sqldb"
)

func TestPromptRoundTripAgainstDuckDB(t *testing.T) {
	db, err := sqldb.Open(config.DatabaseConfig{Driver: config.DriverDuckDB})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	statements := []string{
		`CREATE TABLE "Vendor" (id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`,
		`CREATE TABLE "Invoice" (id INTEGER PRIMARY KEY, invoice_no TEXT NOT NULL, "vendorId" INTEGER NOT NULL, total DOUBLE NOT NULL DEFAULT 0)`,
		`INSERT INTO "Vendor" VALUES (1, 'Acme'), (2, 'Globex'), (3, 'Initech')`,
		`INSERT INTO "Invoice" VALUES (1, 'INV-1', 1, 100), (2, 'INV-2', 2, 50), (3, 'INV-3', 3, 200)`,
	}
	for _, statement := range statements {
		if _, err := db.ExecContext(context.Background(), statement); err != nil {
			t.Fatalf("fixture error = %v", err)
		}
	}

	cfg, err := config.Load("flowbit-api", mapLookup(map[string]string{"FLOWBIT_DATABASE_DRIVER": "duckdb"}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	executor := sqldb.NewExecutor(db, cfg.Query)
	h := NewHandler(cfg, Dependencies{
		Executor: executor,
		Reports:  analytics.NewService(executor),
	})

	rr := postPrompt(t, h, "/generate-sql", `{"prompt":"who are our top vendors"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	rows := body["rows"].([]any)
	var spends []float64
	for _, row := range rows {
		spends = append(spends, row.(map[string]any)["spend"].(float64))
	}
	if len(spends) != 3 || spends[0] != 200 || spends[1] != 100 || spends[2] != 50 {
		t.Fatalf("spends = %v", spends)
	}

	rr = postPrompt(t, h, "/generate-sql", `{"prompt":"what is in the ledger"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("default status = %d, body=%s", rr.Code, rr.Body.String())
	}
	if rows := decodeBody(t, rr)["rows"].([]any); len(rows) != 3 {
		t.Fatalf("default rows = %d", len(rows))
	}
	if inUse := db.Stats().InUse; inUse != 0 {
		t.Fatalf("InUse = %d", inUse)
	}
}
