package google

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"pagos/internal/core"
	"pagos/internal/export"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{PendingSheetName: "Pendientes"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "abc"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "abc", ServiceAccountFile: "/non/existent/sa.json"})
	if err == nil {
		t.Fatal("expected error for missing credentials file")
	}
}

func TestWritePending_NotInitialized(t *testing.T) {
	c := &Client{spreadsheetID: "test", pendingBase: "Pendientes"}
	_, err := c.WritePending(context.Background(), 2026, 4, nil, decimal.Zero)
	if err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestPendingValues(t *testing.T) {
	rows := []export.Row{
		{Due: core.NewDate(2026, 4, 2), Amount: decimal.RequireFromString("15.99"), Name: "Netflix", Account: "Cards", Category: "Ocio"},
		{Due: core.NewDate(2026, 4, 30), Amount: decimal.RequireFromString("500"), Name: "Rent", Account: "Main"},
	}
	got := pendingValues(2026, 4, rows, decimal.RequireFromString("515.99"))

	if len(got) != 5 {
		t.Fatalf("got %d rows, want 5", len(got))
	}
	if got[0][0] != "Pendientes del mes 2026-04" {
		t.Errorf("title = %v", got[0][0])
	}
	if got[2][0] != "2026-04-02" || got[2][1] != 15.99 || got[2][2] != "Netflix" || got[2][4] != "Ocio" {
		t.Errorf("first charge row = %v", got[2])
	}
	if got[4][0] != "TOTAL PENDIENTE" || got[4][1] != 515.99 {
		t.Errorf("total row = %v", got[4])
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"Pendientes", "2026 Pendientes"},
		{"2025 Pendientes", "2025 Pendientes"},
		{"  ", ""},
		{"Q1 2026", "2026 Q1 2026"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, 2026); got != tt.want {
			t.Errorf("yearPrefixedName(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}
