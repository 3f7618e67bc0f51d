package schema

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatusWireNames(t *testing.T) {
	want := map[OrderStatus]string{
		StatusPending:   "pending",
		StatusRouting:   "routing",
		StatusBuilding:  "building",
		StatusSubmitted: "submitted",
		StatusConfirmed: "confirmed",
		StatusFailed:    "failed",
	}
	for status, name := range want {
		if status.String() != name {
			t.Fatalf("status %d name mismatch: got %q want %q", status, status.String(), name)
		}
		data, err := json.Marshal(status)
		if err != nil {
			t.Fatalf("marshal %s: %v", name, err)
		}
		var decoded OrderStatus
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unmarshal %s: %v", name, err)
		}
		if decoded != status {
			t.Fatalf("round-trip mismatch: got %v want %v", decoded, status)
		}
	}
	if StatusPending.IsTerminal() || StatusSubmitted.IsTerminal() {
		t.Fatal("non-terminal status reported terminal")
	}
	if !StatusConfirmed.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Fatal("terminal status reported non-terminal")
	}
}

func TestStatusUpdateWireFormat(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	state := OrderState{
		OrderID:        "o-1",
		Status:         StatusConfirmed,
		Venue:          VenueRaydium,
		ExecutionPrice: 150,
		TxHash:         "tx1",
	}
	data, err := json.Marshal(state.Update(ts, "Transaction confirmed"))
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}
	want := `{"orderId":"o-1","status":"confirmed","timestamp":"2025-06-01T12:00:00Z",` +
		`"venue":"Raydium","executionPrice":150,"txHash":"tx1","logs":["Transaction confirmed"]}`
	if string(data) != want {
		t.Fatalf("wire mismatch:\n got %s\nwant %s", data, want)
	}
}

func TestStatusUpdateOmitsEmptyFields(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	data, err := json.Marshal(NewOrderState("o-2").Update(ts, "Order queued"))
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}
	want := `{"orderId":"o-2","status":"pending","timestamp":"2025-06-01T12:00:00Z","logs":["Order queued"]}`
	if string(data) != want {
		t.Fatalf("wire mismatch:\n got %s\nwant %s", data, want)
	}
}
