package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLabelsRoundTrip(t *testing.T) {
	labels := Labels{"INBOX", "UNREAD"}

	v, err := labels.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var got Labels
	if err := got.Scan(v); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if diff := cmp.Diff(labels, got); diff != "" {
		t.Errorf("round trip (-want +got):\n%s", diff)
	}
}

func TestLabelsScanNil(t *testing.T) {
	var got Labels
	if err := got.Scan(nil); err != nil {
		t.Fatalf("Scan(nil): %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestLabelsContains(t *testing.T) {
	labels := Labels{"INBOX", "STARRED"}
	if !labels.Contains("STARRED") {
		t.Error("Contains(STARRED) = false")
	}
	if labels.Contains("UNREAD") {
		t.Error("Contains(UNREAD) = true")
	}
}
