package plancancel

import "testing"

func TestToken_NilIsNeverCancelled(t *testing.T) {
	var tok *Token
	if tok.Cancelled() {
		t.Errorf("expected a nil token to never report cancelled")
	}
	tok.Cancel()
	if tok.Cancelled() {
		t.Errorf("expected Cancel on a nil token to be a no-op")
	}
}

func TestToken_CancelTrips(t *testing.T) {
	tok := New()
	if tok.Cancelled() {
		t.Fatalf("expected a fresh token to start untripped")
	}
	tok.Cancel()
	if !tok.Cancelled() {
		t.Errorf("expected Cancelled to report true after Cancel")
	}
	tok.Cancel()
	if !tok.Cancelled() {
		t.Errorf("expected a second Cancel call to be harmless")
	}
}
