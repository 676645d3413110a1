package guard

import (
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		msg  string
		want Class
	}{
		{"context deadline exceeded: timeout", ClassTemporary},
		{"429 too many requests", ClassTemporary},
		{"connection reset by peer", ClassTemporary},
		{"service temporarily unavailable", ClassTemporary},
		{"profile not found", ClassPermanent},
		{"account does not exist", ClassPermanent},
		{"invalid email address", ClassPermanent},
		{"request forbidden", ClassPermanent},
		{"something odd happened", ClassUnknown},
		{"", ClassUnknown},
		// Temporary markers win when both kinds appear.
		{"rate limit hit while checking: profile not found", ClassTemporary},
	}
	for _, tc := range tests {
		if got := Classify(tc.msg); got != tc.want {
			t.Fatalf("Classify(%q) = %s, want %s", tc.msg, got, tc.want)
		}
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	t.Parallel()

	p := RetryPolicy{MaxRetries: 5, BaseDelay: 30 * time.Second, MaxDelay: 30 * time.Minute, Multiplier: 2}

	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 30 * time.Second},
		{2, 60 * time.Second},
		{3, 120 * time.Second},
		{0, 30 * time.Second},  // clamped to one attempt
		{60, 30 * time.Minute}, // capped at MaxDelay
	}
	for _, tc := range tests {
		if got := p.Backoff(tc.attempts); got != tc.want {
			t.Fatalf("Backoff(%d) = %s, want %s", tc.attempts, got, tc.want)
		}
	}
}

func TestFailManager_TemporaryRetriesThenBlocks(t *testing.T) {
	t.Parallel()

	clock := newFakeClock()
	f := NewFailManager(RetryPolicy{MaxRetries: 3, BaseDelay: 30 * time.Second, MaxDelay: 30 * time.Minute, Multiplier: 2})
	f.now = clock.now

	if !f.CanRetry("row-1") {
		t.Fatal("row with no history not eligible")
	}

	rec := f.Record("row-1", "timeout talking to provider")
	if rec.Class != ClassTemporary || rec.Blocked {
		t.Fatalf("first failure: %+v", rec)
	}
	if f.CanRetry("row-1") {
		t.Fatal("eligible before backoff elapsed")
	}
	clock.advance(31 * time.Second)
	if !f.CanRetry("row-1") {
		t.Fatal("not eligible after backoff elapsed")
	}

	// Second failure doubles the delay.
	rec = f.Record("row-1", "timeout talking to provider")
	clock.advance(31 * time.Second)
	if f.CanRetry("row-1") {
		t.Fatal("eligible before the doubled backoff elapsed")
	}
	clock.advance(30 * time.Second)
	if !f.CanRetry("row-1") {
		t.Fatal("not eligible after the doubled backoff elapsed")
	}

	// Third failure hits the retry ceiling regardless of class.
	rec = f.Record("row-1", "timeout talking to provider")
	if !rec.Blocked || rec.AttemptCount != 3 {
		t.Fatalf("third failure: %+v", rec)
	}
	clock.advance(24 * time.Hour)
	if f.CanRetry("row-1") {
		t.Fatal("blocked row became eligible again")
	}
}

func TestFailManager_PermanentBlocksImmediately(t *testing.T) {
	t.Parallel()

	f := NewFailManager(DefaultRetryPolicy())
	rec := f.Record("row-2", "linkedin profile not found")
	if rec.Class != ClassPermanent || !rec.Blocked || rec.AttemptCount != 1 {
		t.Fatalf("permanent failure record: %+v", rec)
	}
	if f.CanRetry("row-2") {
		t.Fatal("permanently failed row still eligible")
	}
}

func TestFailManager_BlockBypassesClassification(t *testing.T) {
	t.Parallel()

	f := NewFailManager(DefaultRetryPolicy())
	// The message alone would classify TEMPORARY; Block forces PERMANENT.
	rec := f.Block("row-3", "agent panic: timeout")
	if rec.Class != ClassPermanent || !rec.Blocked {
		t.Fatalf("forced block record: %+v", rec)
	}
	if f.CanRetry("row-3") {
		t.Fatal("force-blocked row still eligible")
	}
}

func TestFailManager_ClearResetsHistory(t *testing.T) {
	t.Parallel()

	f := NewFailManager(DefaultRetryPolicy())
	f.Record("row-4", "503 unavailable")
	f.Clear("row-4")

	if _, ok := f.Get("row-4"); ok {
		t.Fatal("record survived Clear")
	}
	if !f.CanRetry("row-4") {
		t.Fatal("cleared row not eligible")
	}
}
