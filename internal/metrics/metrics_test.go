package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard https", "https://API.data.gov.sg/v1/technology", "api.data.gov.sg"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "localhost:1234", "localhost"},
		{"ip address", "127.0.0.1", "127.0.0.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestObserveUnit(t *testing.T) {
	Init()
	Init()

	before := testutil.ToFloat64(unitsTotal.WithLabelValues("test-pass", ResultFailure))
	ObserveUnit("test-pass", true)
	ObserveUnit("test-pass", false)
	ObserveUnit("test-pass", false)

	if val := testutil.ToFloat64(unitsTotal.WithLabelValues("test-pass", ResultFailure)); val != before+2 {
		t.Errorf("expected %f failures, got %f", before+2, val)
	}
}

func TestUnitStartedReleases(t *testing.T) {
	release := UnitStarted("gauge-pass")
	if val := testutil.ToFloat64(activeUnits.WithLabelValues("gauge-pass")); val != 1 {
		t.Errorf("expected 1 active unit, got %f", val)
	}
	release()
	if val := testutil.ToFloat64(activeUnits.WithLabelValues("gauge-pass")); val != 0 {
		t.Errorf("expected 0 active units, got %f", val)
	}
}

func TestObserveBytesIgnoresEmptyBodies(t *testing.T) {
	ObserveBytes("https://bytes.example.com/a.jpg", 0)
	ObserveBytes("https://bytes.example.com/a.jpg", 512)
	if val := testutil.ToFloat64(bytesTotal.WithLabelValues("bytes.example.com")); val != 512 {
		t.Errorf("expected 512 bytes, got %f", val)
	}
}

func TestObserveRateLimitDelay(t *testing.T) {
	ObserveRateLimitDelay("delay.example.com", 20*time.Millisecond)
	if val := testutil.CollectAndCount(rateLimitDelaysSeconds); val <= 0 {
		t.Errorf("expected rate limit delays to be observed, got %d", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://api.data.gov.sg", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
