package sanitizer

import (
	"math"
	"testing"
)

func TestShannonEntropy_Boundaries(t *testing.T) {
	if got := ShannonEntropy(""); got != 0.0 {
		t.Errorf("ShannonEntropy(\"\") = %v, want 0.0", got)
	}
	if got := ShannonEntropy("aaaaaaaaaa"); got != 0.0 {
		t.Errorf("ShannonEntropy(repeated char) = %v, want 0.0", got)
	}

	// Uniform alphabet of size k -> log2(k)
	uniform16 := "0123456789abcdef"
	want := math.Log2(16)
	if got := ShannonEntropy(uniform16); math.Abs(got-want) > 1e-9 {
		t.Errorf("ShannonEntropy(uniform16) = %v, want %v", got, want)
	}
}

func TestIsHighEntropy_ThresholdInclusive(t *testing.T) {
	s := "0123456789abcdef" // entropy exactly log2(16) = 4.0
	threshold := ShannonEntropy(s)
	if !IsHighEntropy(s, threshold, 16) {
		t.Error("IsHighEntropy should treat entropy exactly at threshold as meeting it (>=)")
	}
	if IsHighEntropy(s, threshold+0.01, 16) {
		t.Error("IsHighEntropy should not meet a threshold strictly above the string's entropy")
	}
}

func TestIsHighEntropy_MinLength(t *testing.T) {
	if IsHighEntropy("ab12", 1.0, 16) {
		t.Error("short string below min_length should never be flagged")
	}
}

func TestFindEntropyRuns(t *testing.T) {
	content := "plain text wJalrXUtnFEMIK7MDENGbPxRfiCYEXAMPLE more text"
	runs := FindEntropyRuns(content, 4.0, 16)
	if len(runs) == 0 {
		t.Fatal("expected at least one high-entropy run")
	}
}
