package core

import "testing"

func TestSimHash64_IdenticalContentMatches(t *testing.T) {
	a := SimHash64("Database host is db.example.com")
	b := SimHash64("Database host is db.example.com")
	if a != b {
		t.Fatalf("expected identical content to produce identical fingerprints, got %x vs %x", a, b)
	}
}

func TestSimHash64_NearParaphraseIsWithinThreshold(t *testing.T) {
	a := SimHash64("Database host is db.example.com")
	b := SimHash64("DB host is db.example.com")
	d := HammingDistance64(a, b)
	if d > NearDuplicateThreshold {
		t.Fatalf("expected near-paraphrase within threshold %d, got distance %d", NearDuplicateThreshold, d)
	}
	if !IsNearDuplicate(a, b) {
		t.Fatalf("expected IsNearDuplicate to report true for distance %d", d)
	}
}

func TestSimHash64_UnrelatedContentDiverges(t *testing.T) {
	a := SimHash64("Met Alice at the coffee shop this morning")
	b := SimHash64("The quarterly revenue report is due Friday")
	if IsNearDuplicate(a, b) {
		t.Fatalf("expected unrelated content to diverge, got distance %d", HammingDistance64(a, b))
	}
}

func TestIsNearDuplicate_ZeroFingerprintNeverMatches(t *testing.T) {
	if IsNearDuplicate(0, 0) {
		t.Fatal("zero fingerprint (not computed) must never be treated as a match")
	}
}

func TestHammingDistance64_Symmetric(t *testing.T) {
	a := SimHash64("one two three")
	b := SimHash64("four five six")
	if HammingDistance64(a, b) != HammingDistance64(b, a) {
		t.Fatal("Hamming distance must be symmetric")
	}
}
