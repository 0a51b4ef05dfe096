package textutil

import (
	"math"
	"testing"
)

func TestCosineSimilarityNil(t *testing.T) {
	tests := []struct {
		name string
		a    *Fingerprint
		b    *Fingerprint
	}{
		{"both nil", nil, nil},
		{"a nil", nil, NewFingerprint("rolled ankle")},
		{"b nil", NewFingerprint("rolled ankle"), nil},
		{"zero norm", &Fingerprint{tokens: map[string]float64{}}, NewFingerprint("rolled ankle")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); got != 0 {
				t.Errorf("CosineSimilarity() = %v, want 0", got)
			}
		})
	}
}

func TestCosineSimilarityRange(t *testing.T) {
	same := CosineSimilarity(NewFingerprint("Rolled his ankle at training"), NewFingerprint("rolled HIS ankle, at training!"))
	if math.Abs(same-1) > 1e-9 {
		t.Errorf("identical after folding = %v, want 1", same)
	}
	if got := CosineSimilarity(NewFingerprint("apple banana cherry"), NewFingerprint("dog elephant frog")); got != 0 {
		t.Errorf("disjoint = %v, want 0", got)
	}
	partial := CosineSimilarity(NewFingerprint("rolled left ankle"), NewFingerprint("sprained left ankle"))
	if partial <= 0 || partial >= 1 {
		t.Errorf("partial = %v, want between 0 and 1", partial)
	}
	ab := CosineSimilarity(FingerprintOf([]string{"sam", "okafor"}), FingerprintOf([]string{"okafor"}))
	ba := CosineSimilarity(FingerprintOf([]string{"okafor"}), FingerprintOf([]string{"sam", "okafor"}))
	if ab != ba {
		t.Errorf("not symmetric: %v vs %v", ab, ba)
	}
}

func TestTokenizeDropsShortWords(t *testing.T) {
	got := Tokenize("He is OK at the back")
	want := []string{"the", "back"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize = %v, want %v", got, want)
		}
	}
}

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Zoë", "zoe"},
		{"  Liam O'Brien ", "liam obrien"},
		{"Jamie-Lee  CARTER", "jamie lee carter"},
		{"U12 Lions!", "u12 lions"},
		{"José Álvarez", "jose alvarez"},
		{"Liam O’Brien", "liam obrien"},
		{"", ""},
		{"...", ""},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestJaroWinkler(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"martha", "marhta", 0.9611},
		{"dwayne", "duane", 0.84},
		{"dixon", "dicksonx", 0.8133},
		{"same", "same", 1},
		{"", "", 1},
		{"abc", "", 0},
		{"abc", "xyz", 0},
	}
	for _, tt := range tests {
		got := JaroWinkler(tt.a, tt.b)
		if math.Abs(got-tt.want) > 0.001 {
			t.Errorf("JaroWinkler(%q, %q) = %.4f, want %.4f", tt.a, tt.b, got, tt.want)
		}
	}
}
