package match

import "testing"

func TestNormalizeTitleStripsAnnotations(t *testing.T) {
	got := NormalizeTitle("Dune (Unabridged)")
	if got != "Dune" {
		t.Fatalf("expected %q, got %q", "Dune", got)
	}
}

func TestNormalizeTitleStripsBracketsAndParens(t *testing.T) {
	got := NormalizeTitle("Foundation [Dramatized Adaptation] (Unabridged)")
	if got != "Foundation" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestNormalizeTitleStripsDiacritics(t *testing.T) {
	got := NormalizeTitle("Le Comte de Monte-Cristo: Édition intégrale")
	if got != "Le Comte de Monte-Cristo: Edition integrale" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestNormalizeTitleKeepsSeparateSpans(t *testing.T) {
	// Non-greedy spans: text between two annotations must survive.
	got := NormalizeTitle("(Intro) Middle (Outro)")
	if got != "Middle" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestNormalizeTitleNeverEmptyForNonLatin(t *testing.T) {
	got := NormalizeTitle("三体")
	if got == "" {
		t.Fatal("non-Latin title normalized to empty string")
	}
}
