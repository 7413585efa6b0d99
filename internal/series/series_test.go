package series

import "testing"

func TestCleanStripsSeriesTagline(t *testing.T) {
	_, seriesDef := Clean("Whatever", "Foundation: A Science Fiction Series", ", Book 1")
	if seriesDef != "Foundation" {
		t.Fatalf("expected tagline stripped, got %q", seriesDef)
	}
}

func TestCleanRemovesRedundantTitleSuffix(t *testing.T) {
	title, seriesDef := Clean(
		"Foundation: A Foundation Series, Book 2",
		"Foundation Series",
		", Book 2",
	)
	if seriesDef != "Foundation Series" {
		t.Fatalf("series changed unexpectedly: %q", seriesDef)
	}
	if title == "Foundation: A Foundation Series, Book 2" {
		t.Fatal("expected redundant suffix removed from title")
	}
	if title != "Foundation: A Foundation Series" {
		t.Fatalf("unexpected cleaned title: %q", title)
	}
}

func TestCleanRemovesSeriesVolumeMention(t *testing.T) {
	title, _ := Clean(
		"The Fall of Hyperion: Hyperion Cantos, Book 2",
		"Hyperion Cantos Series",
		", Book 2",
	)
	if title != "The Fall of Hyperion" {
		t.Fatalf("unexpected cleaned title: %q", title)
	}
}

func TestCleanKeepsVolumeWhenPartOfSeriesMention(t *testing.T) {
	// ", Book 2" directly preceded by the short series name belongs to the
	// full "<series>, Book 2" mention; the bare-volume rule must not fire
	// on its tail alone.
	title, _ := Clean(
		"Some Title: Hyperion Cantos, Book 2",
		"Hyperion Cantos Series",
		", Book 2",
	)
	if title != "Some Title" {
		t.Fatalf("unexpected cleaned title: %q", title)
	}
}

func TestCleanRemovesEditionSuffix(t *testing.T) {
	title, _ := Clean(
		"Dune: The Deluxe Edition",
		"Dune Series",
		", Book 1",
	)
	if title != "Dune" {
		t.Fatalf("unexpected cleaned title: %q", title)
	}
}

func TestCleanRemovesParentheticalSeriesSuffix(t *testing.T) {
	title, _ := Clean(
		"Royal Assassin (Farseer, Book 2; The Realm of the Elderlings)",
		"Farseer Series",
		", Book 2",
	)
	if title != "Royal Assassin" {
		t.Fatalf("unexpected cleaned title: %q", title)
	}
}

func TestCleanNoSeriesSuffixLeavesTitleAlone(t *testing.T) {
	title, seriesDef := Clean("Dune, Book 1", "Dune Chronicles", ", Book 1")
	if title != "Dune, Book 1" || seriesDef != "Dune Chronicles" {
		t.Fatalf("expected no-op, got title=%q series=%q", title, seriesDef)
	}
}

func TestCleanIdempotent(t *testing.T) {
	title, seriesDef := Clean(
		"The Fall of Hyperion: Hyperion Cantos, Book 2",
		"Hyperion Cantos Series",
		", Book 2",
	)
	again, seriesAgain := Clean(title, seriesDef, ", Book 2")
	if again != title || seriesAgain != seriesDef {
		t.Fatalf("clean not stable: %q/%q -> %q/%q", title, seriesDef, again, seriesAgain)
	}
}

func TestSortKey(t *testing.T) {
	if got := SortKey("Dune", "Dune Chronicles", ", Book 1"); got != "Dune Chronicles, Book 1 - Dune" {
		t.Fatalf("unexpected sort key: %q", got)
	}
	if got := SortKey("Dune", "", ""); got != "Dune" {
		t.Fatalf("unexpected sort key: %q", got)
	}
}
