package domain

import "testing"

func TestChapterLabels(t *testing.T) {
	labels := ChapterLabels()
	if len(labels) != 9 {
		t.Fatalf("expected 9 chapters, got %d", len(labels))
	}
	if labels[0] != "CH1" || labels[8] != "CH9" {
		t.Fatalf("unexpected labels: %v", labels)
	}
}

func TestSectionsFor(t *testing.T) {
	sections := SectionsFor([]string{"CH1", "CH3"})
	if len(sections) != 4 {
		t.Fatalf("expected 4 sections, got %v", sections)
	}
	for _, want := range []string{"1-1", "1-2", "3-1", "3-2"} {
		if _, ok := sections[want]; !ok {
			t.Fatalf("missing section %s in %v", want, sections)
		}
	}

	if got := SectionsFor(nil); len(got) != 0 {
		t.Fatalf("expected empty set for no chapters, got %v", got)
	}
	if got := SectionsFor([]string{"CH99"}); len(got) != 0 {
		t.Fatalf("expected unknown label to be ignored, got %v", got)
	}
}
