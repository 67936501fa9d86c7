package domain

import "fmt"

// chapterCount is fixed by the bank layout: CH1 through CH9, each split into
// two section tags ("3" -> "3-1", "3-2") used in the chapter column of rows.
const chapterCount = 9

// ChapterLabels returns the fixed chapter labels CH1..CH9 in order.
func ChapterLabels() []string {
	labels := make([]string, 0, chapterCount)
	for i := 1; i <= chapterCount; i++ {
		labels = append(labels, fmt.Sprintf("CH%d", i))
	}
	return labels
}

// SectionsFor expands chapter labels into the set of section tags they cover.
// Unknown labels are ignored; an empty input yields an empty set.
func SectionsFor(chapters []string) map[string]struct{} {
	sections := make(map[string]struct{}, 2*len(chapters))
	for _, label := range chapters {
		for i := 1; i <= chapterCount; i++ {
			if label != fmt.Sprintf("CH%d", i) {
				continue
			}
			sections[fmt.Sprintf("%d-1", i)] = struct{}{}
			sections[fmt.Sprintf("%d-2", i)] = struct{}{}
		}
	}
	return sections
}
