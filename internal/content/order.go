package content

import (
	"fmt"
	"sort"

	"folio/internal/services"
)

// CheckOrder verifies that indices form the contiguous range 0..n-1 with no
// duplicates. Duplicates report ErrConflictingOrder; gaps report ErrValidation.
func CheckOrder(indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	sorted := append([]int(nil), indices...)
	sort.Ints(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1] == sorted[i] {
			return services.Wrap(services.ErrConflictingOrder, "content", "check order",
				fmt.Sprintf("order_index %d used more than once", sorted[i]), nil)
		}
	}
	for i, idx := range sorted {
		if idx != i {
			return services.Wrap(services.ErrValidation, "content", "check order",
				fmt.Sprintf("order indices are not contiguous: expected %d, found %d", i, idx), nil)
		}
	}
	return nil
}

// ChapterIndices collects the order indices of chapters.
func ChapterIndices(chapters []Chapter) []int {
	out := make([]int, len(chapters))
	for i, ch := range chapters {
		out[i] = ch.OrderIndex
	}
	return out
}

// SectionIndices collects the order indices of sections.
func SectionIndices(sections []Section) []int {
	out := make([]int, len(sections))
	for i, sec := range sections {
		out[i] = sec.OrderIndex
	}
	return out
}

// ChapterWordCount is words(content) plus the section word counts.
func ChapterWordCount(ch Chapter, sections []Section) int {
	total := CountWords(ch.Content)
	for _, sec := range sections {
		total += CountWords(sec.Content)
	}
	return total
}
