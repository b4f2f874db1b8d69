package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/addislearn/quiz-backend/models"
)

// PageRange is an inclusive page-number range from a quiz selection.
type PageRange struct {
	Start int `json:"start" binding:"required,min=1"`
	End   int `json:"end" binding:"required,min=1"`
}

// ResolveTextbook finds the textbook for a grade and subject. Subject
// matching is case-insensitive; when several textbooks match, the most
// recently created one wins.
func ResolveTextbook(db *gorm.DB, grade int, subject string) (*models.Textbook, error) {
	var tb models.Textbook
	err := db.
		Where("grade = ?", grade).
		Where("LOWER(subject) = LOWER(?)", strings.TrimSpace(subject)).
		Order("created_at DESC").
		First(&tb).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s (grade %d)", ErrTextbookNotFound, subject, grade)
		}
		return nil, fmt.Errorf("resolve textbook: %w", err)
	}
	return &tb, nil
}

// ExpandRanges normalizes page ranges into an explicit ascending list of
// page numbers: inverted ranges are swapped, bounds clamped to >= 1, and
// overlapping ranges deduplicated.
func ExpandRanges(ranges []PageRange) []int {
	seen := make(map[int]struct{})
	for _, r := range ranges {
		start, end := r.Start, r.End
		if start > end {
			start, end = end, start
		}
		if start < 1 {
			start = 1
		}
		if end < 1 {
			end = 1
		}
		for p := start; p <= end; p++ {
			seen[p] = struct{}{}
		}
	}
	nums := make([]int, 0, len(seen))
	for p := range seen {
		nums = append(nums, p)
	}
	sort.Ints(nums)
	return nums
}

// ResolvePages fetches the pages covered by the given ranges in ascending
// page-number order. Pages missing from the textbook are simply absent from
// the result.
func ResolvePages(db *gorm.DB, textbookID uuid.UUID, ranges []PageRange) ([]models.TextbookPage, error) {
	nums := ExpandRanges(ranges)
	if len(nums) == 0 {
		return nil, ErrNoPagesInRange
	}

	var pages []models.TextbookPage
	err := db.
		Where("textbook_id = ?", textbookID).
		Where("page_number IN ?", nums).
		Order("page_number ASC").
		Find(&pages).Error
	if err != nil {
		return nil, fmt.Errorf("resolve pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, ErrNoPagesInRange
	}
	return pages, nil
}

// FilterTextPages drops pages whose text is empty after trimming. Only the
// survivors are usable as grounding.
func FilterTextPages(pages []models.TextbookPage) []models.TextbookPage {
	out := make([]models.TextbookPage, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p.TextContent) != "" {
			out = append(out, p)
		}
	}
	return out
}

// Language hints handed to the generator. "am" forces Amharic output,
// "auto" lets the model mirror the excerpt language.
const (
	LangHintAmharic = "am"
	LangHintAuto    = "auto"
)

// ethiopicRatioThreshold is the share of Ethiopic script (vs Latin letters)
// in the grounding corpus above which the quiz is generated in Amharic.
const ethiopicRatioThreshold = 0.35

// DetectLanguageHint inspects the grounding corpus and the subject label.
// The hint never overrides explicit per-subject language instructions; it
// only steers the default.
func DetectLanguageHint(pages []models.TextbookPage, subject string) string {
	if strings.Contains(strings.ToLower(subject), "amharic") ||
		strings.Contains(subject, "አማርኛ") {
		return LangHintAmharic
	}

	var ethiopic, latin int
	for _, p := range pages {
		for _, r := range p.TextContent {
			switch {
			case r >= 0x1200 && r <= 0x137F:
				ethiopic++
			case unicode.IsLetter(r) && r < 0x0250:
				latin++
			}
		}
	}
	if total := ethiopic + latin; total > 0 {
		if float64(ethiopic)/float64(total) >= ethiopicRatioThreshold {
			return LangHintAmharic
		}
	}
	return LangHintAuto
}
