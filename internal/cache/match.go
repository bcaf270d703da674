package cache

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/wallter/wallter/internal/domain"
)

// Match returns the records whose id, category, purity or colors
// fuzzily match pattern, narrowed by the filter first.
func (s *Store) Match(pattern string, filter Filter) ([]domain.WallpaperRecord, error) {
	records, err := s.List(filter)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(pattern) == "" {
		return records, nil
	}

	var out []domain.WallpaperRecord
	for _, rec := range records {
		if fuzzy.MatchFold(pattern, matchKey(rec)) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func matchKey(rec domain.WallpaperRecord) string {
	parts := []string{rec.ID, rec.Category, rec.Purity, string(rec.Origin)}
	parts = append(parts, rec.Colors...)
	return strings.Join(parts, " ")
}
