package wallhaven

import "github.com/wallter/wallter/internal/domain"

// mapCandidates converts API entries to domain candidates, dropping
// entries without a usable file URL or dimensions.
func mapCandidates(dtos []wallpaperDTO) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(dtos))
	for _, d := range dtos {
		if c := mapCandidate(d); c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func mapCandidate(d wallpaperDTO) *domain.Candidate {
	if d.Path == "" || d.DimensionX <= 0 || d.DimensionY <= 0 {
		return nil
	}
	return &domain.Candidate{
		ID:       d.ID,
		URL:      d.Path,
		PageURL:  d.URL,
		Width:    d.DimensionX,
		Height:   d.DimensionY,
		FileSize: d.FileSize,
		FileType: d.FileType,
		Category: d.Category,
		Purity:   d.Purity,
		Colors:   d.Colors,
	}
}
