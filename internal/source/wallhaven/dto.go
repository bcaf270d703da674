package wallhaven

// Wire types for the Wallhaven v1 API. Unknown fields are ignored on
// decode, which keeps the client tolerant of API additions.

// searchResponse is the envelope of GET /search.
type searchResponse struct {
	Data []wallpaperDTO `json:"data"`
	Meta metaDTO        `json:"meta"`
}

// wallpaperDTO is one search result entry.
type wallpaperDTO struct {
	ID         string   `json:"id"`
	URL        string   `json:"url"`  // page URL
	Path       string   `json:"path"` // direct file URL
	Resolution string   `json:"resolution"`
	DimensionX int      `json:"dimension_x"`
	DimensionY int      `json:"dimension_y"`
	FileSize   int64    `json:"file_size"`
	FileType   string   `json:"file_type"`
	Colors     []string `json:"colors"`
	Purity     string   `json:"purity"`
	Category   string   `json:"category"`
}

// metaDTO carries pagination info.
type metaDTO struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}
