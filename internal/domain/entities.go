package domain

import (
	"fmt"
	"time"
)

// Origin records where a cached wallpaper came from.
type Origin string

const (
	// OriginDownload marks files downloaded from the remote source and
	// owned by the cache (eligible for eviction).
	OriginDownload Origin = "download"
	// OriginLocal marks user-provided files merged from the wallpaper
	// directory. The cache indexes them but never deletes them.
	OriginLocal Origin = "local"
)

// WallpaperRecord is the cache's view of one stored image. Records are
// keyed by content checksum; no two records share one.
type WallpaperRecord struct {
	ID           string    `json:"id"` // source id, or checksum for local files
	Checksum     string    `json:"checksum"` // SHA-256 hex of file contents
	SourceURL    string    `json:"source_url,omitempty"`
	Origin       Origin    `json:"origin"`
	Path         string    `json:"path"` // absolute path of the stored file
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	FileSize     int64     `json:"file_size"`
	Category     string    `json:"category,omitempty"`
	Purity       string    `json:"purity,omitempty"`
	Colors       []string  `json:"colors,omitempty"`
	DownloadedAt time.Time `json:"downloaded_at"`
	LastSetAt    time.Time `json:"last_set_at"` // zero = never set
	Favorite     bool      `json:"favorite"`
}

// Aspect returns the width/height ratio, 0 for degenerate dimensions.
func (r WallpaperRecord) Aspect() float64 {
	if r.Height <= 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// Orientation derives the image orientation from its dimensions.
func (r WallpaperRecord) Orientation() Orientation {
	return OrientationOf(r.Width, r.Height)
}

// Candidate describes a remote image before download.
type Candidate struct {
	ID       string
	URL      string // direct file URL
	PageURL  string // human-facing page, kept for attribution
	Width    int
	Height   int
	FileSize int64
	FileType string // content type, e.g. "image/jpeg"
	Category string
	Purity   string
	Colors   []string
}

// Aspect returns the width/height ratio, 0 for degenerate dimensions.
func (c Candidate) Aspect() float64 {
	if c.Height <= 0 {
		return 0
	}
	return float64(c.Width) / float64(c.Height)
}

// Orientation of a monitor or image.
type Orientation string

const (
	Landscape Orientation = "landscape"
	Portrait  Orientation = "portrait"
	Square    Orientation = "square"
)

// OrientationOf classifies dimensions into an orientation.
func OrientationOf(width, height int) Orientation {
	switch {
	case width > height:
		return Landscape
	case width < height:
		return Portrait
	default:
		return Square
	}
}

// Monitor describes one physical display. Immutable after load for a run.
type Monitor struct {
	ID          int
	Name        string // e.g. "DP-1", "HDMI-1"
	Width       int
	Height      int
	Orientation Orientation
	Scale       float64 // DPI scaling, 1.0 = 100%
	X           int     // position in virtual screen space
	Y           int
	Primary     bool
}

// EffectiveWidth is the pixel width a wallpaper needs to cover the
// monitor once the scale factor is accounted for.
func (m Monitor) EffectiveWidth() int {
	return scaleDim(m.Width, m.Scale)
}

// EffectiveHeight is the scaled counterpart of Height.
func (m Monitor) EffectiveHeight() int {
	return scaleDim(m.Height, m.Scale)
}

func scaleDim(dim int, scale float64) int {
	if scale <= 0 {
		return dim
	}
	return int(float64(dim)*scale + 0.5)
}

// Aspect returns the monitor's width/height ratio.
func (m Monitor) Aspect() float64 {
	if m.Height <= 0 {
		return 0
	}
	return float64(m.Width) / float64(m.Height)
}

// Resolution returns the "1920x1080" form used in search params and logs.
func (m Monitor) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// Sorting methods accepted by the search capability.
type Sorting string

const (
	SortDateAdded Sorting = "date_added"
	SortRelevance Sorting = "relevance"
	SortRandom    Sorting = "random"
	SortViews     Sorting = "views"
	SortFavorites Sorting = "favorites"
	SortToplist   Sorting = "toplist"
)

// SearchCriteria is the source-agnostic query handed to a Source.
// Zero fields are omitted from the request.
type SearchCriteria struct {
	Query       string
	Categories  string // e.g. "110" (general, anime, people)
	Purity      string // e.g. "100" (sfw only)
	Sorting     Sorting
	Order       string // "desc" or "asc"
	TopRange    string // "1d".."1y", toplist sorting only
	AtLeast     string // minimum resolution, "1920x1080"
	Resolutions string // exact resolutions, comma separated
	Ratios      string // aspect ratios, "16x9"
	Colors      string // hex color, "663399"
	Page        int
}
