package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/melodybox/internal/domain/track"
)

// DuplicateTrackFilter checks for the same recording queued under another ID.
// Detects:
// - Remasters (normalized title + same main artist)
// Excludes:
// - Cover songs (same title but different artist)
// - Exact ID matches, which the queue merge drops on its own
type DuplicateTrackFilter struct{}

// NewDuplicateTrackFilter creates a new duplicate track filter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	return &DuplicateTrackFilter{}
}

// Name returns the filter name.
func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

// Description returns the filter description.
func (f *DuplicateTrackFilter) Description() string {
	return "既にキュー内にある楽曲のリマスター版・別バージョンを拒否。カバー楽曲は別物として許可"
}

// ReturnCodes returns possible return codes.
func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{"duplicate_track"}
}

// AppliesTo returns which origins this filter applies to.
func (f *DuplicateTrackFilter) AppliesTo(origin Origin) bool {
	// A full replacement is the caller's explicit choice
	return origin == OriginAppend
}

// ValidateConfig validates the filter configuration.
func (f *DuplicateTrackFilter) ValidateConfig(config map[string]any) error {
	// No configuration needed
	return nil
}

// Check checks if the track duplicates a queued one.
func (f *DuplicateTrackFilter) Check(ctx context.Context, requested track.Track, queue []track.Track) Result {
	for _, queued := range queue {
		if queued.ID == requested.ID {
			continue
		}
		if f.isRemaster(queued, requested) {
			return Reject("duplicate_track")
		}
	}
	return Accept()
}

// isRemaster checks if two tracks are the same song (remaster/different version).
// Returns true if:
// - Normalized titles match
// - Main artist is the same
func (f *DuplicateTrackFilter) isRemaster(track1, track2 track.Track) bool {
	name1 := normalizeTrackName(track1.Title)
	name2 := normalizeTrackName(track2.Title)

	if name1 == "" || name1 != name2 {
		return false
	}

	// Same normalized name - check if same artist
	// If different artists, it's a cover song (allowed)
	return isSameArtist(track1, track2)
}

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),        // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),           // "(Radio Edit)"
		regexp.MustCompile(`\s+-\s*live\b.*$`),         // "- Live", "- Live at Wembley"
		regexp.MustCompile(`\s*\(live\b.*?\)`),         // "(Live)", "(Live in Tokyo)"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),     // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`), // "- Single Version"
	}
	spaces          = regexp.MustCompile(`\s+`)
	artistSeparator = regexp.MustCompile(`(?i)\s*(,|&|\bfeat\.?|\bft\.?|\bfeaturing\b)\s*`)
)

// normalizeTrackName removes remaster information and version details.
func normalizeTrackName(name string) string {
	normalized := strings.ToLower(name)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = spaces.ReplaceAllString(normalized, " ")

	// Remove trailing dashes
	normalized = strings.TrimRight(normalized, " -")

	return normalized
}

// mainArtist returns the first credited artist of a display string
// like "Queen & David Bowie" or "Artist feat. Guest".
func mainArtist(artist string) string {
	parts := artistSeparator.Split(strings.TrimSpace(artist), 2)
	return strings.TrimSpace(parts[0])
}

// isSameArtist checks if two tracks have the same main artist.
func isSameArtist(track1, track2 track.Track) bool {
	a1, a2 := mainArtist(track1.Artist), mainArtist(track2.Artist)
	if a1 == "" || a2 == "" {
		return false
	}
	return strings.EqualFold(a1, a2)
}

func init() {
	Register("duplicate_track_filter", func() Filter {
		return NewDuplicateTrackFilter()
	})
}
