package catalog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/osa030/melodybox/internal/domain/track"
)

// ToTracks maps media records to tracks. Records without an audio URL
// cannot be played and are skipped. Relative URLs are resolved against
// the media base URL.
func (c *Client) ToTracks(medias []Media) []track.Track {
	return ToTracks(medias, c.mediaBaseURL)
}

// ToTracks maps media records to tracks, resolving relative URLs against base.
func ToTracks(medias []Media, base string) []track.Track {
	return lo.FilterMap(medias, func(m Media, _ int) (track.Track, bool) {
		if strings.TrimSpace(m.AudioURL) == "" {
			zlog.Debug().Msgf("catalog: skipping media without audio url id=%d name=%q", m.ID, m.Name)
			return track.Track{}, false
		}
		return track.Track{
			ID:          track.ID(m.ID),
			Title:       m.Name,
			Artist:      m.ArtistName,
			AudioSource: resolve(base, m.AudioURL),
			Cover:       resolve(base, m.ImgURL),
			Duration:    displayDuration(m.Duration),
		}, true
	})
}

// resolve returns ref as an absolute URL when base allows it.
func resolve(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	if !strings.HasSuffix(b.Path, "/") {
		b.Path += "/"
	}
	return b.ResolveReference(&url.URL{Path: strings.TrimPrefix(r.Path, "/"), RawQuery: r.RawQuery}).String()
}

// displayDuration turns a bare seconds value into "m:ss".
// Values already in clock form are kept.
func displayDuration(s string) string {
	s = strings.TrimSpace(s)
	secs, err := strconv.ParseFloat(s, 64)
	if err != nil || secs < 0 {
		return s
	}
	total := int(secs + 0.5)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, total/60%60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
