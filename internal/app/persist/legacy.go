package persist

import (
	"encoding/json"

	"github.com/samber/lo"

	"github.com/osa030/melodybox/internal/domain/track"
)

// legacyTrack is the unversioned track shape, which carried the audio
// source under several aliased names.
type legacyTrack struct {
	ID          track.ID `json:"id"`
	Title       string   `json:"title"`
	Artist      string   `json:"artist"`
	Duration    string   `json:"duration"`
	Cover       string   `json:"cover"`
	AudioSource string   `json:"audioSource"`
	Audio       string   `json:"audio"`
	Src         string   `json:"src"`
	AudioURL    string   `json:"audio_url"`
}

func (l legacyTrack) toTrack() track.Track {
	source, _ := lo.Find([]string{l.AudioSource, l.Audio, l.Src, l.AudioURL}, func(s string) bool {
		return s != ""
	})
	return track.Track{
		ID:          l.ID,
		Title:       l.Title,
		Artist:      l.Artist,
		AudioSource: source,
		Cover:       l.Cover,
		Duration:    l.Duration,
	}
}

// decodeLegacyTracks decodes a v0 track list into the current shape.
func decodeLegacyTracks(data []byte) ([]track.Track, error) {
	var legacy []legacyTrack
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, err
	}
	return lo.Map(legacy, func(l legacyTrack, _ int) track.Track {
		return l.toTrack()
	}), nil
}
