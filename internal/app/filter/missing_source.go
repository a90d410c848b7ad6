package filter

import (
	"context"

	"github.com/osa030/melodybox/internal/domain/track"
)

// MissingSourceFilter rejects tracks that carry no audio source.
type MissingSourceFilter struct{}

func (f *MissingSourceFilter) Name() string {
	return "missing_source_filter"
}

func (f *MissingSourceFilter) Description() string {
	return "Rejects tracks without an audio source"
}

func (f *MissingSourceFilter) ReturnCodes() []string {
	return []string{"missing_source"}
}

func (f *MissingSourceFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *MissingSourceFilter) AppliesTo(origin Origin) bool {
	return true
}

func (f *MissingSourceFilter) Check(ctx context.Context, t track.Track, queue []track.Track) Result {
	if !t.Playable() {
		return Reject("missing_source")
	}
	return Accept()
}

func init() {
	Register("missing_source_filter", func() Filter {
		return &MissingSourceFilter{}
	})
}
