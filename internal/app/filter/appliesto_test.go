package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilters_AppliesTo(t *testing.T) {
	origins := []Origin{OriginPlay, OriginReplace, OriginAppend}

	tests := []struct {
		name   string
		filter Filter
		want   map[Origin]bool
	}{
		{
			name:   "missing source applies everywhere",
			filter: &MissingSourceFilter{},
			want:   map[Origin]bool{OriginPlay: true, OriginReplace: true, OriginAppend: true},
		},
		{
			name:   "queue limit on append only",
			filter: NewQueueLimitFilter(),
			want:   map[Origin]bool{OriginAppend: true},
		},
		{
			name:   "duplicate track on append only",
			filter: NewDuplicateTrackFilter(),
			want:   map[Origin]bool{OriginAppend: true},
		},
		{
			name:   "duration limit on append only",
			filter: NewDurationLimitFilter(),
			want:   map[Origin]bool{OriginAppend: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, o := range origins {
				assert.Equal(t, tt.want[o], tt.filter.AppliesTo(o), "origin %s", o)
			}
		})
	}
}

func TestRegistry_ContainsBuiltins(t *testing.T) {
	registry := GetRegistered()
	for _, name := range []string{
		"missing_source_filter",
		"queue_limit_filter",
		"duplicate_track_filter",
		"duration_limit_filter",
	} {
		factory, ok := registry[name]
		if assert.True(t, ok, name) {
			assert.Equal(t, name, factory().Name())
		}
	}
}
