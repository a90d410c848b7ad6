package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/melodybox/internal/domain/track"
)

func TestDurationLimitFilter_Check(t *testing.T) {
	tests := []struct {
		name         string
		minMinutes   float64
		maxMinutes   float64
		duration     string
		shouldReject bool
		description  string
	}{
		{
			name:         "Within limits",
			minMinutes:   2.0,
			maxMinutes:   5.0,
			duration:     "3:00",
			shouldReject: false,
			description:  "Should accept track within min/max limits",
		},
		{
			name:         "Too short",
			minMinutes:   3.0,
			duration:     "2:00",
			shouldReject: true,
			description:  "Should reject track shorter than min",
		},
		{
			name:         "Too long",
			minMinutes:   1.0,
			maxMinutes:   5.0,
			duration:     "6:00",
			shouldReject: true,
			description:  "Should reject track longer than max",
		},
		{
			name:         "Exact max",
			minMinutes:   1.0,
			maxMinutes:   5.0,
			duration:     "5:00",
			shouldReject: false,
			description:  "Should accept track exactly at max",
		},
		{
			name:         "Unknown duration",
			minMinutes:   3.0,
			maxMinutes:   5.0,
			duration:     "",
			shouldReject: false,
			description:  "Should accept track without a display duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			f.config = &DurationLimitConfig{
				MinMinutes: tt.minMinutes,
				MaxMinutes: tt.maxMinutes,
			}

			result := f.Check(context.Background(), track.Track{ID: 1, Duration: tt.duration}, nil)

			if tt.shouldReject {
				assert.False(t, result.Accepted, tt.description)
				assert.Equal(t, "duration_limit_exceeded", result.Code)
			} else {
				assert.True(t, result.Accepted, tt.description)
			}
		})
	}
}

func TestDurationLimitFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		wantErr  bool
	}{
		{name: "Valid config", settings: map[string]any{"min_minutes": 2.5, "max_minutes": 5.0}},
		{name: "Valid integers", settings: map[string]any{"min_minutes": 2, "max_minutes": 5}},
		{name: "Invalid min > max", settings: map[string]any{"min_minutes": 10.0, "max_minutes": 5.0}, wantErr: true},
		{name: "Invalid negative min", settings: map[string]any{"min_minutes": -1.0}, wantErr: true},
		{name: "Invalid negative max", settings: map[string]any{"max_minutes": -1.0}, wantErr: true},
		{name: "Empty settings (uses defaults)", settings: map[string]any{}},
		{name: "Explicit zero max means unlimited", settings: map[string]any{"min_minutes": 30, "max_minutes": 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDurationLimitFilter()
			err := f.ValidateConfig(tt.settings)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDurationLimitFilter_ExplicitZeroMaxKept(t *testing.T) {
	f := NewDurationLimitFilter()
	require.NoError(t, f.ValidateConfig(map[string]any{"max_minutes": 0}))
	assert.Equal(t, 0.0, f.config.MaxMinutes)

	require.NoError(t, f.ValidateConfig(map[string]any{}))
	assert.Equal(t, 20.0, f.config.MaxMinutes)
}
