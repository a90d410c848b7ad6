package track

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrack_Playable(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected bool
	}{
		{name: "http source", source: "http://localhost:3001/uploads/a.mp3", expected: true},
		{name: "empty source", source: "", expected: false},
		{name: "whitespace only", source: "   ", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Track{ID: 1, AudioSource: tt.source}
			assert.Equal(t, tt.expected, tr.Playable())
		})
	}
}

func TestParseDisplayDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
	}{
		{name: "minutes and seconds", input: "3:45", expected: 3*time.Minute + 45*time.Second},
		{name: "hours", input: "1:02:03", expected: time.Hour + 2*time.Minute + 3*time.Second},
		{name: "plain seconds", input: "215", expected: 215 * time.Second},
		{name: "fractional seconds", input: "0:01.5", expected: 1500 * time.Millisecond},
		{name: "empty", input: "", expected: 0},
		{name: "garbage", input: "three minutes", expected: 0},
		{name: "negative", input: "-1:00", expected: 0},
		{name: "too many parts", input: "1:1:1:1", expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseDisplayDuration(tt.input))
		})
	}
}

func TestClone_DoesNotAlias(t *testing.T) {
	src := []Track{{ID: 1, Title: "A"}, {ID: 2, Title: "B"}}
	dst := Clone(src)
	dst[0].Title = "changed"

	assert.Equal(t, "A", src[0].Title)
	assert.Nil(t, Clone(nil))
}

func TestIDs(t *testing.T) {
	assert.Equal(t, []ID{3, 1, 2}, IDs([]Track{{ID: 3}, {ID: 1}, {ID: 2}}))
	assert.Empty(t, IDs(nil))
}
