package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/melodybox/internal/domain/track"
)

func TestDuplicateTrackFilter_ExactIDMatchIsLeftToMerge(t *testing.T) {
	queue := []track.Track{
		{ID: 123, Title: "Bohemian Rhapsody", Artist: "Queen"},
	}

	filter := NewDuplicateTrackFilter()

	// Same track ID is not this filter's concern
	result := filter.Check(
		context.Background(),
		track.Track{ID: 123, Title: "Bohemian Rhapsody - 2011 Remaster", Artist: "Queen"},
		queue,
	)

	assert.True(t, result.Accepted)
}

func TestDuplicateTrackFilter_RemasterDetection(t *testing.T) {
	tests := []struct {
		name           string
		queuedTrack    track.Track
		requestedTrack track.Track
		shouldReject   bool
		description    string
	}{
		{
			name:           "Standard remaster pattern",
			queuedTrack:    track.Track{ID: 1, Title: "Bohemian Rhapsody", Artist: "Queen"},
			requestedTrack: track.Track{ID: 2, Title: "Bohemian Rhapsody - 2011 Remaster", Artist: "Queen"},
			shouldReject:   true,
			description:    "Should detect '- 2011 Remaster' as duplicate",
		},
		{
			name:           "Remastered in parentheses",
			queuedTrack:    track.Track{ID: 1, Title: "Yesterday", Artist: "The Beatles"},
			requestedTrack: track.Track{ID: 2, Title: "Yesterday (Remastered 2023)", Artist: "The Beatles"},
			shouldReject:   true,
			description:    "Should detect '(Remastered 2023)' as duplicate",
		},
		{
			name:           "Cover song - different artist",
			queuedTrack:    track.Track{ID: 1, Title: "Yesterday", Artist: "The Beatles"},
			requestedTrack: track.Track{ID: 2, Title: "Yesterday", Artist: "Paul McCartney"},
			shouldReject:   false,
			description:    "Should allow cover by different artist",
		},
		{
			name:           "Different songs - similar names",
			queuedTrack:    track.Track{ID: 1, Title: "Love", Artist: "John Lennon"},
			requestedTrack: track.Track{ID: 2, Title: "Love Song", Artist: "John Lennon"},
			shouldReject:   false,
			description:    "Should allow different songs",
		},
		{
			name:           "Radio Edit version",
			queuedTrack:    track.Track{ID: 1, Title: "Stairway to Heaven", Artist: "Led Zeppelin"},
			requestedTrack: track.Track{ID: 2, Title: "Stairway to Heaven (Radio Edit)", Artist: "Led Zeppelin"},
			shouldReject:   true,
			description:    "Should detect radio edit as duplicate",
		},
		{
			name:           "Live version",
			queuedTrack:    track.Track{ID: 1, Title: "Hotel California", Artist: "Eagles"},
			requestedTrack: track.Track{ID: 2, Title: "Hotel California - Live", Artist: "Eagles"},
			shouldReject:   true,
			description:    "Should detect live version as duplicate",
		},
		{
			name:           "Leading live is part of the title",
			queuedTrack:    track.Track{ID: 1, Title: "Forever", Artist: "Oasis"},
			requestedTrack: track.Track{ID: 2, Title: "Live Forever", Artist: "Oasis"},
			shouldReject:   false,
			description:    "Should allow a title that starts with live",
		},
		{
			name:           "Featured guest on one side",
			queuedTrack:    track.Track{ID: 1, Title: "Under Pressure", Artist: "Queen & David Bowie"},
			requestedTrack: track.Track{ID: 2, Title: "Under Pressure (Remastered)", Artist: "Queen"},
			shouldReject:   true,
			description:    "Should compare main artists only",
		},
		{
			name:           "Remix version - should be allowed",
			queuedTrack:    track.Track{ID: 1, Title: "Le Freak", Artist: "CHIC"},
			requestedTrack: track.Track{ID: 2, Title: "Le Freak (Oliver Heldens Remix)", Artist: "CHIC"},
			shouldReject:   false,
			description:    "Should allow remix version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := NewDuplicateTrackFilter()
			result := filter.Check(context.Background(), tt.requestedTrack, []track.Track{tt.queuedTrack})

			if tt.shouldReject {
				assert.False(t, result.Accepted, tt.description)
				assert.Equal(t, "duplicate_track", result.Code)
			} else {
				assert.True(t, result.Accepted, tt.description)
			}
		})
	}
}

func TestDuplicateTrackFilter_EmptyQueue(t *testing.T) {
	filter := NewDuplicateTrackFilter()

	result := filter.Check(
		context.Background(),
		track.Track{ID: 1, Title: "Any Song", Artist: "Any Artist"},
		nil,
	)

	assert.True(t, result.Accepted, "Should accept any track when queue is empty")
}

func TestNormalizeTrackName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Bohemian Rhapsody", "bohemian rhapsody"},
		{"Bohemian Rhapsody - 2011 Remaster", "bohemian rhapsody"},
		{"Yesterday (Remastered 2023)", "yesterday"},
		{"Hotel California [Remastered]", "hotel california"},
		{"Stairway to Heaven (Radio Edit)", "stairway to heaven"},
		{"Imagine - Live", "imagine"},
		{"Imagine - Live at Madison Square Garden", "imagine"},
		{"Imagine (Live in Tokyo)", "imagine"},
		{"Alive", "alive"},
		{"Oliver's Army", "oliver's army"},
		{"Live Forever", "live forever"},
		{"Livin' on a Prayer", "livin' on a prayer"},
		{"Let It Be (Single Version)", "let it be"},
		{"Hey Jude - Remastered Version", "hey jude"},
		{"Come Together (2019 Mix)", "come together (2019 mix)"},
		{"   Extra   Spaces   ", "extra spaces"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalizeTrackName(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestIsSameArtist(t *testing.T) {
	tests := []struct {
		name     string
		artist1  string
		artist2  string
		expected bool
	}{
		{name: "Same artist", artist1: "Queen", artist2: "Queen", expected: true},
		{name: "Same artist - case insensitive", artist1: "Queen", artist2: "queen", expected: true},
		{name: "Different artists", artist1: "The Beatles", artist2: "Paul McCartney", expected: false},
		{name: "Empty artist", artist1: "", artist2: "Queen", expected: false},
		{name: "Comma separated - compare first", artist1: "Queen, David Bowie", artist2: "Queen, Someone Else", expected: true},
		{name: "Featuring", artist1: "Daft Punk feat. Pharrell Williams", artist2: "Daft Punk", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isSameArtist(track.Track{Artist: tt.artist1}, track.Track{Artist: tt.artist2})
			assert.Equal(t, tt.expected, result)
		})
	}
}
