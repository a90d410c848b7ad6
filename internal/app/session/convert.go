package session

import (
	"github.com/samber/lo"

	"github.com/osa030/melodybox/internal/api/playerapi"
	"github.com/osa030/melodybox/internal/app/filter"
	"github.com/osa030/melodybox/internal/app/playback"
	"github.com/osa030/melodybox/internal/app/session/state"
	"github.com/osa030/melodybox/internal/domain/playlist"
	"github.com/osa030/melodybox/internal/domain/track"
	"github.com/osa030/melodybox/internal/infra/audio"
)

// TrackToAPI converts a domain track to its API form.
func TrackToAPI(t track.Track) playerapi.Track {
	return playerapi.Track{
		ID:          int64(t.ID),
		Title:       t.Title,
		Artist:      t.Artist,
		AudioSource: t.AudioSource,
		Cover:       t.Cover,
		Duration:    t.Duration,
	}
}

// TracksToAPI converts domain tracks to their API form.
func TracksToAPI(tracks []track.Track) []playerapi.Track {
	return lo.Map(tracks, func(t track.Track, _ int) playerapi.Track { return TrackToAPI(t) })
}

// TracksFromAPI converts API tracks to domain tracks.
func TracksFromAPI(tracks []playerapi.Track) []track.Track {
	return lo.Map(tracks, func(t playerapi.Track, _ int) track.Track {
		return track.Track{
			ID:          track.ID(t.ID),
			Title:       t.Title,
			Artist:      t.Artist,
			AudioSource: t.AudioSource,
			Cover:       t.Cover,
			Duration:    t.Duration,
		}
	})
}

// StateToAPI converts a store snapshot to its API form.
func StateToAPI(s playback.Snapshot) playerapi.PlayerState {
	st := playerapi.PlayerState{
		Playlist:           TracksToAPI(s.Playlist),
		Queue:              TracksToAPI(s.Queue),
		CurrentTrackIndex:  s.CurrentTrackIndex,
		State:              s.State.String(),
		IsPlaying:          s.IsPlaying,
		Audible:            s.Audible,
		CurrentTime:        s.CurrentTime,
		Duration:           s.Duration,
		Volume:             s.Volume,
		IsRepeat:           s.IsRepeat,
		IsRandom:           s.IsRandom,
		IsQueueInitialized: s.IsQueueInitialized,
	}
	if s.CurrentTrack != nil {
		t := TrackToAPI(*s.CurrentTrack)
		st.CurrentTrack = &t
	}
	if s.LastError != nil {
		st.LastError = s.LastError.Error()
	}
	return st
}

// SourceToAPI describes the playlist p and where it came from. It returns
// nil when there is neither a source nor a playlist.
func SourceToAPI(src *state.Source, p playlist.Playlist) *playerapi.Source {
	if src == nil && len(p.Tracks) == 0 {
		return nil
	}
	out := &playerapi.Source{
		Kind:         "direct",
		Name:         p.Name,
		Tracks:       len(p.Tracks),
		TotalSeconds: p.TotalDuration().Seconds(),
	}
	if src != nil {
		out.Kind = src.Kind.String()
		out.PlaylistID = src.PlaylistID
		out.MediaID = src.MediaID
	}
	return out
}

// EventToAPI converts a store event to its API form.
func EventToAPI(e playback.Event) *playerapi.PlayerEvent {
	pe := &playerapi.PlayerEvent{
		Type:     e.Type.String(),
		Index:    e.Index,
		State:    e.State.String(),
		Audible:  e.Audible,
		Position: e.Position,
		Duration: e.Duration,
		Volume:   e.Volume,
		IsRepeat: e.IsRepeat,
		IsRandom: e.IsRandom,
		QueueLen: e.QueueLen,
	}
	if e.Track != nil {
		t := TrackToAPI(*e.Track)
		pe.Track = &t
	}
	if e.Err != nil {
		pe.Error = e.Err.Error()
	}
	return pe
}

// CommandToAPI converts an output command to its API form.
func CommandToAPI(c audio.Command) *playerapi.OutputCommand {
	return &playerapi.OutputCommand{
		Type:     c.Type.String(),
		Source:   c.Source,
		Position: c.Position,
		Volume:   c.Volume,
	}
}

// RejectionsToAPI converts filter rejections to their API form, resolving
// each code to a user-facing message.
func RejectionsToAPI(rejections []filter.Rejection, message func(code string) string) []playerapi.Rejection {
	return lo.Map(rejections, func(r filter.Rejection, _ int) playerapi.Rejection {
		out := playerapi.Rejection{
			Track:  TrackToAPI(r.Track),
			Filter: r.Filter,
			Code:   r.Code,
		}
		if message != nil {
			out.Message = message(r.Code)
		}
		return out
	})
}
