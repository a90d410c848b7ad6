// Package playerapi defines the messages and procedures of the player RPC
// service. Messages are plain structs carried with a JSON codec.
package playerapi

// Track is a playable unit.
type Track struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	AudioSource string `json:"audioSource"`
	Cover       string `json:"cover,omitempty"`
	Duration    string `json:"duration,omitempty"`
}

// PlayerState is a snapshot of the player store.
type PlayerState struct {
	Playlist           []Track `json:"playlist"`
	Queue              []Track `json:"queue"`
	CurrentTrackIndex  int     `json:"currentTrackIndex"`
	CurrentTrack       *Track  `json:"currentTrack,omitempty"`
	State              string  `json:"state"`
	IsPlaying          bool    `json:"isPlaying"`
	Audible            bool    `json:"audible"`
	CurrentTime        float64 `json:"currentTime"`
	Duration           float64 `json:"duration"`
	Volume             float64 `json:"volume"`
	IsRepeat           bool    `json:"isRepeat"`
	IsRandom           bool    `json:"isRandom"`
	IsQueueInitialized bool    `json:"isQueueInitialized"`
	LastError          string  `json:"lastError,omitempty"`
	Source             *Source `json:"source,omitempty"`
}

// Source describes where the playlist came from. Kind is "playlist",
// "media", "track", or "direct" for lists sent by a client.
type Source struct {
	Kind         string  `json:"kind"`
	PlaylistID   int64   `json:"playlistId,omitempty"`
	MediaID      int64   `json:"mediaId,omitempty"`
	Name         string  `json:"name,omitempty"`
	Tracks       int     `json:"tracks"`
	TotalSeconds float64 `json:"totalSeconds"`
}

// Rejection is a track the admission filters turned away.
type Rejection struct {
	Track   Track  `json:"track"`
	Filter  string `json:"filter"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// Empty is the request of calls without arguments.
type Empty struct{}

// StateResponse carries the state after a call.
type StateResponse struct {
	State PlayerState `json:"state"`
}

type PlayTrackRequest struct {
	Index  int     `json:"index"`
	Tracks []Track `json:"tracks,omitempty"`
}

type SeekRequest struct {
	Seconds float64 `json:"seconds"`
}

type SetVolumeRequest struct {
	Level float64 `json:"level"`
}

// ChangeTrackRequest moves to the "next" or "prev" track.
type ChangeTrackRequest struct {
	Direction string `json:"direction"`
}

type JumpToRequest struct {
	Index int `json:"index"`
}

// ToggleResponse carries the new value of a flag.
type ToggleResponse struct {
	Value bool `json:"value"`
}

// TracksRequest carries tracks for UpdateQueue, UpdatePlaylist and AddToQueue.
type TracksRequest struct {
	Tracks []Track `json:"tracks"`
}

// QueueResponse reports the outcome of a queue change.
type QueueResponse struct {
	Added      int         `json:"added"`
	Rejections []Rejection `json:"rejections,omitempty"`
	State      PlayerState `json:"state"`
}

type LoadPlaylistRequest struct {
	PlaylistID int64 `json:"playlistId"`
	Index      int   `json:"index"`
}

type LoadMediaRequest struct {
	Index int `json:"index"`
}

type LoadTrackRequest struct {
	MediaID int64 `json:"mediaId"`
}

type EnqueuePlaylistRequest struct {
	PlaylistID int64 `json:"playlistId"`
}

// OutputEvent is an event reported by a remote audio output.
type OutputEvent struct {
	Type     string  `json:"type"` // time_update, ended, error, playing
	Source   string  `json:"source"`
	Position float64 `json:"position,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Error    string  `json:"error,omitempty"`
	// Autoplay marks an error caused by the autoplay policy.
	Autoplay bool `json:"autoplay,omitempty"`
}

// SubscribeRequest opens a notification stream. With Output set, the
// subscriber also receives output commands and acts as the audio output.
type SubscribeRequest struct {
	Output bool `json:"output,omitempty"`
}

// NotificationType names the payload of a notification.
type NotificationType string

const (
	NotificationInitialState NotificationType = "initial_state"
	NotificationEvent        NotificationType = "event"
	NotificationCommand      NotificationType = "command"
)

// Notification is a message on the Subscribe stream.
type Notification struct {
	SequenceNo uint64           `json:"sequenceNo"`
	Type       NotificationType `json:"type"`
	State      *PlayerState     `json:"state,omitempty"`
	Event      *PlayerEvent     `json:"event,omitempty"`
	Command    *OutputCommand   `json:"command,omitempty"`
}

// PlayerEvent is a store event.
type PlayerEvent struct {
	Type     string  `json:"type"`
	Track    *Track  `json:"track,omitempty"`
	Index    int     `json:"index"`
	State    string  `json:"state"`
	Audible  bool    `json:"audible"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Volume   float64 `json:"volume"`
	IsRepeat bool    `json:"isRepeat"`
	IsRandom bool    `json:"isRandom"`
	QueueLen int     `json:"queueLen"`
	Error    string  `json:"error,omitempty"`
}

// OutputCommand is a command for a remote audio output.
type OutputCommand struct {
	Type     string  `json:"type"` // load, play, pause, seek, set_volume
	Source   string  `json:"source,omitempty"`
	Position float64 `json:"position,omitempty"`
	Volume   float64 `json:"volume,omitempty"`
}
