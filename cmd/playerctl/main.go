// Package main provides the player control CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/melodybox/internal/api/connect"
	"github.com/osa030/melodybox/internal/api/playerapi"
)

var (
	app    = kingpin.New("melodybox-ctl", "melodybox player control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token (or set CONTROL_TOKEN env)").Envar("CONTROL_TOKEN").String()

	statusCmd = app.Command("status", "Show the player state")

	playCmd    = app.Command("play", "Play the queue entry at index")
	playIndex  = playCmd.Arg("index", "Queue index").Default("0").Int()
	playTracks = playCmd.Flag("tracks", "JSON file with tracks replacing the queue").ExistingFile()

	toggleCmd = app.Command("toggle", "Toggle play/pause")
	resumeCmd = app.Command("resume", "Resume a restored session")

	seekCmd     = app.Command("seek", "Seek within the current track")
	seekSeconds = seekCmd.Arg("seconds", "Position in seconds").Required().Float64()

	volumeCmd   = app.Command("volume", "Set the volume")
	volumeLevel = volumeCmd.Arg("level", "Level between 0 and 1").Required().Float64()

	nextCmd = app.Command("next", "Play the next track")
	prevCmd = app.Command("prev", "Play the previous track")

	jumpCmd   = app.Command("jump", "Jump to a queue index")
	jumpIndex = jumpCmd.Arg("index", "Queue index").Required().Int()

	repeatCmd  = app.Command("repeat", "Toggle repeat")
	shuffleCmd = app.Command("shuffle", "Toggle shuffle")

	queueCmd    = app.Command("queue", "Replace the queue, keeping the playlist")
	queueFile   = queueCmd.Arg("file", "JSON file with tracks").Required().ExistingFile()
	playlistCmd = app.Command("playlist", "Replace the playlist and the queue")
	playlistArg = playlistCmd.Arg("file", "JSON file with tracks").Required().ExistingFile()
	addCmd      = app.Command("add", "Append tracks to the queue")
	addFile     = addCmd.Arg("file", "JSON file with tracks").Required().ExistingFile()

	loadPlaylistCmd   = app.Command("load-playlist", "Load a catalog playlist and play it")
	loadPlaylistID    = loadPlaylistCmd.Arg("playlist-id", "Playlist ID").Required().Int64()
	loadPlaylistIndex = loadPlaylistCmd.Arg("index", "Start index").Default("0").Int()

	loadMediaCmd   = app.Command("load-media", "Load the whole catalog and play it")
	loadMediaIndex = loadMediaCmd.Arg("index", "Start index").Default("0").Int()

	loadTrackCmd = app.Command("load-track", "Play a single catalog media record")
	loadTrackID  = loadTrackCmd.Arg("media-id", "Media ID").Required().Int64()

	enqueueCmd = app.Command("enqueue-playlist", "Append a catalog playlist to the queue")
	enqueueID  = enqueueCmd.Arg("playlist-id", "Playlist ID").Required().Int64()

	clearCmd = app.Command("clear", "Clear the queue and playlist")
	watchCmd = app.Command("watch", "Stream player notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	client := playerapi.NewClient(
		http.DefaultClient,
		*server,
		connect.WithInterceptors(apiconnect.NewControlTokenClientInterceptor(*token)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	empty := func() *connect.Request[playerapi.Empty] {
		return connect.NewRequest(&playerapi.Empty{})
	}

	switch command {
	case statusCmd.FullCommand():
		printState(call(client.GetState(ctx, empty())))
	case playCmd.FullCommand():
		req := &playerapi.PlayTrackRequest{Index: *playIndex}
		if *playTracks != "" {
			req.Tracks = readTracks(*playTracks)
		}
		printState(call(client.PlayTrack(ctx, connect.NewRequest(req))))
	case toggleCmd.FullCommand():
		printState(call(client.TogglePlay(ctx, empty())))
	case resumeCmd.FullCommand():
		printState(call(client.Resume(ctx, empty())))
	case seekCmd.FullCommand():
		printState(call(client.Seek(ctx, connect.NewRequest(&playerapi.SeekRequest{Seconds: *seekSeconds}))))
	case volumeCmd.FullCommand():
		printState(call(client.SetVolume(ctx, connect.NewRequest(&playerapi.SetVolumeRequest{Level: *volumeLevel}))))
	case nextCmd.FullCommand():
		printState(call(client.ChangeTrack(ctx, connect.NewRequest(&playerapi.ChangeTrackRequest{Direction: "next"}))))
	case prevCmd.FullCommand():
		printState(call(client.ChangeTrack(ctx, connect.NewRequest(&playerapi.ChangeTrackRequest{Direction: "prev"}))))
	case jumpCmd.FullCommand():
		printState(call(client.JumpTo(ctx, connect.NewRequest(&playerapi.JumpToRequest{Index: *jumpIndex}))))
	case repeatCmd.FullCommand():
		fmt.Printf("Repeat: %v\n", call(client.ToggleRepeat(ctx, empty())).Value)
	case shuffleCmd.FullCommand():
		fmt.Printf("Shuffle: %v\n", call(client.ToggleRandom(ctx, empty())).Value)
	case queueCmd.FullCommand():
		printQueue(call(client.UpdateQueue(ctx, connect.NewRequest(&playerapi.TracksRequest{Tracks: readTracks(*queueFile)}))))
	case playlistCmd.FullCommand():
		printQueue(call(client.UpdatePlaylist(ctx, connect.NewRequest(&playerapi.TracksRequest{Tracks: readTracks(*playlistArg)}))))
	case addCmd.FullCommand():
		printQueue(call(client.AddToQueue(ctx, connect.NewRequest(&playerapi.TracksRequest{Tracks: readTracks(*addFile)}))))
	case loadPlaylistCmd.FullCommand():
		printState(call(client.LoadPlaylist(ctx, connect.NewRequest(&playerapi.LoadPlaylistRequest{
			PlaylistID: *loadPlaylistID,
			Index:      *loadPlaylistIndex,
		}))))
	case loadMediaCmd.FullCommand():
		printState(call(client.LoadMedia(ctx, connect.NewRequest(&playerapi.LoadMediaRequest{Index: *loadMediaIndex}))))
	case loadTrackCmd.FullCommand():
		printState(call(client.LoadTrack(ctx, connect.NewRequest(&playerapi.LoadTrackRequest{MediaID: *loadTrackID}))))
	case enqueueCmd.FullCommand():
		printQueue(call(client.EnqueuePlaylist(ctx, connect.NewRequest(&playerapi.EnqueuePlaylistRequest{PlaylistID: *enqueueID}))))
	case clearCmd.FullCommand():
		printState(call(client.Clear(ctx, empty())))
	case watchCmd.FullCommand():
		watch(ctx, client)
	}
}

// call unwraps a response or exits on error.
func call[T any](resp *connect.Response[T], err error) *T {
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	return resp.Msg
}

func readTracks(path string) []playerapi.Track {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	var tracks []playerapi.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		fmt.Printf("Error: invalid tracks file %s: %v\n", path, err)
		os.Exit(1)
	}
	return tracks
}

func printState(resp *playerapi.StateResponse) {
	s := resp.State
	fmt.Println("\n=== PLAYER STATE ===")
	fmt.Printf("State: %s (playing: %v, audible: %v)\n", s.State, s.IsPlaying, s.Audible)
	fmt.Printf("Queue: %d tracks, playlist: %d tracks\n", len(s.Queue), len(s.Playlist))
	fmt.Printf("Volume: %.2f  Repeat: %v  Shuffle: %v\n", s.Volume, s.IsRepeat, s.IsRandom)
	if src := s.Source; src != nil {
		fmt.Printf("Source: %s", src.Kind)
		if src.Name != "" {
			fmt.Printf(" %q", src.Name)
		}
		fmt.Printf(" (%d tracks, %s)\n", src.Tracks, time.Duration(src.TotalSeconds*float64(time.Second)).Round(time.Second))
	}

	if s.CurrentTrack != nil {
		fmt.Printf("\nCurrent Track [%d]:\n", s.CurrentTrackIndex)
		fmt.Printf("  ID: %d\n", s.CurrentTrack.ID)
		fmt.Printf("  Title: %s\n", s.CurrentTrack.Title)
		fmt.Printf("  Artist: %s\n", s.CurrentTrack.Artist)
		fmt.Printf("  Source: %s\n", s.CurrentTrack.AudioSource)
		fmt.Printf("  Position: %.1f / %.1f seconds\n", s.CurrentTime, s.Duration)
	} else {
		fmt.Println("\nNo track selected")
	}
	if s.LastError != "" {
		fmt.Printf("\nLast error: %s\n", s.LastError)
	}
	fmt.Println()
}

func printQueue(resp *playerapi.QueueResponse) {
	fmt.Printf("Added: %d\n", resp.Added)
	for _, r := range resp.Rejections {
		fmt.Printf("  Rejected %d (%s): %s [%s]\n", r.Track.ID, r.Track.Title, r.Message, r.Code)
	}
	printState(&playerapi.StateResponse{State: resp.State})
}

func watch(ctx context.Context, client *playerapi.Client) {
	stream, err := client.Subscribe(ctx, connect.NewRequest(&playerapi.SubscribeRequest{}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer stream.Close()

	for stream.Receive() {
		n := stream.Msg()
		switch n.Type {
		case playerapi.NotificationInitialState:
			printState(&playerapi.StateResponse{State: *n.State})
		case playerapi.NotificationEvent:
			e := n.Event
			line := fmt.Sprintf("[%d] %s index=%d state=%s", n.SequenceNo, e.Type, e.Index, e.State)
			if e.Track != nil {
				line += fmt.Sprintf(" track=%q", e.Track.Title)
			}
			if e.Error != "" {
				line += " error=" + e.Error
			}
			fmt.Println(line)
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
