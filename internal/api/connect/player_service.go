package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/melodybox/internal/api/playerapi"
	"github.com/osa030/melodybox/internal/app/filter"
	"github.com/osa030/melodybox/internal/app/playback"
	"github.com/osa030/melodybox/internal/app/session"
	"github.com/osa030/melodybox/internal/infra/audio"
	"github.com/osa030/melodybox/internal/infra/config"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	session *session.Manager
	config  *config.Config
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(session *session.Manager, cfg *config.Config) *PlayerService {
	return &PlayerService{
		session: session,
		config:  cfg,
	}
}

// Ensure PlayerService implements the interface.
var _ playerapi.PlayerServiceHandler = (*PlayerService)(nil)

// Every control call stands for a user action, so it may start playback
// under an autoplay policy.
func gesture(ctx context.Context) context.Context {
	return audio.WithUserGesture(ctx)
}

func (s *PlayerService) state() *connect.Response[playerapi.StateResponse] {
	return connect.NewResponse(&playerapi.StateResponse{
		State: s.session.State(),
	})
}

func (s *PlayerService) queueResponse(added int, rejected []filter.Rejection) *connect.Response[playerapi.QueueResponse] {
	return connect.NewResponse(&playerapi.QueueResponse{
		Added:      added,
		Rejections: session.RejectionsToAPI(rejected, s.config.GetMessage),
		State:      s.session.State(),
	})
}

// GetState returns the current player state.
func (s *PlayerService) GetState(
	ctx context.Context,
	req *connect.Request[playerapi.Empty],
) (*connect.Response[playerapi.StateResponse], error) {
	return s.state(), nil
}

// PlayTrack plays a queue entry, replacing the queue when tracks are given.
func (s *PlayerService) PlayTrack(
	ctx context.Context,
	req *connect.Request[playerapi.PlayTrackRequest],
) (*connect.Response[playerapi.StateResponse], error) {
	var err error
	if len(req.Msg.Tracks) > 0 {
		err = s.session.PlayTracks(gesture(ctx), req.Msg.Index, session.TracksFromAPI(req.Msg.Tracks))
	} else {
		err = s.session.Store().PlayTrack(gesture(ctx), req.Msg.Index)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *PlayerService) TogglePlay(
	ctx context.Context,
	req *connect.Request[playerapi.Empty],
) (*connect.Response[playerapi.StateResponse], error) {
	if err := s.session.Store().TogglePlay(gesture(ctx)); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// Resume starts playback when the restored state says the player was playing.
func (s *PlayerService) Resume(
	ctx context.Context,
	req *connect.Request[playerapi.Empty],
) (*connect.Response[playerapi.StateResponse], error) {
	if err := s.session.Store().Resume(gesture(ctx)); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[playerapi.SeekRequest],
) (*connect.Response[playerapi.StateResponse], error) {
	if err := s.session.Store().SeekTime(req.Msg.Seconds); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *PlayerService) SetVolume(
	ctx context.Context,
	req *connect.Request[playerapi.SetVolumeRequest],
) (*connect.Response[playerapi.StateResponse], error) {
	if err := s.session.Store().HandleVolumeChange(req.Msg.Level); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// ChangeTrack moves to the next or previous track.
func (s *PlayerService) ChangeTrack(
	ctx context.Context,
	req *connect.Request[playerapi.ChangeTrackRequest],
) (*connect.Response[playerapi.StateResponse], error) {
	dir, ok := playback.ParseDirection(req.Msg.Direction)
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			errors.Newf("unknown direction %q", req.Msg.Direction))
	}
	if err := s.session.Store().ChangeTrack(gesture(ctx), dir); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *PlayerService) JumpTo(
	ctx context.Context,
	req *connect.Request[playerapi.JumpToRequest],
) (*connect.Response[playerapi.StateResponse], error) {
	if err := s.session.Store().JumpTo(gesture(ctx), req.Msg.Index); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *PlayerService) ToggleRepeat(
	ctx context.Context,
	req *connect.Request[playerapi.Empty],
) (*connect.Response[playerapi.ToggleResponse], error) {
	return connect.NewResponse(&playerapi.ToggleResponse{
		Value: s.session.Store().ToggleRepeat(),
	}), nil
}

func (s *PlayerService) ToggleRandom(
	ctx context.Context,
	req *connect.Request[playerapi.Empty],
) (*connect.Response[playerapi.ToggleResponse], error) {
	return connect.NewResponse(&playerapi.ToggleResponse{
		Value: s.session.Store().ToggleRandom(),
	}), nil
}

// UpdateQueue replaces the queue and keeps the playlist.
func (s *PlayerService) UpdateQueue(
	ctx context.Context,
	req *connect.Request[playerapi.TracksRequest],
) (*connect.Response[playerapi.QueueResponse], error) {
	n, rejected, err := s.session.Store().UpdateQueue(gesture(ctx), session.TracksFromAPI(req.Msg.Tracks))
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.queueResponse(n, rejected), nil
}

// UpdatePlaylist replaces both the playlist and the queue.
func (s *PlayerService) UpdatePlaylist(
	ctx context.Context,
	req *connect.Request[playerapi.TracksRequest],
) (*connect.Response[playerapi.QueueResponse], error) {
	n, rejected, err := s.session.UpdatePlaylist(gesture(ctx), session.TracksFromAPI(req.Msg.Tracks))
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.queueResponse(n, rejected), nil
}

// AddToQueue appends tracks that are not queued yet.
func (s *PlayerService) AddToQueue(
	ctx context.Context,
	req *connect.Request[playerapi.TracksRequest],
) (*connect.Response[playerapi.QueueResponse], error) {
	added, rejected, err := s.session.Store().AddToQueue(gesture(ctx), session.TracksFromAPI(req.Msg.Tracks))
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.queueResponse(added, rejected), nil
}

func (s *PlayerService) LoadPlaylist(
	ctx context.Context,
	req *connect.Request[playerapi.LoadPlaylistRequest],
) (*connect.Response[playerapi.StateResponse], error) {
	if err := s.session.LoadPlaylist(gesture(ctx), req.Msg.PlaylistID, req.Msg.Index); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *PlayerService) LoadMedia(
	ctx context.Context,
	req *connect.Request[playerapi.LoadMediaRequest],
) (*connect.Response[playerapi.StateResponse], error) {
	if err := s.session.LoadMedia(gesture(ctx), req.Msg.Index); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// LoadTrack plays a single catalog media record.
func (s *PlayerService) LoadTrack(
	ctx context.Context,
	req *connect.Request[playerapi.LoadTrackRequest],
) (*connect.Response[playerapi.StateResponse], error) {
	if err := s.session.LoadTrack(gesture(ctx), req.Msg.MediaID); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

func (s *PlayerService) EnqueuePlaylist(
	ctx context.Context,
	req *connect.Request[playerapi.EnqueuePlaylistRequest],
) (*connect.Response[playerapi.QueueResponse], error) {
	added, rejected, err := s.session.EnqueuePlaylist(gesture(ctx), req.Msg.PlaylistID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return s.queueResponse(added, rejected), nil
}

func (s *PlayerService) Clear(
	ctx context.Context,
	req *connect.Request[playerapi.Empty],
) (*connect.Response[playerapi.StateResponse], error) {
	if err := s.session.Clear(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return s.state(), nil
}

// ReportOutputEvent accepts an event from a UI acting as the audio output.
func (s *PlayerService) ReportOutputEvent(
	ctx context.Context,
	req *connect.Request[playerapi.OutputEvent],
) (*connect.Response[playerapi.Empty], error) {
	e, err := outputEventFromAPI(req.Msg)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := s.session.ReportOutputEvent(ctx, e); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&playerapi.Empty{}), nil
}

func outputEventFromAPI(msg *playerapi.OutputEvent) (audio.Event, error) {
	t, ok := audio.ParseEventType(msg.Type)
	if !ok {
		return audio.Event{}, errors.Newf("unknown output event type %q", msg.Type)
	}
	e := audio.Event{
		Type:     t,
		Source:   msg.Source,
		Position: msg.Position,
		Duration: msg.Duration,
	}
	if t == audio.EventError {
		switch {
		case msg.Autoplay:
			e.Err = audio.ErrAutoplayBlocked
		case msg.Error != "":
			e.Err = errors.New(msg.Error)
		default:
			e.Err = errors.New("media error")
		}
	}
	return e, nil
}

// Subscribe streams the initial state followed by store events. With
// Output set, the stream also carries commands for a remote audio output.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[playerapi.SubscribeRequest],
	stream *connect.ServerStream[playerapi.Notification],
) error {
	notifManager := s.session.GetNotificationManager()
	adapter := &notificationStreamAdapter{stream: stream}

	var commands <-chan audio.Command
	if req.Msg.Output {
		remote := s.session.Remote()
		if remote == nil {
			return connect.NewError(connect.CodeFailedPrecondition, session.ErrNotRemote)
		}
		var listenerID string
		listenerID, commands = remote.Attach()
		defer remote.Detach(listenerID)
	}

	subscriptionID := notifManager.Subscribe(adapter, func() *playerapi.Notification {
		state := s.session.State()
		return &playerapi.Notification{
			Type:  playerapi.NotificationInitialState,
			State: &state,
		}
	})
	defer notifManager.Unsubscribe(subscriptionID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.session.Done():
			return nil
		case cmd, ok := <-commands:
			if !ok {
				return nil
			}
			// Commands share the subscriber's queue so sequence numbers
			// stay in delivery order across message types.
			if err := notifManager.Send(subscriptionID, &playerapi.Notification{
				Type:    playerapi.NotificationCommand,
				Command: session.CommandToAPI(cmd),
			}); err != nil {
				zlog.Warn().Msgf("connect: ending output stream: %v", err)
				return connect.NewError(connect.CodeUnavailable, err)
			}
		}
	}
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
type notificationStreamAdapter struct {
	stream *connect.ServerStream[playerapi.Notification]
}

func (a *notificationStreamAdapter) Send(notification *playerapi.Notification) error {
	return a.stream.Send(notification)
}
