package playerapi

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// PlayerServiceHandler is implemented by the player service.
type PlayerServiceHandler interface {
	GetState(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	PlayTrack(context.Context, *connect.Request[PlayTrackRequest]) (*connect.Response[StateResponse], error)
	TogglePlay(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	Resume(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	Seek(context.Context, *connect.Request[SeekRequest]) (*connect.Response[StateResponse], error)
	SetVolume(context.Context, *connect.Request[SetVolumeRequest]) (*connect.Response[StateResponse], error)
	ChangeTrack(context.Context, *connect.Request[ChangeTrackRequest]) (*connect.Response[StateResponse], error)
	JumpTo(context.Context, *connect.Request[JumpToRequest]) (*connect.Response[StateResponse], error)
	ToggleRepeat(context.Context, *connect.Request[Empty]) (*connect.Response[ToggleResponse], error)
	ToggleRandom(context.Context, *connect.Request[Empty]) (*connect.Response[ToggleResponse], error)
	UpdateQueue(context.Context, *connect.Request[TracksRequest]) (*connect.Response[QueueResponse], error)
	UpdatePlaylist(context.Context, *connect.Request[TracksRequest]) (*connect.Response[QueueResponse], error)
	AddToQueue(context.Context, *connect.Request[TracksRequest]) (*connect.Response[QueueResponse], error)
	LoadPlaylist(context.Context, *connect.Request[LoadPlaylistRequest]) (*connect.Response[StateResponse], error)
	LoadMedia(context.Context, *connect.Request[LoadMediaRequest]) (*connect.Response[StateResponse], error)
	LoadTrack(context.Context, *connect.Request[LoadTrackRequest]) (*connect.Response[StateResponse], error)
	EnqueuePlaylist(context.Context, *connect.Request[EnqueuePlaylistRequest]) (*connect.Response[QueueResponse], error)
	Clear(context.Context, *connect.Request[Empty]) (*connect.Response[StateResponse], error)
	ReportOutputEvent(context.Context, *connect.Request[OutputEvent]) (*connect.Response[Empty], error)
	Subscribe(context.Context, *connect.Request[SubscribeRequest], *connect.ServerStream[Notification]) error
}

// NewPlayerServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler.
func NewPlayerServiceHandler(svc PlayerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetStateProcedure, connect.NewUnaryHandler(GetStateProcedure, svc.GetState, opts...))
	mux.Handle(PlayTrackProcedure, connect.NewUnaryHandler(PlayTrackProcedure, svc.PlayTrack, opts...))
	mux.Handle(TogglePlayProcedure, connect.NewUnaryHandler(TogglePlayProcedure, svc.TogglePlay, opts...))
	mux.Handle(ResumeProcedure, connect.NewUnaryHandler(ResumeProcedure, svc.Resume, opts...))
	mux.Handle(SeekProcedure, connect.NewUnaryHandler(SeekProcedure, svc.Seek, opts...))
	mux.Handle(SetVolumeProcedure, connect.NewUnaryHandler(SetVolumeProcedure, svc.SetVolume, opts...))
	mux.Handle(ChangeTrackProcedure, connect.NewUnaryHandler(ChangeTrackProcedure, svc.ChangeTrack, opts...))
	mux.Handle(JumpToProcedure, connect.NewUnaryHandler(JumpToProcedure, svc.JumpTo, opts...))
	mux.Handle(ToggleRepeatProcedure, connect.NewUnaryHandler(ToggleRepeatProcedure, svc.ToggleRepeat, opts...))
	mux.Handle(ToggleRandomProcedure, connect.NewUnaryHandler(ToggleRandomProcedure, svc.ToggleRandom, opts...))
	mux.Handle(UpdateQueueProcedure, connect.NewUnaryHandler(UpdateQueueProcedure, svc.UpdateQueue, opts...))
	mux.Handle(UpdatePlaylistProcedure, connect.NewUnaryHandler(UpdatePlaylistProcedure, svc.UpdatePlaylist, opts...))
	mux.Handle(AddToQueueProcedure, connect.NewUnaryHandler(AddToQueueProcedure, svc.AddToQueue, opts...))
	mux.Handle(LoadPlaylistProcedure, connect.NewUnaryHandler(LoadPlaylistProcedure, svc.LoadPlaylist, opts...))
	mux.Handle(LoadMediaProcedure, connect.NewUnaryHandler(LoadMediaProcedure, svc.LoadMedia, opts...))
	mux.Handle(LoadTrackProcedure, connect.NewUnaryHandler(LoadTrackProcedure, svc.LoadTrack, opts...))
	mux.Handle(EnqueuePlaylistProcedure, connect.NewUnaryHandler(EnqueuePlaylistProcedure, svc.EnqueuePlaylist, opts...))
	mux.Handle(ClearProcedure, connect.NewUnaryHandler(ClearProcedure, svc.Clear, opts...))
	mux.Handle(ReportOutputEventProcedure, connect.NewUnaryHandler(ReportOutputEventProcedure, svc.ReportOutputEvent, opts...))
	mux.Handle(SubscribeProcedure, connect.NewServerStreamHandler(SubscribeProcedure, svc.Subscribe, opts...))

	return "/" + ServiceName + "/", mux
}
