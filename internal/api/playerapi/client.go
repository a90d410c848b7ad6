package playerapi

import (
	"context"
	"strings"

	"connectrpc.com/connect"
)

// Client calls the player service.
type Client struct {
	getState          *connect.Client[Empty, StateResponse]
	playTrack         *connect.Client[PlayTrackRequest, StateResponse]
	togglePlay        *connect.Client[Empty, StateResponse]
	resume            *connect.Client[Empty, StateResponse]
	seek              *connect.Client[SeekRequest, StateResponse]
	setVolume         *connect.Client[SetVolumeRequest, StateResponse]
	changeTrack       *connect.Client[ChangeTrackRequest, StateResponse]
	jumpTo            *connect.Client[JumpToRequest, StateResponse]
	toggleRepeat      *connect.Client[Empty, ToggleResponse]
	toggleRandom      *connect.Client[Empty, ToggleResponse]
	updateQueue       *connect.Client[TracksRequest, QueueResponse]
	updatePlaylist    *connect.Client[TracksRequest, QueueResponse]
	addToQueue        *connect.Client[TracksRequest, QueueResponse]
	loadPlaylist      *connect.Client[LoadPlaylistRequest, StateResponse]
	loadMedia         *connect.Client[LoadMediaRequest, StateResponse]
	loadTrack         *connect.Client[LoadTrackRequest, StateResponse]
	enqueuePlaylist   *connect.Client[EnqueuePlaylistRequest, QueueResponse]
	clear             *connect.Client[Empty, StateResponse]
	reportOutputEvent *connect.Client[OutputEvent, Empty]
	subscribe         *connect.Client[SubscribeRequest, Notification]
}

// NewClient creates a client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &Client{
		getState:          connect.NewClient[Empty, StateResponse](httpClient, baseURL+GetStateProcedure, opts...),
		playTrack:         connect.NewClient[PlayTrackRequest, StateResponse](httpClient, baseURL+PlayTrackProcedure, opts...),
		togglePlay:        connect.NewClient[Empty, StateResponse](httpClient, baseURL+TogglePlayProcedure, opts...),
		resume:            connect.NewClient[Empty, StateResponse](httpClient, baseURL+ResumeProcedure, opts...),
		seek:              connect.NewClient[SeekRequest, StateResponse](httpClient, baseURL+SeekProcedure, opts...),
		setVolume:         connect.NewClient[SetVolumeRequest, StateResponse](httpClient, baseURL+SetVolumeProcedure, opts...),
		changeTrack:       connect.NewClient[ChangeTrackRequest, StateResponse](httpClient, baseURL+ChangeTrackProcedure, opts...),
		jumpTo:            connect.NewClient[JumpToRequest, StateResponse](httpClient, baseURL+JumpToProcedure, opts...),
		toggleRepeat:      connect.NewClient[Empty, ToggleResponse](httpClient, baseURL+ToggleRepeatProcedure, opts...),
		toggleRandom:      connect.NewClient[Empty, ToggleResponse](httpClient, baseURL+ToggleRandomProcedure, opts...),
		updateQueue:       connect.NewClient[TracksRequest, QueueResponse](httpClient, baseURL+UpdateQueueProcedure, opts...),
		updatePlaylist:    connect.NewClient[TracksRequest, QueueResponse](httpClient, baseURL+UpdatePlaylistProcedure, opts...),
		addToQueue:        connect.NewClient[TracksRequest, QueueResponse](httpClient, baseURL+AddToQueueProcedure, opts...),
		loadPlaylist:      connect.NewClient[LoadPlaylistRequest, StateResponse](httpClient, baseURL+LoadPlaylistProcedure, opts...),
		loadMedia:         connect.NewClient[LoadMediaRequest, StateResponse](httpClient, baseURL+LoadMediaProcedure, opts...),
		loadTrack:         connect.NewClient[LoadTrackRequest, StateResponse](httpClient, baseURL+LoadTrackProcedure, opts...),
		enqueuePlaylist:   connect.NewClient[EnqueuePlaylistRequest, QueueResponse](httpClient, baseURL+EnqueuePlaylistProcedure, opts...),
		clear:             connect.NewClient[Empty, StateResponse](httpClient, baseURL+ClearProcedure, opts...),
		reportOutputEvent: connect.NewClient[OutputEvent, Empty](httpClient, baseURL+ReportOutputEventProcedure, opts...),
		subscribe:         connect.NewClient[SubscribeRequest, Notification](httpClient, baseURL+SubscribeProcedure, opts...),
	}
}

func (c *Client) GetState(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	return c.getState.CallUnary(ctx, req)
}

func (c *Client) PlayTrack(ctx context.Context, req *connect.Request[PlayTrackRequest]) (*connect.Response[StateResponse], error) {
	return c.playTrack.CallUnary(ctx, req)
}

func (c *Client) TogglePlay(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	return c.togglePlay.CallUnary(ctx, req)
}

func (c *Client) Resume(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	return c.resume.CallUnary(ctx, req)
}

func (c *Client) Seek(ctx context.Context, req *connect.Request[SeekRequest]) (*connect.Response[StateResponse], error) {
	return c.seek.CallUnary(ctx, req)
}

func (c *Client) SetVolume(ctx context.Context, req *connect.Request[SetVolumeRequest]) (*connect.Response[StateResponse], error) {
	return c.setVolume.CallUnary(ctx, req)
}

func (c *Client) ChangeTrack(ctx context.Context, req *connect.Request[ChangeTrackRequest]) (*connect.Response[StateResponse], error) {
	return c.changeTrack.CallUnary(ctx, req)
}

func (c *Client) JumpTo(ctx context.Context, req *connect.Request[JumpToRequest]) (*connect.Response[StateResponse], error) {
	return c.jumpTo.CallUnary(ctx, req)
}

func (c *Client) ToggleRepeat(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ToggleResponse], error) {
	return c.toggleRepeat.CallUnary(ctx, req)
}

func (c *Client) ToggleRandom(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ToggleResponse], error) {
	return c.toggleRandom.CallUnary(ctx, req)
}

func (c *Client) UpdateQueue(ctx context.Context, req *connect.Request[TracksRequest]) (*connect.Response[QueueResponse], error) {
	return c.updateQueue.CallUnary(ctx, req)
}

func (c *Client) UpdatePlaylist(ctx context.Context, req *connect.Request[TracksRequest]) (*connect.Response[QueueResponse], error) {
	return c.updatePlaylist.CallUnary(ctx, req)
}

func (c *Client) AddToQueue(ctx context.Context, req *connect.Request[TracksRequest]) (*connect.Response[QueueResponse], error) {
	return c.addToQueue.CallUnary(ctx, req)
}

func (c *Client) LoadPlaylist(ctx context.Context, req *connect.Request[LoadPlaylistRequest]) (*connect.Response[StateResponse], error) {
	return c.loadPlaylist.CallUnary(ctx, req)
}

func (c *Client) LoadMedia(ctx context.Context, req *connect.Request[LoadMediaRequest]) (*connect.Response[StateResponse], error) {
	return c.loadMedia.CallUnary(ctx, req)
}

func (c *Client) LoadTrack(ctx context.Context, req *connect.Request[LoadTrackRequest]) (*connect.Response[StateResponse], error) {
	return c.loadTrack.CallUnary(ctx, req)
}

func (c *Client) EnqueuePlaylist(ctx context.Context, req *connect.Request[EnqueuePlaylistRequest]) (*connect.Response[QueueResponse], error) {
	return c.enqueuePlaylist.CallUnary(ctx, req)
}

func (c *Client) Clear(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[StateResponse], error) {
	return c.clear.CallUnary(ctx, req)
}

func (c *Client) ReportOutputEvent(ctx context.Context, req *connect.Request[OutputEvent]) (*connect.Response[Empty], error) {
	return c.reportOutputEvent.CallUnary(ctx, req)
}

func (c *Client) Subscribe(ctx context.Context, req *connect.Request[SubscribeRequest]) (*connect.ServerStreamForClient[Notification], error) {
	return c.subscribe.CallServerStream(ctx, req)
}
