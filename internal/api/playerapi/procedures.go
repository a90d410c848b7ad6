package playerapi

// ServiceName is the fully-qualified name of the player service.
const ServiceName = "melodybox.player.v1.PlayerService"

// Fully-qualified procedure names, usable as HTTP paths.
const (
	GetStateProcedure          = "/" + ServiceName + "/GetState"
	PlayTrackProcedure         = "/" + ServiceName + "/PlayTrack"
	TogglePlayProcedure        = "/" + ServiceName + "/TogglePlay"
	ResumeProcedure            = "/" + ServiceName + "/Resume"
	SeekProcedure              = "/" + ServiceName + "/Seek"
	SetVolumeProcedure         = "/" + ServiceName + "/SetVolume"
	ChangeTrackProcedure       = "/" + ServiceName + "/ChangeTrack"
	JumpToProcedure            = "/" + ServiceName + "/JumpTo"
	ToggleRepeatProcedure      = "/" + ServiceName + "/ToggleRepeat"
	ToggleRandomProcedure      = "/" + ServiceName + "/ToggleRandom"
	UpdateQueueProcedure       = "/" + ServiceName + "/UpdateQueue"
	UpdatePlaylistProcedure    = "/" + ServiceName + "/UpdatePlaylist"
	AddToQueueProcedure        = "/" + ServiceName + "/AddToQueue"
	LoadPlaylistProcedure      = "/" + ServiceName + "/LoadPlaylist"
	LoadMediaProcedure         = "/" + ServiceName + "/LoadMedia"
	LoadTrackProcedure         = "/" + ServiceName + "/LoadTrack"
	EnqueuePlaylistProcedure   = "/" + ServiceName + "/EnqueuePlaylist"
	ClearProcedure             = "/" + ServiceName + "/Clear"
	ReportOutputEventProcedure = "/" + ServiceName + "/ReportOutputEvent"
	SubscribeProcedure         = "/" + ServiceName + "/Subscribe"
)
