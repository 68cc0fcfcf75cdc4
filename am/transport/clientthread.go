// Package transport implements the shim between the core's single
// reactor loop and client application processes (spec.md §6): a
// per-connection ClientThread for outbound schedule calls, and a
// Dispatcher that the lifecycle drivers address by EndpointToken.
package transport

import "github.com/open-vela/amd/am/structs"

// ClientThread is the outbound call surface of one connected client
// process (spec.md §6's "outbound client methods"), already bound to a
// single endpoint — unlike the lifecycle package's ActivityClient/
// ServiceClient interfaces, these methods carry no endpoint parameter.
type ClientThread interface {
	ScheduleLaunchActivity(act *structs.ActivityRecord) error
	ScheduleStartActivity(token structs.Token) error
	ScheduleResumeActivity(token structs.Token, intent *structs.Intent) error
	SchedulePauseActivity(token structs.Token) error
	ScheduleStopActivity(token structs.Token) error
	ScheduleDestroyActivity(token structs.Token) error
	OnActivityResult(token structs.Token, requestCode int32, resultCode int32, data *structs.Intent) error

	ScheduleStartService(svc *structs.ServiceRecord, intent *structs.Intent) error
	ScheduleStopService(token structs.Token) error
	ScheduleBindService(svc *structs.ServiceRecord, conn structs.Connection, intent *structs.Intent) error
	ScheduleUnbindService(conn structs.Connection) error

	ScheduleReceiveIntent(token structs.Token, intent *structs.Intent) error
	SetForegroundApplication(foreground bool) error
	TerminateApplication() error
}
