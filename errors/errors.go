package errors

import "fmt"

// Room operation failures. The message text is surfaced verbatim to the
// requester, so the wording is part of the protocol.
var (
	ErrTitleRequired    = fmt.Errorf("title required")
	ErrRoomExists       = fmt.Errorf("room exists")
	ErrRoomFull         = fmt.Errorf("room full")
	ErrRoomNotFound     = fmt.Errorf("room not found")
	ErrRoomNotEmpty     = fmt.Errorf("must be empty to delete")
	ErrDeleteMainRoom   = fmt.Errorf("Cannot delete the main room")
	ErrTargetNotFound   = fmt.Errorf("target not found")
	ErrHandlerPanic     = fmt.Errorf("handler panic")
	ErrStoreUnavailable = fmt.Errorf("durability backend unavailable")
)
