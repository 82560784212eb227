package roomstore

import "errors"

var (
	ErrRoomNotFound   = errors.New("room does not exist")
	ErrMemberNotFound = errors.New("user does not exist in the room")
	ErrMemberExists   = errors.New("user already exists in the room")
	ErrTrackNotFound  = errors.New("track does not exist in the room's queue")
	ErrInvalidSource  = errors.New("invalid track source")
	ErrInvalidName    = errors.New("invalid track name")
	ErrAlreadyVoted   = errors.New("already voted")
)
