package session

import (
	"context"
	"time"
)

type EventType string

const (
	EventRoomCreated  EventType = "room_created"
	EventRoomRemoved  EventType = "room_removed"
	EventUserJoined   EventType = "user_joined"
	EventUserLeft     EventType = "user_left"
	EventTrackAdded   EventType = "track_added"
	EventTrackRemoved EventType = "track_removed"
	EventTrackVoted   EventType = "track_voted"
)

// Event describes a committed room mutation, for side-channel consumers
// (event bus, audit trail). Events are advisory: they are emitted after
// the store has changed and failures to deliver them are logged, never
// surfaced to clients.
type Event struct {
	Type      EventType `json:"type"`
	Room      string    `json:"room"`
	Username  string    `json:"username,omitempty"`
	TrackID   int       `json:"track_id,omitempty"`
	TrackName string    `json:"track_name,omitempty"`
	VoteCount int       `json:"vote_count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink consumes room events. Implementations must be safe for
// concurrent use.
type EventSink interface {
	Publish(ctx context.Context, event Event) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Publish(context.Context, Event) error { return nil }

// MultiSink fans events out to several sinks, returning the first error
// after attempting all of them.
type MultiSink []EventSink

func (m MultiSink) Publish(ctx context.Context, event Event) error {
	var firstErr error
	for _, sink := range m {
		if err := sink.Publish(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
