// Package session coordinates live playlist sessions: it binds each
// connection to a (room, username) pair, routes that connection's
// actions into the room store, and decides which room-wide broadcasts
// follow each mutation.
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/collab-playlist-system/internal/roomstore"
	"github.com/collab-playlist-system/pkg/models"
)

// Broadcaster pushes room-wide updates to every connection currently in
// a room. The fan-out set is whatever the transport has recorded at
// broadcast time; late joiners only see the next broadcast.
type Broadcaster interface {
	BroadcastUserList(room string, users []string)
	BroadcastMusicList(room string, tracks []models.Track)
}

// Coordinator wires the room store to a transport's broadcaster and an
// event sink. One coordinator serves the whole process.
type Coordinator struct {
	store *roomstore.Store
	bcast Broadcaster
	sink  EventSink
	log   zerolog.Logger
}

func NewCoordinator(store *roomstore.Store, bcast Broadcaster, sink EventSink, log zerolog.Logger) *Coordinator {
	if sink == nil {
		sink = NopSink{}
	}
	return &Coordinator{store: store, bcast: bcast, sink: sink, log: log}
}

// Session is one connection's standing in a room for the lifetime of
// that connection.
type Session struct {
	coord    *Coordinator
	Room     string
	Username string
}

// CreateRoom makes a new room hosted by username and returns its code.
// The caller is expected to register the connection for the room's
// broadcasts and then Bind.
func (c *Coordinator) CreateRoom(ctx context.Context, username string) string {
	code := c.store.CreateRoom(username)
	c.emit(ctx, Event{Type: EventRoomCreated, Room: code, Username: username})
	return code
}

// Join adds username to the room's membership.
func (c *Coordinator) Join(ctx context.Context, room, username string) error {
	if err := c.store.AddMember(room, username); err != nil {
		return err
	}
	c.emit(ctx, Event{Type: EventUserJoined, Room: room, Username: username})
	return nil
}

// RemoveRoom tears the room down. Connections still in it will get
// RoomNotFound on their next action.
func (c *Coordinator) RemoveRoom(ctx context.Context, room string) error {
	if err := c.store.RemoveRoom(room); err != nil {
		return err
	}
	c.emit(ctx, Event{Type: EventRoomRemoved, Room: room})
	return nil
}

// Bind starts a session for a connection already registered in the
// room's broadcast group and pushes the current member and track lists
// to the whole room. If the room vanished between join and bind, the
// bind is refused; no error is ever broadcast in place of a list.
func (c *Coordinator) Bind(room, username string) (*Session, error) {
	users, err := c.store.Members(room)
	if err != nil {
		return nil, err
	}
	tracks, err := c.store.Tracks(room)
	if err != nil {
		return nil, err
	}
	c.bcast.BroadcastUserList(room, users)
	c.bcast.BroadcastMusicList(room, tracks)
	return &Session{coord: c, Room: room, Username: username}, nil
}

// AddTrack submits a track on behalf of the session's user. On success
// the refreshed queue is broadcast to the room and returned for the
// requester's reply; on failure only the requester hears about it.
func (s *Session) AddTrack(ctx context.Context, torrentLink, musicName string) ([]models.Track, error) {
	id, err := s.coord.store.AddTrack(s.Room, torrentLink, musicName, s.Username)
	if err != nil {
		return nil, err
	}
	s.coord.emit(ctx, Event{
		Type: EventTrackAdded, Room: s.Room, Username: s.Username,
		TrackID: id, TrackName: musicName,
	})
	return s.coord.broadcastTracks(s.Room)
}

// RemoveTrack drops a track from the queue. Removal is idempotent, so
// the refreshed queue is broadcast whether or not anything was removed.
func (s *Session) RemoveTrack(ctx context.Context, trackID int) ([]models.Track, error) {
	if err := s.coord.store.RemoveTrack(s.Room, trackID); err != nil {
		return nil, err
	}
	s.coord.emit(ctx, Event{
		Type: EventTrackRemoved, Room: s.Room, Username: s.Username, TrackID: trackID,
	})
	return s.coord.broadcastTracks(s.Room)
}

// Upvote records an upvote by the session's user and broadcasts the
// re-ranked queue.
func (s *Session) Upvote(ctx context.Context, trackID int) ([]models.Track, error) {
	return s.vote(ctx, trackID, s.coord.store.Upvote)
}

// Downvote is the mirror of Upvote.
func (s *Session) Downvote(ctx context.Context, trackID int) ([]models.Track, error) {
	return s.vote(ctx, trackID, s.coord.store.Downvote)
}

func (s *Session) vote(ctx context.Context, trackID int, cast func(string, int, string) error) ([]models.Track, error) {
	if err := cast(s.Room, trackID, s.Username); err != nil {
		return nil, err
	}
	count, err := s.coord.store.VoteCount(s.Room, trackID)
	if err == nil {
		s.coord.emit(ctx, Event{
			Type: EventTrackVoted, Room: s.Room, Username: s.Username,
			TrackID: trackID, VoteCount: count,
		})
	}
	return s.coord.broadcastTracks(s.Room)
}

// ListTracks returns the current queue to the requester only.
func (s *Session) ListTracks() ([]models.Track, error) {
	return s.coord.store.Tracks(s.Room)
}

// Leave ends the session: the user is removed from the room, their
// submitted tracks cascade out of the queue, and the remaining members
// get refreshed member and track lists. Transports call this when the
// underlying connection drops.
func (s *Session) Leave(ctx context.Context) {
	if err := s.coord.store.RemoveMember(s.Room, s.Username); err != nil {
		// Room already gone; nobody left to notify.
		s.coord.log.Debug().Err(err).Str("room", s.Room).Str("user", s.Username).
			Msg("leave after room removal")
		return
	}
	s.coord.emit(ctx, Event{Type: EventUserLeft, Room: s.Room, Username: s.Username})

	users, err := s.coord.store.Members(s.Room)
	if err != nil {
		return
	}
	s.coord.bcast.BroadcastUserList(s.Room, users)
	s.coord.broadcastTracks(s.Room)
}

func (c *Coordinator) broadcastTracks(room string) ([]models.Track, error) {
	tracks, err := c.store.Tracks(room)
	if err != nil {
		return nil, err
	}
	c.bcast.BroadcastMusicList(room, tracks)
	return tracks, nil
}

func (c *Coordinator) emit(ctx context.Context, event Event) {
	event.Timestamp = time.Now()
	if err := c.sink.Publish(ctx, event); err != nil {
		c.log.Warn().Err(err).Str("event", string(event.Type)).Str("room", event.Room).
			Msg("failed to publish event")
	}
}
