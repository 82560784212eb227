// Package roomstore holds all live room, membership, and queue state in
// process memory. It performs no I/O; callers layer transports, caches,
// and event sinks on top of it.
package roomstore

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/collab-playlist-system/pkg/models"
)

const (
	codeLength  = 7
	codeCharset = "abcdefghijklmnopqrstuvwxyz0123456789"
)

type room struct {
	host    string
	members []string
	tracks  []*models.Track
	// nextTrackID is deliberately independent of len(tracks): ids must
	// never be reused after a removal.
	nextTrackID int
}

// Store owns the room table. All mutations and snapshot reads are
// serialized behind a single RWMutex; operations are short in-memory
// state transitions, so one lock is enough.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func New() *Store {
	return &Store{rooms: make(map[string]*room)}
}

// CreateRoom registers a new room hosted by hostUsername, with the host
// as its first member, and returns the generated room code.
func (s *Store) CreateRoom(hostUsername string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := generateRoomCode()
	for {
		if _, taken := s.rooms[code]; !taken {
			break
		}
		code = generateRoomCode()
	}

	s.rooms[code] = &room{
		host:    hostUsername,
		members: []string{hostUsername},
	}
	return code
}

// RemoveRoom deletes the room and everything in it.
func (s *Store) RemoveRoom(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rooms[code]; !ok {
		return fmt.Errorf("remove room %q: %w", code, ErrRoomNotFound)
	}
	delete(s.rooms, code)
	return nil
}

// Host returns the room's host username.
func (s *Store) Host(code string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return "", fmt.Errorf("room %q: %w", code, ErrRoomNotFound)
	}
	return r.host, nil
}

// Members returns the room's member usernames in join order. The slice
// is a copy; callers may mutate it freely.
func (s *Store) Members(code string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", code, ErrRoomNotFound)
	}
	members := make([]string, len(r.members))
	copy(members, r.members)
	return members, nil
}

// Tracks returns the room's queue in rank order as deep copies.
func (s *Store) Tracks(code string) ([]models.Track, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", code, ErrRoomNotFound)
	}
	tracks := make([]models.Track, 0, len(r.tracks))
	for _, t := range r.tracks {
		tracks = append(tracks, t.Clone())
	}
	return tracks, nil
}

// AddMember appends username to the room's membership.
func (s *Store) AddMember(code, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return fmt.Errorf("join room %q: %w", code, ErrRoomNotFound)
	}
	if r.hasMember(username) {
		return fmt.Errorf("join room %q as %q: %w", code, username, ErrMemberExists)
	}
	r.members = append(r.members, username)
	return nil
}

// MemberInRoom reports whether username is currently a member. An absent
// room reads as false rather than an error; this is a pure query.
func (s *Store) MemberInRoom(code, username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	return ok && r.hasMember(username)
}

// RemoveMember drops username from the room and removes every track that
// username submitted. The queue is re-sorted afterwards so rank order
// stays consistent with every other mutation path.
func (s *Store) RemoveMember(code, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return fmt.Errorf("leave room %q: %w", code, ErrRoomNotFound)
	}

	for i, member := range r.members {
		if member == username {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}

	kept := r.tracks[:0]
	for _, t := range r.tracks {
		if t.Username != username {
			kept = append(kept, t)
		}
	}
	r.tracks = kept
	r.sortTracks()
	return nil
}

// AddTrack validates and appends a track submitted by username, assigns
// its room-scoped id, re-ranks the queue, and returns the new id.
func (s *Store) AddTrack(code, torrentLink, musicName, username string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return 0, fmt.Errorf("add track to room %q: %w", code, ErrRoomNotFound)
	}
	if !r.hasMember(username) {
		return 0, fmt.Errorf("add track as %q: %w", username, ErrMemberNotFound)
	}
	if torrentLink == "" {
		return 0, ErrInvalidSource
	}
	if musicName == "" {
		return 0, ErrInvalidName
	}

	id := r.nextTrackID
	r.nextTrackID++
	r.tracks = append(r.tracks, &models.Track{
		ID:          id,
		TorrentLink: torrentLink,
		MusicName:   musicName,
		Username:    username,
		Votes:       make(map[string]models.Vote),
	})
	r.sortTracks()
	return id, nil
}

// RemoveTrack deletes the track from the room's queue. A missing track
// is a no-op: removal is idempotent by intent.
func (s *Store) RemoveTrack(code string, trackID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return fmt.Errorf("remove track from room %q: %w", code, ErrRoomNotFound)
	}
	for i, t := range r.tracks {
		if t.ID == trackID {
			r.tracks = append(r.tracks[:i], r.tracks[i+1:]...)
			r.sortTracks()
			break
		}
	}
	return nil
}

// Upvote records an upvote by username on the track. A repeated upvote
// fails with ErrAlreadyVoted; an existing downvote is reversed and
// replaced, moving the count by +2.
func (s *Store) Upvote(code string, trackID int, username string) error {
	return s.vote(code, trackID, username, models.VoteUp)
}

// Downvote is the mirror of Upvote.
func (s *Store) Downvote(code string, trackID int, username string) error {
	return s.vote(code, trackID, username, models.VoteDown)
}

func (s *Store) vote(code string, trackID int, username string, kind models.VoteKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return fmt.Errorf("vote in room %q: %w", code, ErrRoomNotFound)
	}
	t := r.trackByID(trackID)
	if t == nil {
		return fmt.Errorf("vote on track %d: %w", trackID, ErrTrackNotFound)
	}

	delta := 1
	if kind == models.VoteDown {
		delta = -1
	}

	if prev, voted := t.Votes[username]; voted {
		if prev.Kind == kind {
			return fmt.Errorf("%s on track %d by %q: %w", kind, trackID, username, ErrAlreadyVoted)
		}
		// Reverse the old vote before applying the new one.
		t.VoteCount += delta
	}
	t.Votes[username] = models.Vote{Kind: kind, Username: username}
	t.VoteCount += delta

	r.sortTracks()
	return nil
}

// VoteCount returns the track's current net vote count.
func (s *Store) VoteCount(code string, trackID int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return 0, fmt.Errorf("room %q: %w", code, ErrRoomNotFound)
	}
	t := r.trackByID(trackID)
	if t == nil {
		return 0, fmt.Errorf("track %d: %w", trackID, ErrTrackNotFound)
	}
	return t.VoteCount, nil
}

func (r *room) hasMember(username string) bool {
	for _, member := range r.members {
		if member == username {
			return true
		}
	}
	return false
}

func (r *room) trackByID(id int) *models.Track {
	for _, t := range r.tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// sortTracks ranks the queue most-upvoted first. The sort is stable, so
// tied tracks keep their prior relative order.
func (r *room) sortTracks() {
	sort.SliceStable(r.tracks, func(i, j int) bool {
		return r.tracks[i].VoteCount > r.tracks[j].VoteCount
	})
}

func generateRoomCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeCharset[rand.Intn(len(codeCharset))]
	}
	return string(code)
}
