package models

// VoteKind is the direction of a member's vote on a track.
type VoteKind string

const (
	VoteUp   VoteKind = "upvote"
	VoteDown VoteKind = "downvote"
)

// Vote is a single member's standing vote on a track. A member holds at
// most one vote per track; casting the opposite kind replaces it.
type Vote struct {
	Kind     VoteKind `json:"kind"`
	Username string   `json:"username"`
}

// Track is one entry in a room's queue. ID is scoped to the room and
// assigned from a monotonic per-room counter, so it stays unique even
// after earlier tracks are removed.
type Track struct {
	ID          int             `json:"id"`
	TorrentLink string          `json:"torrent_link"`
	MusicName   string          `json:"music_name"`
	Username    string          `json:"username"`
	Votes       map[string]Vote `json:"votes"`
	VoteCount   int             `json:"vote_count"`
}

// Clone returns a deep copy of the track; mutating the copy never
// touches store-owned state.
func (t Track) Clone() Track {
	votes := make(map[string]Vote, len(t.Votes))
	for user, vote := range t.Votes {
		votes[user] = vote
	}
	t.Votes = votes
	return t
}

// Room is a point-in-time snapshot of a room as served over the REST
// surface. Live room state is owned by the room store; this struct is
// only ever a copy.
type Room struct {
	Code    string   `json:"code"`
	Host    string   `json:"host"`
	Members []string `json:"members"`
}
