package roomstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collab-playlist-system/pkg/models"
)

func TestCreateRoom(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")

	assert.Len(t, code, 7)
	for _, r := range code {
		assert.Contains(t, codeCharset, string(r))
	}

	host, err := s.Host(code)
	require.NoError(t, err)
	assert.Equal(t, "alice", host)

	members, err := s.Members(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)

	tracks, err := s.Tracks(code)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestCreateRoomCodesUnique(t *testing.T) {
	s := New()
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := s.CreateRoom("host")
		assert.False(t, seen[code], "room code %q generated twice", code)
		seen[code] = true
	}
}

func TestRemoveRoom(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")

	require.NoError(t, s.RemoveRoom(code))

	// Every subsequent lookup fails with RoomNotFound.
	assert.ErrorIs(t, s.RemoveRoom(code), ErrRoomNotFound)
	_, err := s.Members(code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = s.Tracks(code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.ErrorIs(t, s.AddMember(code, "bob"), ErrRoomNotFound)
	_, err = s.AddTrack(code, "magnet:a", "Song", "alice")
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.ErrorIs(t, s.Upvote(code, 0, "alice"), ErrRoomNotFound)
	_, err = s.VoteCount(code, 0)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestAddMember(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")

	require.NoError(t, s.AddMember(code, "bob"))
	require.NoError(t, s.AddMember(code, "carol"))

	members, err := s.Members(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, members, "join order preserved")

	err = s.AddMember(code, "bob")
	assert.ErrorIs(t, err, ErrMemberExists)

	members, err = s.Members(code)
	require.NoError(t, err)
	assert.Len(t, members, 3, "membership unchanged after rejected join")

	assert.ErrorIs(t, s.AddMember("nosuchrm", "bob"), ErrRoomNotFound)
}

func TestMemberInRoom(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")

	assert.True(t, s.MemberInRoom(code, "alice"))
	assert.False(t, s.MemberInRoom(code, "bob"))
	assert.False(t, s.MemberInRoom("nosuchrm", "alice"), "absent room reads as false, not an error")
}

func TestMembersSnapshotIsCopy(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")

	members, err := s.Members(code)
	require.NoError(t, err)
	members[0] = "mallory"

	again, err := s.Members(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, again)
}

func TestTracksSnapshotIsDeepCopy(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")
	id, err := s.AddTrack(code, "magnet:a", "Song A", "alice")
	require.NoError(t, err)
	require.NoError(t, s.Upvote(code, id, "alice"))

	tracks, err := s.Tracks(code)
	require.NoError(t, err)
	tracks[0].Votes["mallory"] = models.Vote{Kind: models.VoteDown, Username: "mallory"}
	tracks[0].VoteCount = -99

	again, err := s.Tracks(code)
	require.NoError(t, err)
	assert.Equal(t, 1, again[0].VoteCount)
	assert.NotContains(t, again[0].Votes, "mallory")
}

func TestAddTrackValidation(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")

	tests := []struct {
		name     string
		link     string
		title    string
		username string
		want     error
	}{
		{"non-member submitter", "magnet:a", "Song", "bob", ErrMemberNotFound},
		{"empty source", "", "Song", "alice", ErrInvalidSource},
		{"empty name", "magnet:a", "", "alice", ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddTrack(code, tt.link, tt.title, tt.username)
			assert.ErrorIs(t, err, tt.want)

			tracks, err := s.Tracks(code)
			require.NoError(t, err)
			assert.Empty(t, tracks, "failed add must not grow the queue")
		})
	}
}

func TestTrackIDsNeverReused(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")

	var ids []int
	for i := 0; i < 3; i++ {
		id, err := s.AddTrack(code, "magnet:a", "Song", "alice")
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.Equal(t, []int{0, 1, 2}, ids)

	require.NoError(t, s.RemoveTrack(code, 1))
	require.NoError(t, s.RemoveTrack(code, 2))

	id, err := s.AddTrack(code, "magnet:b", "Song B", "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, id, "ids keep increasing after removals")
}

func TestRemoveTrackMissingIsNoop(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")
	_, err := s.AddTrack(code, "magnet:a", "Song", "alice")
	require.NoError(t, err)

	require.NoError(t, s.RemoveTrack(code, 42))

	tracks, err := s.Tracks(code)
	require.NoError(t, err)
	assert.Len(t, tracks, 1)

	assert.ErrorIs(t, s.RemoveTrack("nosuchrm", 0), ErrRoomNotFound)
}

func TestVoteAccounting(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")
	require.NoError(t, s.AddMember(code, "bob"))
	require.NoError(t, s.AddMember(code, "carol"))
	id, err := s.AddTrack(code, "magnet:a", "Song", "alice")
	require.NoError(t, err)

	require.NoError(t, s.Upvote(code, id, "alice"))
	require.NoError(t, s.Upvote(code, id, "bob"))
	require.NoError(t, s.Downvote(code, id, "carol"))

	count, err := s.VoteCount(code, id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	tracks, err := s.Tracks(code)
	require.NoError(t, err)
	up, down := 0, 0
	for _, v := range tracks[0].Votes {
		switch v.Kind {
		case models.VoteUp:
			up++
		case models.VoteDown:
			down++
		}
	}
	assert.Equal(t, up-down, tracks[0].VoteCount, "count equals record sum")
}

func TestRepeatedVoteRejected(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")
	id, err := s.AddTrack(code, "magnet:a", "Song", "alice")
	require.NoError(t, err)

	require.NoError(t, s.Upvote(code, id, "alice"))
	assert.ErrorIs(t, s.Upvote(code, id, "alice"), ErrAlreadyVoted)

	count, err := s.VoteCount(code, id)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "rejected vote leaves count unchanged")

	require.NoError(t, s.Downvote(code, id, "alice"))
	assert.ErrorIs(t, s.Downvote(code, id, "alice"), ErrAlreadyVoted)
}

func TestVoteSwitchMovesCountByTwo(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")
	require.NoError(t, s.AddMember(code, "bob"))
	id, err := s.AddTrack(code, "magnet:a", "Song A", "bob")
	require.NoError(t, err)

	require.NoError(t, s.Upvote(code, id, "alice"))
	count, err := s.VoteCount(code, id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.Downvote(code, id, "alice"))
	count, err = s.VoteCount(code, id)
	require.NoError(t, err)
	assert.Equal(t, -1, count, "switching reverses the old vote and applies the new one")

	require.NoError(t, s.Upvote(code, id, "alice"))
	count, err = s.VoteCount(code, id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	tracks, err := s.Tracks(code)
	require.NoError(t, err)
	require.Len(t, tracks[0].Votes, 1, "one stored record per user")
	assert.Equal(t, models.VoteUp, tracks[0].Votes["alice"].Kind)
}

func TestVoteOnMissingTrack(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")

	assert.ErrorIs(t, s.Upvote(code, 7, "alice"), ErrTrackNotFound)
	assert.ErrorIs(t, s.Downvote(code, 7, "alice"), ErrTrackNotFound)
	_, err := s.VoteCount(code, 7)
	assert.ErrorIs(t, err, ErrTrackNotFound)
}

func TestRankingDescendingAndStable(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")
	require.NoError(t, s.AddMember(code, "bob"))
	require.NoError(t, s.AddMember(code, "carol"))

	a, err := s.AddTrack(code, "magnet:a", "Song A", "alice")
	require.NoError(t, err)
	b, err := s.AddTrack(code, "magnet:b", "Song B", "alice")
	require.NoError(t, err)
	c, err := s.AddTrack(code, "magnet:c", "Song C", "alice")
	require.NoError(t, err)

	// B gets two upvotes, C one, A none.
	require.NoError(t, s.Upvote(code, b, "alice"))
	require.NoError(t, s.Upvote(code, b, "bob"))
	require.NoError(t, s.Upvote(code, c, "carol"))

	tracks, err := s.Tracks(code)
	require.NoError(t, err)
	assert.Equal(t, []int{b, c, a}, trackIDs(tracks), "most upvoted first")

	// Tie C with B; insertion order breaks the tie.
	require.NoError(t, s.Upvote(code, c, "alice"))
	tracks, err = s.Tracks(code)
	require.NoError(t, err)
	assert.Equal(t, []int{b, c, a}, trackIDs(tracks), "stable on ties")
}

func TestRemoveMemberCascades(t *testing.T) {
	s := New()
	code := s.CreateRoom("alice")
	require.NoError(t, s.AddMember(code, "bob"))

	_, err := s.AddTrack(code, "magnet:a", "Alice Song", "alice")
	require.NoError(t, err)
	bobOne, err := s.AddTrack(code, "magnet:b", "Bob Song 1", "bob")
	require.NoError(t, err)
	_, err = s.AddTrack(code, "magnet:c", "Bob Song 2", "bob")
	require.NoError(t, err)
	require.NoError(t, s.Upvote(code, bobOne, "alice"))

	require.NoError(t, s.RemoveMember(code, "bob"))

	members, err := s.Members(code)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)
	assert.False(t, s.MemberInRoom(code, "bob"))

	tracks, err := s.Tracks(code)
	require.NoError(t, err)
	require.Len(t, tracks, 1, "only the departing member's tracks are removed")
	assert.Equal(t, "alice", tracks[0].Username)

	assert.ErrorIs(t, s.RemoveMember("nosuchrm", "bob"), ErrRoomNotFound)
}

func TestSessionScenario(t *testing.T) {
	s := New()
	r1 := s.CreateRoom("alice")
	require.Len(t, r1, 7)

	require.NoError(t, s.AddMember(r1, "bob"))
	members, err := s.Members(r1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, members)

	id, err := s.AddTrack(r1, "s1", "Song A", "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	require.NoError(t, s.Upvote(r1, id, "alice"))
	count, err := s.VoteCount(r1, id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.Downvote(r1, id, "alice"))
	count, err = s.VoteCount(r1, id)
	require.NoError(t, err)
	assert.Equal(t, -1, count)

	require.NoError(t, s.Upvote(r1, id, "alice"))
	count, err = s.VoteCount(r1, id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func trackIDs(tracks []models.Track) []int {
	ids := make([]int, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}
