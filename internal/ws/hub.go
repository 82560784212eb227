package ws

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/collab-playlist-system/pkg/models"
)

// Hub tracks which connections are in which room and fans broadcast
// frames out to them. It implements session.Broadcaster.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*client
	log   zerolog.Logger
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[string]*client),
		log:   log,
	}
}

func (h *Hub) add(room string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[string]*client)
	}
	h.rooms[room][c.id] = c
}

// remove takes the client out of the room's broadcast group. Once it
// returns, no broadcast can reach the client's send channel, so the
// caller may safely close it.
func (h *Hub) remove(room string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(clients, c.id)
	if len(clients) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) BroadcastUserList(room string, users []string) {
	h.broadcast(room, userListFrame{Type: "userList", Users: users})
}

func (h *Hub) BroadcastMusicList(room string, tracks []models.Track) {
	h.broadcast(room, musicListFrame{Type: "musicList", Music: tracks})
}

// broadcast sends the frame to every connection currently in the room.
// A client whose send buffer is full misses this frame instead of
// stalling the rest of the room.
func (h *Hub) broadcast(room string, frame interface{}) {
	payload, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Str("room", room).Msg("failed to marshal broadcast frame")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			h.log.Warn().Str("room", room).Str("conn", c.id).Msg("send buffer full, dropping frame")
		}
	}
}

type userListFrame struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

type musicListFrame struct {
	Type  string         `json:"type"`
	Music []models.Track `json:"music"`
}
