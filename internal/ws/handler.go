// Package ws is the websocket transport for playlist sessions. Each
// connection speaks a small JSON protocol: requests carry a client
// correlation id and get exactly one ack (success payload or an error
// string); room-wide state lands as userList/musicList broadcast frames.
package ws

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/collab-playlist-system/internal/session"
	"github.com/collab-playlist-system/pkg/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // In production, implement proper origin checking
	},
}

type request struct {
	Type        string `json:"type"`
	Req         int64  `json:"req"`
	Username    string `json:"username"`
	RoomName    string `json:"roomName"`
	TorrentLink string `json:"torrentLink"`
	MusicName   string `json:"musicName"`
	MusicID     *int   `json:"musicId"`
}

type ack struct {
	Type     string         `json:"type"`
	Req      int64          `json:"req"`
	Error    string         `json:"error,omitempty"`
	RoomName string         `json:"roomName,omitempty"`
	Status   string         `json:"status,omitempty"`
	Music    []models.Track `json:"music,omitempty"`
}

type Handler struct {
	hub   *Hub
	coord *session.Coordinator
	log   zerolog.Logger
}

func NewHandler(hub *Hub, coord *session.Coordinator, log zerolog.Logger) *Handler {
	return &Handler{hub: hub, coord: coord, log: log}
}

// HandleWebSocket upgrades the connection and runs its read loop until
// the client goes away. A dropped connection with a bound session
// leaves its room, so membership and the track cascade stay correct.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	ctx := c.Request.Context()
	cl := newClient(conn)
	go cl.writePump()

	var sess *session.Session
	defer func() {
		if sess != nil {
			h.hub.remove(sess.Room, cl)
			sess.Leave(ctx)
		}
		cl.close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Warn().Err(err).Str("conn", cl.id).Msg("websocket read error")
			}
			return
		}

		var req request
		if err := json.Unmarshal(message, &req); err != nil {
			h.log.Warn().Err(err).Str("conn", cl.id).Msg("failed to parse message")
			continue
		}

		switch req.Type {
		case "createRoom":
			sess = h.handleCreateRoom(c, cl, sess, req)
		case "joinRoom":
			sess = h.handleJoinRoom(c, cl, sess, req)
		case "addMusic":
			h.handleAddMusic(c, cl, sess, req)
		case "removeMusic":
			h.handleRemoveMusic(c, cl, sess, req)
		case "upvoteMusic", "downvoteMusic":
			h.handleVote(c, cl, sess, req)
		case "musicListing":
			h.handleMusicListing(cl, sess, req)
		default:
			h.reply(cl, ack{Req: req.Req, Error: "unknown request type"})
		}
	}
}

func (h *Handler) handleCreateRoom(c *gin.Context, cl *client, sess *session.Session, req request) *session.Session {
	if sess != nil {
		h.reply(cl, ack{Req: req.Req, Error: "already in a room"})
		return sess
	}
	if req.Username == "" {
		h.reply(cl, ack{Req: req.Req, Error: "username of the host is required"})
		return nil
	}

	room := h.coord.CreateRoom(c.Request.Context(), req.Username)
	h.hub.add(room, cl)
	bound, err := h.coord.Bind(room, req.Username)
	if err != nil {
		h.hub.remove(room, cl)
		h.reply(cl, ack{Req: req.Req, Error: err.Error()})
		return nil
	}
	h.reply(cl, ack{Req: req.Req, RoomName: room})
	return bound
}

func (h *Handler) handleJoinRoom(c *gin.Context, cl *client, sess *session.Session, req request) *session.Session {
	if sess != nil {
		h.reply(cl, ack{Req: req.Req, Error: "already in a room"})
		return sess
	}
	if req.Username == "" || req.RoomName == "" {
		h.reply(cl, ack{Req: req.Req, Error: "username of the joiner and roomName is required"})
		return nil
	}

	if err := h.coord.Join(c.Request.Context(), req.RoomName, req.Username); err != nil {
		h.reply(cl, ack{Req: req.Req, Error: err.Error()})
		return nil
	}
	h.hub.add(req.RoomName, cl)
	bound, err := h.coord.Bind(req.RoomName, req.Username)
	if err != nil {
		h.hub.remove(req.RoomName, cl)
		h.reply(cl, ack{Req: req.Req, Error: err.Error()})
		return nil
	}
	h.reply(cl, ack{Req: req.Req, Status: "success"})
	return bound
}

func (h *Handler) handleAddMusic(c *gin.Context, cl *client, sess *session.Session, req request) {
	if sess == nil {
		h.reply(cl, ack{Req: req.Req, Error: "join a room first"})
		return
	}
	tracks, err := sess.AddTrack(c.Request.Context(), req.TorrentLink, req.MusicName)
	if err != nil {
		h.reply(cl, ack{Req: req.Req, Error: err.Error()})
		return
	}
	h.reply(cl, ack{Req: req.Req, Music: tracks})
}

func (h *Handler) handleRemoveMusic(c *gin.Context, cl *client, sess *session.Session, req request) {
	if sess == nil {
		h.reply(cl, ack{Req: req.Req, Error: "join a room first"})
		return
	}
	if req.MusicID == nil {
		h.reply(cl, ack{Req: req.Req, Error: "musicId is required"})
		return
	}
	tracks, err := sess.RemoveTrack(c.Request.Context(), *req.MusicID)
	if err != nil {
		h.reply(cl, ack{Req: req.Req, Error: err.Error()})
		return
	}
	h.reply(cl, ack{Req: req.Req, Music: tracks})
}

func (h *Handler) handleVote(c *gin.Context, cl *client, sess *session.Session, req request) {
	if sess == nil {
		h.reply(cl, ack{Req: req.Req, Error: "join a room first"})
		return
	}
	if req.MusicID == nil {
		h.reply(cl, ack{Req: req.Req, Error: "musicId is required"})
		return
	}

	cast := sess.Upvote
	if req.Type == "downvoteMusic" {
		cast = sess.Downvote
	}
	tracks, err := cast(c.Request.Context(), *req.MusicID)
	if err != nil {
		h.reply(cl, ack{Req: req.Req, Error: err.Error()})
		return
	}
	h.reply(cl, ack{Req: req.Req, Music: tracks})
}

func (h *Handler) handleMusicListing(cl *client, sess *session.Session, req request) {
	if sess == nil {
		h.reply(cl, ack{Req: req.Req, Error: "join a room first"})
		return
	}
	tracks, err := sess.ListTracks()
	if err != nil {
		h.reply(cl, ack{Req: req.Req, Error: err.Error()})
		return
	}
	h.reply(cl, ack{Req: req.Req, Music: tracks})
}

// reply sends an ack to the requesting connection only.
func (h *Handler) reply(cl *client, a ack) {
	a.Type = "ack"
	payload, err := json.Marshal(a)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal ack")
		return
	}
	select {
	case cl.send <- payload:
	default:
		h.log.Warn().Str("conn", cl.id).Msg("send buffer full, dropping ack")
	}
}
