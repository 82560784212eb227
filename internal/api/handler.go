// Package api is the REST surface: room creation and read-mostly
// lookups for clients that aren't holding a websocket. Live session
// interaction happens over the ws transport.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/collab-playlist-system/internal/roomstore"
	"github.com/collab-playlist-system/internal/session"
	"github.com/collab-playlist-system/pkg/models"
)

type Handler struct {
	store *roomstore.Store
	coord *session.Coordinator
	cache *SnapshotCache
	log   zerolog.Logger
}

func NewHandler(store *roomstore.Store, coord *session.Coordinator, cache *SnapshotCache, log zerolog.Logger) *Handler {
	return &Handler{store: store, coord: coord, cache: cache, log: log}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rooms := r.Group("/rooms")
	{
		rooms.POST("", h.createRoom)
		rooms.GET("/:code", h.getRoom)
		rooms.GET("/:code/queue", h.getQueue)
		rooms.DELETE("/:code", h.removeRoom)
	}
}

type CreateRoomRequest struct {
	Username string `json:"username" binding:"required"`
}

func (h *Handler) createRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	code := h.coord.CreateRoom(c.Request.Context(), req.Username)
	c.JSON(http.StatusCreated, gin.H{"room_name": code})
}

func (h *Handler) getRoom(c *gin.Context) {
	code := c.Param("code")
	ctx := c.Request.Context()

	if room, ok := h.cache.GetRoom(ctx, code); ok {
		c.JSON(http.StatusOK, room)
		return
	}

	host, err := h.store.Host(code)
	if err != nil {
		h.fail(c, err)
		return
	}
	members, err := h.store.Members(code)
	if err != nil {
		h.fail(c, err)
		return
	}

	room := &models.Room{Code: code, Host: host, Members: members}
	h.cache.SetRoom(ctx, room)
	c.JSON(http.StatusOK, room)
}

func (h *Handler) getQueue(c *gin.Context) {
	code := c.Param("code")
	ctx := c.Request.Context()

	if tracks, ok := h.cache.GetQueue(ctx, code); ok {
		c.JSON(http.StatusOK, tracks)
		return
	}

	tracks, err := h.store.Tracks(code)
	if err != nil {
		h.fail(c, err)
		return
	}

	h.cache.SetQueue(ctx, code, tracks)
	c.JSON(http.StatusOK, tracks)
}

func (h *Handler) removeRoom(c *gin.Context) {
	code := c.Param("code")
	if err := h.coord.RemoveRoom(c.Request.Context(), code); err != nil {
		h.fail(c, err)
		return
	}
	h.cache.Invalidate(c.Request.Context(), code)
	c.Status(http.StatusNoContent)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, roomstore.ErrRoomNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
