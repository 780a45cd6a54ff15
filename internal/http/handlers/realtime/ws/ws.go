// Package ws upgrades signed in browsers to a websocket that receives change
// events.
package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/warranty-service/internal/apperr"
	"github.com/magabrotheeeer/warranty-service/internal/events"
	"github.com/magabrotheeeer/warranty-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/warranty-service/internal/http/response"
	"github.com/magabrotheeeer/warranty-service/internal/i18n"
	"github.com/magabrotheeeer/warranty-service/internal/lib/sl"
)

const maxFrameSize = 4096

// Hub keeps track of live connections and writes to them, pings included.
type Hub interface {
	Register(userID uuid.UUID, conn *websocket.Conn) uuid.UUID
	Unregister(id uuid.UUID)
}

type Handler struct {
	log      *slog.Logger
	hub      Hub
	upgrader websocket.Upgrader
}

// New creates the handler. Browsers are accepted from allowedOrigins only.
func New(log *slog.Logger, hub Hub, allowedOrigins []string) *Handler {
	return &Handler{
		log: log,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middlewarectx.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// ServeHTTP godoc
// @Summary Change events
// @Description Websocket stream of warranty, customer and user change events. The token may be passed as ?token= when headers cannot be set.
// @Tags Realtime
// @Security BearerAuth
// @Param token query string false "Session token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} response.ErrorResponse
// @Router /ws [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.realtime.ws"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	p, ok := middlewarectx.PrincipalFrom(r.Context())
	if !ok {
		log.Error("principal not found in context")
		response.WriteError(w, r, apperr.New(apperr.KindAuth, op, i18n.CodeUnauthorized))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		log.Info("websocket upgrade failed", sl.Err(err))
		return
	}
	id := h.hub.Register(p.UserID, conn)
	log.Debug("websocket connected", slog.String("user_id", p.UserID.String()), slog.String("conn_id", id.String()))

	defer func() {
		h.hub.Unregister(id)
		log.Debug("websocket disconnected", slog.String("conn_id", id.String()))
	}()

	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(events.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(events.PongWait))
	})
	for {
		// Clients have nothing to say; reading keeps control frames flowing.
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
