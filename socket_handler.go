package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/ssau-fiit/cloudocs-api/common/util"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleSocket joins the socket to the workspace room. The first frame is
// the current workspace and a fresh replica id; after that every frame in
// either direction is one wire-encoded operation.
func (s *server) handleSocket(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout)
	defer cancel()

	if _, err := s.store.GetWorkspace(ctx, id); err != nil {
		abortWithError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("error upgrading connection")
		return
	}
	defer conn.Close()

	p := newPeer()
	r, err := s.hub.join(ctx, id, p)
	if err != nil {
		log.Error().Err(err).Str("workspace", id).Msg("failed to join workspace")
		_ = conn.WriteJSON(ErrorMessage{Type: msgTypeError, Error: err.Error()})
		return
	}
	defer s.hub.leave(id, p)

	err = conn.WriteJSON(InitMessage{
		Type:      msgTypeInit,
		ClientID:  util.ClientID(),
		Workspace: r.serialize(),
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to write workspace")
		return
	}

	done := make(chan struct{})
	defer close(done)
	go writeLoop(conn, p, done)

	log.Debug().Str("workspace", id).Str("peer", p.id).Msg("socket connected")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("peer", p.id).Msg("failed to read message from client")
			}
			break
		}

		opCtx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		err = s.hub.submit(opCtx, id, p.id, msg)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("workspace", id).Str("peer", p.id).Msg("rejected operation")
			reply, _ := json.Marshal(ErrorMessage{Type: msgTypeError, Error: err.Error()})
			select {
			case p.send <- reply:
			default:
			}
		}
	}
	log.Debug().Str("workspace", id).Str("peer", p.id).Msg("socket disconnected")
}

// writeLoop owns all writes after the first frame.
func writeLoop(conn *websocket.Conn, p *peer, done <-chan struct{}) {
	for {
		select {
		case msg := <-p.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Error().Err(err).Str("peer", p.id).Msg("failed to write message")
				conn.Close()
				return
			}
		case <-p.gone:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		case <-done:
			return
		}
	}
}
