package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"mb-mentor/internal/auth"
	"mb-mentor/internal/config"
	"mb-mentor/internal/dialogue"
	"mb-mentor/internal/session"
)

// WSTurnRequest is the initial client payload on the streaming socket.
type WSTurnRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// WSToken is one streamed reply fragment.
type WSToken struct {
	Token string `json:"token"`
	Index int    `json:"index"`
}

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// safeWSConn serializes writes; the token forwarder and the end/error
// notifications run on different goroutines.
type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *safeWSConn) ReadMessage() (int, []byte, error) {
	return s.conn.ReadMessage()
}

func (s *safeWSConn) Close() error {
	return s.conn.Close()
}

// WSConversationHandler streams one mentor reply over a WebSocket. The client
// connects with a JWT (header or ?token=), sends a single WSTurnRequest, and
// receives WSToken frames followed by an {"event":"end"} frame. A client
// {"event":"stop"} message or socket close cancels the completion.
func WSConversationHandler(cfg *config.Config, rdb *redis.Client, deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "missing JWT"}})
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")
		claims, err := auth.ParseJWT(cfg.Server.JWTSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "invalid JWT"}})
			return
		}
		if sessionToken, err := auth.GetSession(rdb, claims.UserID); err != nil || sessionToken != token {
			c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"message": "session expired or invalid"}})
			return
		}

		rawConn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("[WS] upgrade failed:", err)
			return
		}
		conn := &safeWSConn{conn: rawConn}
		defer conn.Close()

		serveConversationTurn(c.Request.Context(), deps, claims.UserID, conn, rawConn)
	}
}

// serveConversationTurn runs one streamed turn over an established socket.
func serveConversationTurn(reqCtx context.Context, deps Deps, userID uint, conn *safeWSConn, rawConn *websocket.Conn) {
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return
	}
	var req WSTurnRequest
	if err := json.Unmarshal(msg, &req); err != nil || req.Content == "" {
		conn.WriteJSON(gin.H{"error": "invalid turn request"})
		return
	}

	sess, err := deps.Sessions.Get(reqCtx, userID, req.ConversationID)
	if err != nil {
		conn.WriteJSON(gin.H{"error": "conversation not found"})
		return
	}

	ctx, cancel := context.WithCancel(reqCtx)
	defer cancel()

	stream, err := deps.Engine.RespondStream(ctx, sess, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, dialogue.ErrNotStreamable):
			// Project uploads take the synchronous path.
			reply, rerr := deps.Engine.Respond(ctx, sess, req.Content)
			deps.Sessions.Save(context.Background(), sess)
			if rerr != nil && reply == "" {
				conn.WriteJSON(gin.H{"error": rerr.Error()})
				return
			}
			conn.WriteJSON(WSToken{Token: reply, Index: 0})
			conn.WriteJSON(gin.H{"event": "end", "terminated": sess.Terminated()})
		case errors.Is(err, session.ErrTerminated), errors.Is(err, session.ErrTurnInFlight):
			conn.WriteJSON(gin.H{"error": err.Error()})
		default:
			conn.WriteJSON(gin.H{"error": "response generation failed", "reply": dialogue.FallbackReply})
			deps.Sessions.Save(context.Background(), sess)
		}
		return
	}

	// Watch for a stop event or socket close while tokens flow.
	go func() {
		for {
			_, msg, err := rawConn.ReadMessage()
			if err != nil {
				stream.Cancel()
				cancel()
				return
			}
			var ev map[string]interface{}
			if json.Unmarshal(msg, &ev) == nil && ev["event"] == "stop" {
				stream.Cancel()
				return
			}
		}
	}()

	index := 0
	for tok := range stream.Chunks() {
		if err := conn.WriteJSON(WSToken{Token: tok, Index: index}); err != nil {
			stream.Cancel()
			break
		}
		index++
	}

	// Reply (or fallback) is in the transcript once Err returns. The request
	// context dies with the socket, so the mirror write gets its own.
	streamErr := stream.Err()
	deps.Sessions.Save(context.Background(), sess)
	if streamErr != nil {
		conn.WriteJSON(gin.H{"error": "response generation failed", "reply": dialogue.FallbackReply})
		return
	}
	conn.WriteJSON(gin.H{"event": "end", "terminated": sess.Terminated()})
}
