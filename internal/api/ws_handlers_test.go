package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mb-mentor/internal/dialogue"
)

// wsStubLLM streams its reply token by token.
type wsStubLLM struct {
	reply string
}

func (s wsStubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.reply, nil
}

func (s wsStubLLM) Stream(ctx context.Context, prompt string) (dialogue.Streamer, error) {
	tokens := strings.SplitAfter(s.reply, " ")
	st := &stubStream{chunks: make(chan string, len(tokens)), done: make(chan struct{})}
	for _, tok := range tokens {
		st.chunks <- tok
	}
	close(st.chunks)
	close(st.done)
	return st, nil
}

type stubStream struct {
	chunks chan string
	done   chan struct{}
	err    error
}

func (s *stubStream) Chunks() <-chan string { return s.chunks }
func (s *stubStream) Cancel()               {}
func (s *stubStream) Err() error            { <-s.done; return s.err }

// endlessLLM streams tokens until cancelled; it never finishes on its own.
type endlessLLM struct{}

func (endlessLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return "ok", nil
}

func (endlessLLM) Stream(ctx context.Context, prompt string) (dialogue.Streamer, error) {
	s := &endlessStream{chunks: make(chan string), stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer close(s.chunks)
		for {
			select {
			case s.chunks <- "la ":
			case <-s.stop:
				s.err = context.Canceled
				return
			}
		}
	}()
	return s, nil
}

type endlessStream struct {
	chunks chan string
	stop   chan struct{}
	once   sync.Once
	done   chan struct{}
	err    error
}

func (s *endlessStream) Chunks() <-chan string { return s.chunks }
func (s *endlessStream) Cancel()               { s.once.Do(func() { close(s.stop) }) }
func (s *endlessStream) Err() error            { <-s.done; return s.err }

// wsTestServer serves a single streamed turn per connection with auth
// replaced by a fixed user id.
func wsTestServer(t *testing.T, deps Deps, userID uint) (*httptest.Server, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		rawConn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		conn := &safeWSConn{conn: rawConn}
		defer conn.Close()
		serveConversationTurn(c.Request.Context(), deps, userID, conn, rawConn)
	})
	s := httptest.NewServer(r)
	return s, "ws" + s.URL[4:] + "/ws"
}

func TestWSTurn_StreamsTokensThenEndEvent(t *testing.T) {
	deps := testDeps(wsStubLLM{reply: "what will you build next"})
	sess := deps.Sessions.Create(context.Background(), 1, "meta")
	srv, wsURL := wsTestServer(t, deps, 1)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	req, _ := json.Marshal(WSTurnRequest{ConversationID: sess.ID, Content: "hello"})
	if err := ws.WriteMessage(websocket.TextMessage, req); err != nil {
		t.Fatalf("write turn request: %v", err)
	}

	var b strings.Builder
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		var frame map[string]interface{}
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if frame["event"] == "end" {
			if frame["terminated"] != false {
				t.Errorf("short conversation reported terminated")
			}
			break
		}
		if errMsg, ok := frame["error"]; ok {
			t.Fatalf("unexpected error frame: %v", errMsg)
		}
		b.WriteString(frame["token"].(string))
	}
	if b.String() != "what will you build next" {
		t.Errorf("streamed reply = %q", b.String())
	}

	last, ok := sess.LastAssistant()
	if !ok || last != "what will you build next" {
		t.Errorf("reply not appended to transcript: %q", last)
	}
	if err := sess.BeginTurn(); err != nil {
		t.Errorf("turn lock not released: %v", err)
	}
	sess.EndTurn()
}

func TestWSTurn_StopEventCancelsAndRecovers(t *testing.T) {
	deps := testDeps(endlessLLM{})
	sess := deps.Sessions.Create(context.Background(), 1, "meta")
	srv, wsURL := wsTestServer(t, deps, 1)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	req, _ := json.Marshal(WSTurnRequest{ConversationID: sess.ID, Content: "hello"})
	if err := ws.WriteMessage(websocket.TextMessage, req); err != nil {
		t.Fatalf("write turn request: %v", err)
	}

	// Read a few tokens, then tell the mentor to stop mid-reply.
	for i := 0; i < 3; i++ {
		if _, _, err := ws.ReadMessage(); err != nil {
			t.Fatalf("read token frame: %v", err)
		}
	}
	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"stop"}`)); err != nil {
		t.Fatalf("write stop: %v", err)
	}

	// The turn ends with an error frame carrying the fallback reply.
	sawError := false
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}
		var frame map[string]interface{}
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if _, ok := frame["error"]; ok {
			sawError = true
			if frame["reply"] != dialogue.FallbackReply {
				t.Errorf("error frame missing fallback reply: %v", frame)
			}
			break
		}
	}
	if !sawError {
		t.Fatalf("expected an error frame after stop")
	}

	last, _ := sess.LastAssistant()
	if last != dialogue.FallbackReply {
		t.Errorf("expected fallback in transcript after stop, got %q", last)
	}
	// A cancelled turn must not wedge the conversation.
	if err := sess.BeginTurn(); err != nil {
		t.Errorf("turn lock not released after stop: %v", err)
	}
	sess.EndTurn()
}
