package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func dialTestSocket(t *testing.T) (*WebSocketHandler, *websocket.Conn) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewWebSocketHandler(zap.NewNop())
	router := gin.New()
	router.GET("/ws", func(c *gin.Context) {
		c.Set("user_id", "user-1")
		h.HandleWebSocket(c)
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return h, conn
}

func TestWebSocketPingPong(t *testing.T) {
	_, conn := dialTestSocket(t)

	if err := conn.WriteJSON(Message{Type: "PING"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply Message
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != "PONG" {
		t.Fatalf("reply type %q, want PONG", reply.Type)
	}
}

func TestWebSocketPingAndBroadcastInterleave(t *testing.T) {
	h, conn := dialTestSocket(t)

	// First round trip guarantees the client is registered before any
	// balance push.
	if err := conn.WriteJSON(Message{Type: "PING"}); err != nil {
		t.Fatal(err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first Message
	if err := conn.ReadJSON(&first); err != nil || first.Type != "PONG" {
		t.Fatalf("handshake reply (%+v, %v)", first, err)
	}

	// Replies and pushes share the hub's single writer, so hammering
	// both at once must not corrupt or drop frames.
	const rounds = 20
	go func() {
		for i := 0; i < rounds; i++ {
			h.BroadcastBalance("user-1", int64(i))
		}
	}()
	for i := 0; i < rounds; i++ {
		if err := conn.WriteJSON(Message{Type: "PING"}); err != nil {
			t.Fatalf("write ping %d: %v", i, err)
		}
	}

	pongs, balances := 0, 0
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for pongs < rounds || balances < rounds {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read after %d pongs, %d balance updates: %v", pongs, balances, err)
		}
		switch msg.Type {
		case "PONG":
			pongs++
		case "BALANCE_UPDATE":
			balances++
		}
	}
}
