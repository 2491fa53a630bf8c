package integration

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"landmarket/internal/config"
	httpserver "landmarket/internal/http"
	"landmarket/internal/http/handlers"
	"landmarket/internal/http/middleware"
	"landmarket/internal/repository/memory"
	"landmarket/internal/service"
	"landmarket/internal/stream"
	"landmarket/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestE2E_LandChangeReachesWebsocket(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service.InitJWT("e2e-secret")
	middleware.InitRedisRateLimiter(nil)

	econ := config.DefaultEconomy()
	broker := stream.NewLocal(64)
	run := service.NewRunner(memory.New(), service.WithBroker(broker))
	h := &handlers.Handler{
		Ledger: service.NewLedgerService(run),
		Lands:  service.NewLandService(run, econ.Land, econ.LandPrice),
	}
	hub := ws.NewHub(broker, nil)
	defer hub.Close()

	r := gin.New()
	httpserver.RegisterRoutes(r, h, handlers.NewHealthHandler("e2e", nil), hub, httpserver.RouteConfig{
		IsAdmin:    func(string) bool { return false },
		RateLimit:  100,
		RateWindow: time.Minute,
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	if _, err := h.Ledger.Credit(t.Context(), "alice", econ.LandPrice, "seed"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	token, err := service.GenerateJWT("alice", "Alice", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	read := func() ws.ServerMessage {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		var msg ws.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read: %v", err)
		}
		return msg
	}

	if msg := read(); msg.Type != ws.MsgReady {
		t.Fatalf("expected ready, got %+v", msg)
	}
	if err := conn.WriteJSON(ws.ClientMessage{Type: ws.MsgSubscribe, Topic: stream.LandTopic("5_5")}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if msg := read(); msg.Type != ws.MsgSubscribed {
		t.Fatalf("expected subscribed, got %+v", msg)
	}

	body, _ := json.Marshal(map[string]int{"x": 5, "y": 5})
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/lands", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.StatusCode)
	}

	// account and land changes may arrive in either order
	landTopic, acctTopic := stream.LandTopic("5_5"), stream.AccountTopic("alice")
	seen := map[string]bool{}
	for !seen[landTopic] || !seen[acctTopic] {
		if msg := read(); msg.Type == ws.MsgChange {
			seen[msg.Topic] = true
		}
	}
}
