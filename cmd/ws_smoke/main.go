package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"landmarket/internal/service"
	"landmarket/internal/ws"

	"github.com/gorilla/websocket"
)

func main() {
	userID := flag.String("user", "smoke", "account id to connect as")
	topics := flag.String("topics", "", "extra comma separated topics, e.g. auction:abc,land:0_0")
	wait := flag.Duration("wait", 30*time.Second, "how long to print changes")
	flag.Parse()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	service.InitJWT(jwtSecret)
	token, err := service.GenerateJWT(*userID, *userID, time.Hour)
	if err != nil {
		log.Fatalf("gen token: %v", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	url := fmt.Sprintf("ws://127.0.0.1:%s/ws?token=%s", port, token)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if *topics != "" {
		for _, t := range strings.Split(*topics, ",") {
			msg := ws.ClientMessage{Type: ws.MsgSubscribe, Topic: strings.TrimSpace(t)}
			if err := conn.WriteJSON(msg); err != nil {
				log.Fatalf("subscribe %s: %v", t, err)
			}
		}
	}

	deadline := time.Now().Add(*wait)
	for time.Now().Before(deadline) {
		_ = conn.SetReadDeadline(deadline)
		var msg ws.ServerMessage
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Printf("bad message: %s", raw)
			continue
		}
		switch msg.Type {
		case ws.MsgReady:
			log.Printf("ready, topics=%v", msg.Topics)
		case ws.MsgChange:
			log.Printf("%s %s: %s", msg.Topic, msg.Change, string(msg.Data))
		default:
			log.Printf("%s: %s", msg.Type, string(raw))
		}
	}

	log.Println("smoke test finished")
}
