package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"cardroom/internal/auth"
	"cardroom/internal/game/blackjack"
	"cardroom/internal/room"
	"cardroom/internal/ws"
)

// table-bot is a throwaway client for smoke testing a running server: it
// signs its own token, auto-joins a blackjack room and plays hit-below-17
// until it has seen the requested number of hands.
func main() {
	wsURL := getenv("WS_URL", "ws://localhost:8080/ws")
	userID := getenv("BOT_USER", "table-bot")
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	stake, _ := strconv.ParseInt(getenv("STAKE", "100"), 10, 64)
	hands, _ := strconv.Atoi(getenv("HANDS", "3"))

	token, err := auth.NewHS256(secret).Sign(auth.Identity{UserID: userID, DisplayName: userID}, time.Hour)
	if err != nil {
		log.Fatal(err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	send := func(msg ws.ClientMessage) {
		if err := conn.WriteJSON(msg); err != nil {
			log.Fatal(err)
		}
	}
	send(ws.ClientMessage{Type: ws.MsgAuth, Token: token})

	var roomID, playerID string
	played := 0
	for {
		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			log.Fatal(err)
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &base); err != nil {
			continue
		}
		switch base.Type {
		case "auth:ok":
			send(ws.ClientMessage{Type: ws.MsgRoomAuto, GameKey: "blackjack", Stake: stake})
		case "error":
			var ev ws.ErrorEvent
			_ = json.Unmarshal(raw, &ev)
			log.Fatalf("server error: %s (%s)", ev.Code, ev.Message)
		case "room:update":
			var ev ws.RoomUpdateEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				continue
			}
			roomID = ev.Room.ID
			ready := false
			for _, seat := range ev.Room.Seats {
				if seat.UserID == userID {
					playerID = fmt.Sprintf("P%d", seat.Seat+1)
					ready = seat.Ready
				}
			}
			if ev.Room.Status == room.StatusWaiting && !ready {
				send(ws.ClientMessage{Type: ws.MsgRoomReady, RoomID: roomID, Ready: true})
			}
		case "game:state":
			var ev struct {
				View blackjack.View `json:"view"`
			}
			if err := json.Unmarshal(raw, &ev); err != nil {
				continue
			}
			if ev.View.TurnPlayerID != playerID {
				continue
			}
			move := "bj:stand"
			for _, seat := range ev.View.Seats {
				if seat.PlayerID == playerID && seat.Total < 17 {
					move = "bj:hit"
				}
			}
			action, _ := json.Marshal(map[string]string{"type": move})
			send(ws.ClientMessage{Type: ws.MsgGameAction, RoomID: roomID, Action: action})
		case "game:ended":
			played++
			log.Printf("hand %d/%d done", played, hands)
			if played >= hands {
				return
			}
			send(ws.ClientMessage{Type: ws.MsgRoomReady, RoomID: roomID, Ready: true})
		}
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
