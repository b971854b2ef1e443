package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/tatianab/dungeon-crawler/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// watch streams a snapshot on connect and after every dispatched action.
// Slow clients skip intermediate states and always receive the latest. An
// open connection keeps its session from being swept.
func (s *Server) watch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	store := controller(r).Store()
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("server: websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	updates := make(chan models.GameState, 1)
	push := func(st models.GameState) {
		select {
		case updates <- st:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- st:
		default:
		}
	}
	cancel := store.Subscribe(push)
	defer cancel()
	push(store.Snapshot())

	// The reader only exists to notice the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxBodyBytes)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case st := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(st); err != nil {
				log.Printf("server: websocket write: %v", err)
				return
			}
		case <-ticker.C:
			if !s.sessions.Touch(id) {
				return
			}
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
