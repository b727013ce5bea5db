package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/matheodrd/httphelper/handler"
)

// index serves the page that bootstraps the browser client.
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.Config.StaticIndex)
}

func (s *Server) wsHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: s.Config.OriginPatterns,
		})
		if err != nil {
			return handler.NewErrWithStatus(http.StatusBadRequest, fmt.Errorf("websocket accept: %w", err))
		}

		s.WebsocketManager.HandleNewConnection(conn)
		return nil
	})
}

func (s *Server) usersHandler() http.HandlerFunc {
	return handler.Handler(func(w http.ResponseWriter, r *http.Request) error {
		ids := s.WebsocketManager.Router().Registry().Identities()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ids); err != nil {
			return handler.NewErrWithStatus(http.StatusInternalServerError, fmt.Errorf("encoding users: %w", err))
		}
		return nil
	})
}
