package relay

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/livechat/internal/protocol"
)

// HTTPServer wires HTTP routes to the manager.
type HTTPServer struct {
	mgr      *Manager
	upgrader websocket.Upgrader
}

// NewHTTPServer constructs an HTTPServer accepting any origin.
func NewHTTPServer(mgr *Manager) *HTTPServer {
	return &HTTPServer{
		mgr: mgr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Router exposes the HTTP handler used for both relay and local serving.
func (s *HTTPServer) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/ws", s.handleWebSocket)
	return r
}

func (s *HTTPServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	params := protocol.ParseConnectParams(r.URL.Query())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("[relay] upgrade websocket")
		return
	}
	client := s.mgr.NewClient(params, conn)
	s.mgr.Attach(client)

	go client.writeLoop()
	client.readLoop()
}
