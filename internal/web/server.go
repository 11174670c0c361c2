package web

import (
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    chimw "github.com/go-chi/chi/v5/middleware"
    "github.com/rs/zerolog"

    "github.com/jaminalder/ttt-engine/internal/app"
)

// Option customizes the HTTP server.
type Option func(*handlers, *settings)

type settings struct {
    timeout time.Duration
}

// WithLogger sets the access and error logger.
func WithLogger(l zerolog.Logger) Option {
    return func(h *handlers, _ *settings) { h.log = l }
}

// WithHeartbeat sets the SSE comment and WebSocket ping interval.
func WithHeartbeat(d time.Duration) Option {
    return func(h *handlers, _ *settings) {
        if d > 0 {
            h.heartbeat = d
        }
    }
}

// WithRequestTimeout bounds non-streaming handlers.
func WithRequestTimeout(d time.Duration) Option {
    return func(_ *handlers, s *settings) {
        if d > 0 {
            s.timeout = d
        }
    }
}

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service, opts ...Option) http.Handler {
    h := &handlers{svc: s, tpl: loadTemplates(), log: zerolog.Nop(), heartbeat: 15 * time.Second}
    st := &settings{timeout: 10 * time.Second}
    for _, o := range opts {
        o(h, st)
    }

    r := chi.NewRouter()
    r.Use(chimw.RequestID)
    r.Use(chimw.RealIP)
    r.Use(requestLogger(h.log))
    r.Use(chimw.Recoverer)

    // streaming endpoints are not bounded by the timeout
    t := r.With(chimw.Timeout(st.timeout))

    t.Get("/health", h.health)
    t.Get("/stats", h.apiStats)

    // JSON API
    t.Post("/games", h.apiCreate)
    r.Route("/games/{id}", func(r chi.Router) {
        t := r.With(chimw.Timeout(st.timeout))
        t.Get("/", h.apiGet)
        t.Post("/moves", h.apiMove)
        t.Post("/reset", h.apiReset)
        r.Get("/ws", h.socket)
    })

    // htmx board
    t.Get("/", h.index)
    t.Post("/game", h.create)
    r.Route("/game/{id}", func(r chi.Router) {
        t := r.With(chimw.Timeout(st.timeout))
        t.Get("/", h.view)
        t.Post("/join", h.join)
        t.Post("/play", h.play)
        t.Post("/reset", h.reset)
        r.Get("/events", h.events)
    })
    return r
}
