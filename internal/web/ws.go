package web

import (
    "context"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/gorilla/websocket"

    "github.com/jaminalder/ttt-engine/internal/app"
)

const writeWait = 5 * time.Second

// socket streams JSON state frames for one game: the current state first, then
// one frame per accepted move or reset. Client messages are ignored.
func (h *handlers) socket(w http.ResponseWriter, r *http.Request) {
    id := chi.URLParam(r, "id")
    if _, ok := h.svc.Get(id); !ok {
        h.writeError(w, r, app.ErrNotFound)
        return
    }
    conn, err := h.upgrader.Upgrade(w, r, nil)
    if err != nil {
        h.log.Debug().Err(err).Str("game", id).Msg("websocket upgrade")
        return
    }
    defer conn.Close()

    ctx, cancel := context.WithCancel(r.Context())
    defer cancel()
    ch, unsub, err := h.svc.Subscribe(ctx, id)
    if err != nil {
        closeSocket(conn, websocket.CloseGoingAway, "game closed")
        return
    }
    defer unsub()

    // reader: detects the peer going away
    go func() {
        defer cancel()
        for {
            if _, _, err := conn.ReadMessage(); err != nil {
                return
            }
        }
    }()

    send := func(s app.Session) error {
        _ = conn.SetWriteDeadline(time.Now().Add(writeWait))
        return conn.WriteJSON(toState(s))
    }
    // read after subscribing so no move can fall between snapshot and stream
    gs, ok := h.svc.Get(id)
    if !ok {
        closeSocket(conn, websocket.CloseGoingAway, "game closed")
        return
    }
    if err := send(*gs); err != nil {
        return
    }
    ticker := time.NewTicker(h.heartbeat)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
                return
            }
        case snap, ok := <-ch:
            if !ok {
                closeSocket(conn, websocket.CloseGoingAway, "game closed")
                return
            }
            if err := send(snap); err != nil {
                return
            }
        }
    }
}

func closeSocket(conn *websocket.Conn, code int, text string) {
    msg := websocket.FormatCloseMessage(code, text)
    _ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}
