package web

import (
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/go-chi/chi/v5"

    "github.com/jaminalder/ttt-engine/internal/app"
    "github.com/jaminalder/ttt-engine/internal/domain"
)

// stateResponse is the JSON view of a session.
type stateResponse struct {
    ID        string    `json:"id"`
    Mode      string    `json:"mode"`
    Board     [9]string `json:"board"`
    Turn      string    `json:"turn"`
    Outcome   string    `json:"outcome"`
    Winner    string    `json:"winner,omitempty"`
    Moves     int       `json:"moves"`
    HumanSide string    `json:"humanSide,omitempty"`
    Round     int       `json:"round"`
    Updated   time.Time `json:"updated"`
}

func toState(gs app.Session) stateResponse {
    out := gs.Game.Outcome()
    res := stateResponse{
        ID:        gs.ID,
        Mode:      string(gs.Mode),
        Turn:      gs.Game.Turn.String(),
        Outcome:   out.Kind.String(),
        Winner:    out.Winner.String(),
        Moves:     gs.Game.Moves(),
        HumanSide: gs.HumanSide.String(),
        Round:     gs.Round,
        Updated:   gs.Updated.UTC(),
    }
    for i, c := range gs.Game.Board {
        res.Board[i] = c.String()
    }
    return res
}

type createRequest struct {
    Mode      string `json:"mode"`
    HumanSide string `json:"humanSide"`
}

type moveRequest struct {
    Cell *int `json:"cell"`
}

type errorResponse struct {
    Error  string `json:"error"`
    Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json; charset=utf-8")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

// writeError maps service and domain errors to status codes.
func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
    status, code := http.StatusInternalServerError, "internal"
    reason := ""
    switch {
    case errors.Is(err, app.ErrNotFound):
        status, code = http.StatusNotFound, "not_found"
    case errors.Is(err, app.ErrNotAPlayer):
        status, code = http.StatusForbidden, "not_a_player"
    case errors.Is(err, app.ErrBadOptions):
        status, code, reason = http.StatusBadRequest, "bad_options", err.Error()
    case errors.Is(err, domain.ErrNotYourTurn):
        status, code = http.StatusConflict, "not_your_turn"
    case errors.Is(err, domain.ErrIllegalMove):
        status, code = http.StatusConflict, "illegal_move"
        reason = strings.TrimPrefix(err.Error(), domain.ErrIllegalMove.Error()+": ")
    }
    if status == http.StatusInternalServerError {
        h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
    }
    writeJSON(w, status, errorResponse{Error: code, Reason: reason})
}

func (h *handlers) apiCreate(w http.ResponseWriter, r *http.Request) {
    var req createRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
        writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_json"})
        return
    }
    opts := app.Options{Mode: app.Mode(req.Mode)}
    if req.HumanSide != "" {
        c, err := domain.ParseCell(req.HumanSide)
        if err != nil {
            writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_options", Reason: err.Error()})
            return
        }
        opts.HumanSide = c
    }
    gs, err := h.svc.CreateGame(opts)
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    if pid := playerID(r); pid != "" {
        if _, joined, err := h.svc.Join(gs.ID, pid); err == nil {
            gs = joined
        }
    }
    w.Header().Set("Location", "/games/"+gs.ID)
    writeJSON(w, http.StatusCreated, toState(*gs))
}

func (h *handlers) apiGet(w http.ResponseWriter, r *http.Request) {
    gs, ok := h.svc.Get(chi.URLParam(r, "id"))
    if !ok {
        h.writeError(w, r, app.ErrNotFound)
        return
    }
    writeJSON(w, http.StatusOK, toState(*gs))
}

func (h *handlers) apiMove(w http.ResponseWriter, r *http.Request) {
    var req moveRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Cell == nil {
        writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_json", Reason: "cell is required"})
        return
    }
    gs, err := h.svc.Move(r.Context(), chi.URLParam(r, "id"), playerID(r), *req.Cell)
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, toState(*gs))
}

func (h *handlers) apiReset(w http.ResponseWriter, r *http.Request) {
    gs, err := h.svc.Reset(chi.URLParam(r, "id"), playerID(r))
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, toState(*gs))
}

func (h *handlers) apiStats(w http.ResponseWriter, r *http.Request) {
    t, err := h.svc.Stats().Totals(r.Context())
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, t)
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"ok": true, "games": h.svc.Len()})
}
