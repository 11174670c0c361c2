package web

import (
    "bytes"
    "html/template"
    "net/http"

    "github.com/jaminalder/ttt-engine/internal/app"
    "github.com/jaminalder/ttt-engine/internal/domain"
)

type templates struct {
    game  *template.Template
    board *template.Template
    index *template.Template
}

func funcs() template.FuncMap {
    return template.FuncMap{
        "iter": func(n int) []int {
            a := make([]int, n)
            for i := range a {
                a[i] = i
            }
            return a
        },
        "cellSymbol": func(c domain.Cell) string { return c.String() },
        "add": func(a, b int) int { return a + b },
        "mul": func(a, b int) int { return a * b },
    }
}

func loadTemplates() *templates {
    base := template.Must(template.New("base").Funcs(funcs()).Parse(`<!doctype html><html><head>
<meta charset="utf-8"/>
<script src="https://unpkg.com/htmx.org@1.9.12"></script>
<script src="https://unpkg.com/htmx.org/dist/ext/sse.js"></script>
</head><body>{{template "content" .}}</body></html>`))
    index := template.Must(template.Must(base.Clone()).New("content").Parse(`<h1>TicTacToe</h1>
<form action="/game" method="post">
  <select name="mode"><option value="ai">vs computer</option><option value="human">vs friend</option></select>
  <select name="side"><option value="X">play X</option><option value="O">play O</option></select>
  <button>Create</button>
</form>`))
    game := template.Must(template.Must(base.Clone()).New("content").Parse(`
<div hx-ext="sse" hx-sse="connect:/game/{{.ID}}/events">
  <div hx-sse="swap:board">{{.BoardHTML}}</div>
</div>`))
    // Standalone board template used for fragment rendering
    board := template.Must(template.New("board_only").Funcs(funcs()).Parse(boardTemplate))
    return &templates{game: game, board: board, index: index}
}

func renderTemplate(t *template.Template, name string, data any) []byte {
    var buf bytes.Buffer
    if name == "" {
        _ = t.Execute(&buf, data)
    } else {
        _ = t.ExecuteTemplate(&buf, name, data)
    }
    return buf.Bytes()
}

const boardTemplate = `
<div id="board">
  {{if .Error}}
  <div class="alert">{{.Error}}</div>
  {{end}}
  <div class="status">{{.Status}}</div>
  {{/* 3x3 grid */}}
  {{range $r := iter 3}}
  <div class="row">
    {{range $c := iter 3}}
      <form hx-post="/game/{{$.ID}}/play" hx-target="#board" hx-swap="outerHTML" method="post">
        <input type="hidden" name="r" value="{{$r}}">
        <input type="hidden" name="c" value="{{$c}}">
        <button type="submit"{{if $.Over}} disabled{{end}}>{{cellSymbol (index $.Board (add (mul $r 3) $c))}}</button>
      </form>
    {{end}}
  </div>
  {{end}}
  {{if .Over}}
  <form hx-post="/game/{{.ID}}/reset" hx-target="#board" hx-swap="outerHTML" method="post"><button>Play again</button></form>
  {{end}}
</div>
`

// boardView is the data behind boardTemplate.
type boardView struct {
    ID     string
    Board  domain.Board
    Status string
    Over   bool
    Error  string
}

func newBoardView(gs app.Session, errMsg string) boardView {
    return boardView{
        ID:     gs.ID,
        Board:  gs.Game.Board,
        Status: statusLine(gs),
        Over:   gs.Game.Over(),
        Error:  errMsg,
    }
}

func statusLine(gs app.Session) string {
    out := gs.Game.Outcome()
    switch out.Kind {
    case domain.Win:
        if ai := gs.AISide(); ai != domain.Empty {
            if out.Winner == ai {
                return "The computer wins"
            }
            return "You win"
        }
        return out.Winner.String() + " wins"
    case domain.Draw:
        return "Draw"
    }
    return gs.Game.Turn.String() + " to move"
}

const playerCookie = "player_id"

// Helper to set cookie
func ensurePlayerCookie(w http.ResponseWriter, r *http.Request) string {
    if c, err := r.Cookie(playerCookie); err == nil && c.Value != "" {
        return c.Value
    }
    v := app.NewPlayerID()
    http.SetCookie(w, &http.Cookie{Name: playerCookie, Value: v, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
    return v
}

// playerID identifies API callers by header, then cookie. It may be empty.
func playerID(r *http.Request) string {
    if v := r.Header.Get("X-Player-ID"); v != "" {
        return v
    }
    if c, err := r.Cookie(playerCookie); err == nil {
        return c.Value
    }
    return ""
}
