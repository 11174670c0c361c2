package logging

import (
    "io"
    "os"
    "time"

    "github.com/rs/zerolog"
)

// New builds the process logger. An unparsable level falls back to info.
// pretty switches to the human-readable console writer.
func New(level string, pretty bool, w io.Writer) zerolog.Logger {
    if w == nil {
        w = os.Stderr
    }
    lvl, err := zerolog.ParseLevel(level)
    if err != nil || lvl == zerolog.NoLevel {
        lvl = zerolog.InfoLevel
    }
    if pretty {
        w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
    }
    return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
