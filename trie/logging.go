package trie

import (
	"context"
	"log/slog"

	"github.com/zethtrie/sparsetrie/log"
)

// discardHandler is a slog.Handler that drops every record. It backs the
// package's disabledLogger so diagnostic calls are cheap no-ops when the
// caller does not supply a logger.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h discardHandler) WithGroup(string) slog.Handler           { return h }

// moduleLogger returns a logger scoped to the trie package, falling back
// to a disabled logger when l is nil so call sites never need a nil check.
func moduleLogger(l *log.Logger) *log.Logger {
	if l == nil {
		return disabledLogger
	}
	return l.Module("trie")
}

// disabledLogger discards everything written to it. It exists so a Trie
// constructed without an explicit logger still has somewhere safe to send
// its Debug-level diagnostic tracing.
var disabledLogger = log.NewWithHandler(discardHandler{})
