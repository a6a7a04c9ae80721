// Package commands parses prefixed chat commands and routes them to handlers.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// DefaultPrefix is the command prefix users type, e.g. "!notes".
const DefaultPrefix = "!"

var (
	// ErrNotACommand is returned by Parse when the text carries no known prefix.
	ErrNotACommand = errors.New("not a command (missing prefix)")
	// ErrUnknownCommand is returned by Route for a prefixed word nobody registered.
	ErrUnknownCommand = errors.New("unknown command")
)

// Command is a parsed command line.
type Command struct {
	Name string
	// Args are the whitespace-separated words after the name.
	Args []string
	// RawArgs is everything after the name with inner spacing preserved.
	RawArgs string
}

// Request is one inbound message from a user.
type Request struct {
	UserID    string
	Text      string
	RequestID string
}

// Handler produces the single text reply for a command. An empty reply means
// "say nothing".
type Handler func(ctx context.Context, cmd *Command, req Request) (string, error)

type Router struct {
	prefixes []string
	handlers map[string]Handler
	order    []string
	log      *slog.Logger
}

// NewRouter creates a router accepting any of prefixes (DefaultPrefix when none).
func NewRouter(log *slog.Logger, prefixes ...string) *Router {
	if len(prefixes) == 0 {
		prefixes = []string{DefaultPrefix}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		prefixes: prefixes,
		handlers: make(map[string]Handler),
		log:      log.With("component", "router"),
	}
}

// Prefix is the prefix shown to users in usage text.
func (r *Router) Prefix() string { return r.prefixes[0] }

// Register installs handler for name, replacing any earlier one.
func (r *Router) Register(name string, handler Handler) {
	if _, ok := r.handlers[name]; !ok {
		r.order = append(r.order, name)
	}
	r.handlers[name] = handler
}

// Names lists registered commands in registration order.
func (r *Router) Names() []string {
	return append([]string(nil), r.order...)
}

// Parse splits text into a command. "/notes@forsai_bot" parses as "notes".
func (r *Router) Parse(text string) (*Command, error) {
	text = strings.TrimSpace(text)

	var body string
	found := false
	for _, p := range r.prefixes {
		if strings.HasPrefix(text, p) {
			body = strings.TrimPrefix(text, p)
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNotACommand
	}

	name, rest := body, ""
	if i := strings.IndexFunc(body, unicode.IsSpace); i >= 0 {
		name, rest = body[:i], body[i:]
	}
	name, _, _ = strings.Cut(name, "@")
	if name == "" {
		return nil, ErrNotACommand
	}

	rest = strings.TrimSpace(rest)
	return &Command{
		Name:    name,
		Args:    strings.Fields(rest),
		RawArgs: rest,
	}, nil
}

// Route parses req.Text and runs the matching handler.
func (r *Router) Route(ctx context.Context, req Request) (string, error) {
	cmd, err := r.Parse(req.Text)
	if err != nil {
		return "", err
	}
	handler, ok := r.handlers[cmd.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}

	start := time.Now()
	reply, err := handler(ctx, cmd, req)
	log := r.log.With("request_id", req.RequestID, "command", cmd.Name, "user", req.UserID)
	if err != nil {
		log.Error("command failed", "err", err, "duration", time.Since(start))
		return "", fmt.Errorf("%s: %w", cmd.Name, err)
	}
	log.Debug("command handled", "duration", time.Since(start))
	return reply, nil
}
