package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"forsai/internal/core"
	"forsai/internal/notes"
	"forsai/internal/util"
)

// Replies users see. Kept together so transports and tests agree on them.
const (
	PingReply          = "I’m here. Unfortunately for procrastination."
	NotedReply         = "Noted. This one is *your* responsibility."
	NoNotesReply       = "I have nothing recorded for you. Enjoy the silence."
	NothingToDelete    = "There is nothing to delete."
	BadNoteNumberReply = "That note number does not exist. Try again."
	ForgotReply        = "Conversation cleared. I remember nothing. Lucky me."
	ApologyReply       = "Sorry, my brain is offline right now. Try again in a bit."
	FailureReply       = "Something went wrong on my side. Try again later."
	notesHeader        = "📖 **Your Notes**\n"
)

// Asker answers a free-text question for a user.
type Asker interface {
	Ask(ctx context.Context, userID, question string) (string, error)
}

// Bot owns the handlers behind the router. Asker and Convos may be nil, in
// which case !ask and !forget are not offered.
type Bot struct {
	Notes  *notes.Store
	Asker  Asker
	Convos *core.Conversations
	Log    *slog.Logger

	askLocks util.KeyedMutex
	prefix   string
}

// Router builds a router with every handler this bot supports.
func (b *Bot) Router(prefixes ...string) *Router {
	if b.Log == nil {
		b.Log = slog.Default()
	}
	r := NewRouter(b.Log, prefixes...)
	b.prefix = r.Prefix()

	r.Register("ping", b.ping)
	r.Register("note", b.note)
	r.Register("notes", b.listNotes)
	r.Register("delnote", b.delNote)
	if b.Asker != nil {
		r.Register("ask", b.ask)
		if b.Convos != nil {
			r.Register("forget", b.forget)
		}
	}
	r.Register("help", b.help(r))
	return r
}

func (b *Bot) ping(ctx context.Context, cmd *Command, req Request) (string, error) {
	return PingReply, nil
}

func (b *Bot) note(ctx context.Context, cmd *Command, req Request) (string, error) {
	if cmd.RawArgs == "" {
		return b.usage("note <text>"), nil
	}
	if err := b.Notes.AddNote(req.UserID, cmd.RawArgs); err != nil {
		return "", err
	}
	return NotedReply, nil
}

func (b *Bot) listNotes(ctx context.Context, cmd *Command, req Request) (string, error) {
	list, err := b.Notes.ListNotes(req.UserID)
	if err != nil {
		return "", err
	}
	if len(list) == 0 {
		return NoNotesReply, nil
	}
	var sb strings.Builder
	sb.WriteString(notesHeader)
	for i, n := range list {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, util.EscapeEmphasis(n))
	}
	return sb.String(), nil
}

func (b *Bot) delNote(ctx context.Context, cmd *Command, req Request) (string, error) {
	if len(cmd.Args) == 0 {
		return b.usage("delnote <number>"), nil
	}
	idx, err := strconv.Atoi(cmd.Args[0])
	if err != nil {
		return BadNoteNumberReply, nil
	}
	removed, err := b.Notes.RemoveNote(req.UserID, idx)
	switch {
	case errors.Is(err, notes.ErrNoNotes):
		return NothingToDelete, nil
	case errors.Is(err, notes.ErrIndexOutOfRange):
		return BadNoteNumberReply, nil
	case err != nil:
		return "", err
	}
	return fmt.Sprintf("Removed note: *%s*", util.EscapeEmphasis(removed)), nil
}

func (b *Bot) ask(ctx context.Context, cmd *Command, req Request) (string, error) {
	if cmd.RawArgs == "" {
		return b.usage("ask <question>"), nil
	}
	// one question per user in flight, so turns never interleave
	unlock := b.askLocks.Lock(req.UserID)
	defer unlock()

	reply, err := b.Asker.Ask(ctx, req.UserID, cmd.RawArgs)
	if err != nil {
		b.Log.Error("ask failed", "request_id", req.RequestID, "user", req.UserID, "err", err)
		return ApologyReply, nil
	}
	return reply, nil
}

func (b *Bot) forget(ctx context.Context, cmd *Command, req Request) (string, error) {
	b.Convos.Reset(req.UserID)
	return ForgotReply, nil
}

func (b *Bot) help(r *Router) Handler {
	return func(ctx context.Context, cmd *Command, req Request) (string, error) {
		descriptions := map[string]string{
			"ping":    "check I'm alive",
			"note":    "<text> - remember something",
			"notes":   "list your notes",
			"delnote": "<number> - delete a note",
			"ask":     "<question> - ask me anything",
			"forget":  "clear our conversation",
			"help":    "this message",
		}
		var sb strings.Builder
		sb.WriteString("**Commands**\n")
		for _, name := range r.Names() {
			fmt.Fprintf(&sb, "%s%s %s\n", r.Prefix(), name, descriptions[name])
		}
		return sb.String(), nil
	}
}

func (b *Bot) usage(syntax string) string {
	return "Usage: " + b.prefix + syntax
}
