package commands

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forsai/internal/completion"
	"forsai/internal/core"
	"forsai/internal/notes"
)

type fakeAsker struct {
	reply string
	err   error
	calls []string
}

func (f *fakeAsker) Ask(ctx context.Context, userID, question string) (string, error) {
	f.calls = append(f.calls, userID+":"+question)
	return f.reply, f.err
}

func newBot(t *testing.T, asker Asker) (*Bot, *Router) {
	t.Helper()
	b := &Bot{
		Notes:  notes.NewStore(filepath.Join(t.TempDir(), "memory.json"), nil),
		Asker:  asker,
		Convos: core.NewConversations(core.DefaultWindow),
	}
	return b, b.Router("!", "/")
}

func route(t *testing.T, r *Router, user, text string) string {
	t.Helper()
	reply, err := r.Route(context.Background(), Request{UserID: user, Text: text})
	require.NoError(t, err, text)
	return reply
}

func TestPing(t *testing.T) {
	_, r := newBot(t, nil)
	assert.Equal(t, PingReply, route(t, r, "1", "!ping"))
}

func TestNotesScenario(t *testing.T) {
	b, r := newBot(t, nil)

	assert.Equal(t, NotedReply, route(t, r, "42", "!note buy milk"))

	raw, err := os.ReadFile(b.Notes.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":{"42":{"notes":["buy milk"]}}}`, string(raw))

	listing := route(t, r, "42", "!notes")
	assert.Contains(t, listing, "1. buy milk")
	assert.Equal(t, "📖 **Your Notes**\n1. buy milk\n", listing)

	assert.Equal(t, "Removed note: *buy milk*", route(t, r, "42", "!delnote 1"))
	assert.Equal(t, NoNotesReply, route(t, r, "42", "!notes"))
	assert.Equal(t, NothingToDelete, route(t, r, "42", "!delnote 1"))
}

func TestNotes_AreScopedPerUser(t *testing.T) {
	_, r := newBot(t, nil)
	route(t, r, "1", "!note mine")
	route(t, r, "2", "/note yours")

	assert.Equal(t, "📖 **Your Notes**\n1. mine\n", route(t, r, "1", "!notes"))
	assert.Equal(t, "📖 **Your Notes**\n1. yours\n", route(t, r, "2", "!notes"))
}

func TestDelnote_Validation(t *testing.T) {
	_, r := newBot(t, nil)
	route(t, r, "42", "!note a")
	route(t, r, "42", "!note b")

	assert.Equal(t, BadNoteNumberReply, route(t, r, "42", "!delnote 0"))
	assert.Equal(t, BadNoteNumberReply, route(t, r, "42", "!delnote 3"))
	assert.Equal(t, BadNoteNumberReply, route(t, r, "42", "!delnote two"))
	assert.Equal(t, "Usage: !delnote <number>", route(t, r, "42", "!delnote"))

	assert.Equal(t, "📖 **Your Notes**\n1. a\n2. b\n", route(t, r, "42", "!notes"))
	assert.Equal(t, "Removed note: *a*", route(t, r, "42", "!delnote 1"))
	assert.Equal(t, "📖 **Your Notes**\n1. b\n", route(t, r, "42", "!notes"))
}

func TestNotes_UserAsterisksAreLiteral(t *testing.T) {
	b, r := newBot(t, nil)
	route(t, r, "42", "!note compute 2*3 and 4*5")

	assert.Equal(t, "📖 **Your Notes**\n1. compute 2\\*3 and 4\\*5\n", route(t, r, "42", "!notes"))
	assert.Equal(t, "Removed note: *compute 2\\*3 and 4\\*5*", route(t, r, "42", "!delnote 1"))

	raw, err := os.ReadFile(b.Notes.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `{"users":{"42":{"notes":[]}}}`, string(raw))
}

func TestNote_RequiresText(t *testing.T) {
	_, r := newBot(t, nil)
	assert.Equal(t, "Usage: !note <text>", route(t, r, "42", "!note   "))
}

func TestStorageErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	b := &Bot{Notes: notes.NewStore(filepath.Join(blocker, "memory.json"), nil)}
	r := b.Router()

	_, err := r.Route(context.Background(), Request{UserID: "1", Text: "!note x"})
	require.Error(t, err)
}

func TestAsk(t *testing.T) {
	asker := &fakeAsker{reply: "hello"}
	_, r := newBot(t, asker)

	assert.Equal(t, "hello", route(t, r, "42", "!ask hi there"))
	assert.Equal(t, []string{"42:hi there"}, asker.calls)
	assert.Equal(t, "Usage: !ask <question>", route(t, r, "42", "!ask"))
}

func TestAsk_UpstreamFailureApologizes(t *testing.T) {
	asker := &fakeAsker{err: errors.New("503")}
	_, r := newBot(t, asker)

	assert.Equal(t, ApologyReply, route(t, r, "42", "!ask hi"))
}

func TestAsk_DisabledWithoutAsker(t *testing.T) {
	_, r := newBot(t, nil)

	_, err := r.Route(context.Background(), Request{UserID: "1", Text: "!ask hi"})
	require.ErrorIs(t, err, ErrUnknownCommand)
	assert.NotContains(t, route(t, r, "1", "!help"), "!ask")
}

func TestHelp_ListsEnabledCommands(t *testing.T) {
	_, r := newBot(t, &fakeAsker{})
	help := route(t, r, "1", "!help")
	for _, name := range []string{"!ping", "!note", "!notes", "!delnote", "!ask", "!forget", "!help"} {
		assert.Contains(t, help, name)
	}
}

func TestForget(t *testing.T) {
	b, r := newBot(t, &fakeAsker{reply: "x"})
	b.Convos.AppendTurn("42", core.RoleUser, "hi")

	assert.Equal(t, ForgotReply, route(t, r, "42", "!forget"))
	assert.Zero(t, b.Convos.Len("42"))
}

// The completion scenarios run through the real client against a fake endpoint.
func newCompletionBot(t *testing.T, status int, body string) (*Bot, *Router) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	window := core.NewConversations(core.DefaultWindow)
	client := completion.New(completion.Config{APIKey: "sk-test", BaseURL: srv.URL}, window, nil)
	b := &Bot{
		Notes:  notes.NewStore(filepath.Join(t.TempDir(), "memory.json"), nil),
		Asker:  client,
		Convos: window,
	}
	return b, b.Router()
}

func TestAskScenario_Success(t *testing.T) {
	b, r := newCompletionBot(t, http.StatusOK, `{"choices":[{"message":{"content":"hello"}}]}`)

	assert.Equal(t, "hello", route(t, r, "42", "!ask hi"))
	assert.Equal(t, []core.Turn{
		{Role: core.RoleUser, Content: "hi"},
		{Role: core.RoleAssistant, Content: "hello"},
	}, b.Convos.History("42"))
}

func TestAskScenario_Failure(t *testing.T) {
	b, r := newCompletionBot(t, http.StatusBadGateway, `{"error":{"message":"upstream down"}}`)

	assert.Equal(t, ApologyReply, route(t, r, "42", "!ask hi"))
	assert.Equal(t, []core.Turn{{Role: core.RoleUser, Content: "hi"}}, b.Convos.History("42"))
}
