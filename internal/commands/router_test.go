package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	r := NewRouter(nil, "!", "/")

	tests := []struct {
		input    string
		wantName string
		wantArgs []string
		wantRaw  string
		wantErr  bool
	}{
		{input: "!ping", wantName: "ping", wantArgs: nil, wantRaw: ""},
		{input: "  !notes  ", wantName: "notes", wantRaw: ""},
		{input: "!note buy milk", wantName: "note", wantArgs: []string{"buy", "milk"}, wantRaw: "buy milk"},
		{input: "!note   two  spaces inside", wantName: "note", wantArgs: []string{"two", "spaces", "inside"}, wantRaw: "two  spaces inside"},
		{input: "!note\nfirst line\nsecond", wantName: "note", wantArgs: []string{"first", "line", "second"}, wantRaw: "first line\nsecond"},
		{input: "!delnote 2", wantName: "delnote", wantArgs: []string{"2"}, wantRaw: "2"},
		{input: "/notes@forsai_bot", wantName: "notes", wantRaw: ""},
		{input: "/ask@forsai_bot why?", wantName: "ask", wantArgs: []string{"why?"}, wantRaw: "why?"},
		{input: "just chatting", wantErr: true},
		{input: "!", wantErr: true},
		{input: "! ping", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := r.Parse(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrNotACommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, cmd.Name)
			assert.Equal(t, tt.wantRaw, cmd.RawArgs)
			if len(tt.wantArgs) == 0 {
				assert.Empty(t, cmd.Args)
			} else {
				assert.Equal(t, tt.wantArgs, cmd.Args)
			}
		})
	}
}

func TestRoute(t *testing.T) {
	r := NewRouter(nil)
	var got Request
	r.Register("echo", func(ctx context.Context, cmd *Command, req Request) (string, error) {
		got = req
		return cmd.RawArgs, nil
	})
	r.Register("boom", func(ctx context.Context, cmd *Command, req Request) (string, error) {
		return "", errors.New("disk on fire")
	})

	reply, err := r.Route(context.Background(), Request{UserID: "42", Text: "!echo hello there"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
	assert.Equal(t, "42", got.UserID)
	assert.NotEmpty(t, got.RequestID, "a request id is assigned")

	_, err = r.Route(context.Background(), Request{UserID: "42", Text: "!nope"})
	require.ErrorIs(t, err, ErrUnknownCommand)

	_, err = r.Route(context.Background(), Request{UserID: "42", Text: "/echo hi"})
	require.ErrorIs(t, err, ErrNotACommand, "only configured prefixes are accepted")

	_, err = r.Route(context.Background(), Request{UserID: "42", Text: "!boom"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestRegister_KeepsOrder(t *testing.T) {
	r := NewRouter(nil)
	h := func(ctx context.Context, cmd *Command, req Request) (string, error) { return "", nil }
	r.Register("b", h)
	r.Register("a", h)
	r.Register("b", h)

	assert.Equal(t, []string{"b", "a"}, r.Names())
	assert.Equal(t, DefaultPrefix, r.Prefix())
}
