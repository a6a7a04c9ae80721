// Package completion asks an OpenAI-compatible chat-completion endpoint a
// question on behalf of a user, carrying that user's rolling window of
// previous turns.
package completion

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"forsai/internal/core"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 30 * time.Second

	// DefaultPersona is used when the persona file does not exist.
	DefaultPersona = "You are ForsAI, a dry-witted assistant who helps people stop procrastinating. Keep answers short."
)

var ErrEmptyReply = errors.New("completion: no reply content")

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	PersonaPath string
	Timeout     time.Duration
}

type Client struct {
	api     openai.Client
	model   string
	persona string
	window  *core.Conversations
	log     *slog.Logger
}

// New builds a client that records turns in window. Calls are never retried.
func New(cfg Config, window *core.Conversations, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if window == nil {
		window = core.NewConversations(core.DefaultWindow)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		api: openai.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(cfg.Timeout),
			option.WithMaxRetries(0),
		),
		model:   cfg.Model,
		persona: cfg.PersonaPath,
		window:  window,
		log:     log.With("component", "completion"),
	}
}

func (c *Client) Window() *core.Conversations { return c.window }

// Persona reads the persona file. It is read on every call so edits apply
// without a restart.
func (c *Client) Persona() (string, error) {
	if c.persona == "" {
		return DefaultPersona, nil
	}
	b, err := os.ReadFile(c.persona)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultPersona, nil
		}
		return "", fmt.Errorf("completion: persona: %w", err)
	}
	p := strings.TrimSpace(string(b))
	if p == "" {
		return DefaultPersona, nil
	}
	return p, nil
}

// Ask sends question with the user's history and returns the first choice.
//
// The user turn is committed to the window before the request is made and
// stays there if the request fails; only a successful reply is appended as
// the assistant turn.
func (c *Client) Ask(ctx context.Context, userID, question string) (string, error) {
	persona, err := c.Persona()
	if err != nil {
		return "", err
	}

	turns := c.window.BuildPrompt(userID, persona, question)
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: toMessages(turns),
	}

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("completion: request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion: no choices returned: %w", ErrEmptyReply)
	}
	reply := resp.Choices[0].Message.Content
	if strings.TrimSpace(reply) == "" {
		return "", ErrEmptyReply
	}

	c.window.AppendTurn(userID, core.RoleAssistant, reply)
	c.log.Debug("completion ok",
		"user", userID,
		"model", c.model,
		"turns", len(turns),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return reply, nil
}

func toMessages(turns []core.Turn) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(t.Content))
		case core.RoleAssistant:
			out = append(out, openai.AssistantMessage(t.Content))
		default:
			out = append(out, openai.UserMessage(t.Content))
		}
	}
	return out
}
