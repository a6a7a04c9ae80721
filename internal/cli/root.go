// Package cli implements the forsai command line.
package cli

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"forsai/internal/commands"
	"forsai/internal/completion"
	"forsai/internal/config"
	"forsai/internal/core"
	"forsai/internal/notes"
	"forsai/internal/telegram"
)

var (
	configPath string
	envFile    string

	cfg config.Config
	log *slog.Logger
)

// RootCmd runs the Telegram bot when invoked without a subcommand.
var RootCmd = &cobra.Command{
	Use:           "forsai",
	Short:         "ForsAI chat bot: notes and questions over Telegram",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotEnv(envFile); err != nil {
			return err
		}
		if configPath == "" {
			configPath = os.Getenv("FORSAI_CONFIG")
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		log = newLogger(cfg, cmd.ErrOrStderr())
		slog.SetDefault(log)
		return nil
	},
	RunE: runBot,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default: $FORSAI_CONFIG)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	RootCmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Connect to Telegram and answer commands (default)",
		RunE:  runBot,
	})
}

// Execute runs the root command and returns the error with secrets redacted.
func Execute(ctx context.Context) error {
	err := RootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	return redactedError{err: err, secrets: []string{cfg.TelegramToken, cfg.OpenAIKey}}
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}
	router := buildRouter(cfg, log)
	return telegram.Run(cmd.Context(), cfg, router, log)
}

// buildRouter wires the note store, conversation window and completion
// client behind a command router. Both prefixes are accepted so Telegram's
// menu (/) and typed commands (!) behave the same.
func buildRouter(cfg config.Config, log *slog.Logger) *commands.Router {
	b := &commands.Bot{
		Notes: notes.NewStore(cfg.NotesFile, log),
		Log:   log,
	}
	if cfg.AskEnabled {
		window := core.NewConversations(cfg.HistoryWindow)
		b.Convos = window
		b.Asker = completion.New(completion.Config{
			APIKey:      cfg.OpenAIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.Model,
			PersonaPath: cfg.PersonaFile,
			Timeout:     cfg.Timeout,
		}, window, log)
	}
	return b.Router(commands.DefaultPrefix, "/")
}

type redactedError struct {
	err     error
	secrets []string
}

func (e redactedError) Error() string {
	msg := e.err.Error()
	for _, s := range e.secrets {
		if s != "" {
			msg = strings.ReplaceAll(msg, s, "<redacted>")
		}
	}
	return msg
}

func (e redactedError) Unwrap() error { return e.err }
