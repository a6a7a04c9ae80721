package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"forsai/internal/commands"
	"forsai/internal/util"
)

func init() {
	cmd := &cobra.Command{
		Use:   "exec [command...]",
		Short: "Run one bot command locally and print the reply",
		Long: "Run one bot command against the configured note store and completion API\n" +
			"without connecting to Telegram, e.g. forsai exec --user 42 '!note buy milk'.\n" +
			"The leading ! may be omitted.",
		Args: cobra.MinimumNArgs(1),
		RunE: runExec,
	}
	cmd.Flags().StringP("user", "u", "", "User id the command runs as (required)")
	_ = cmd.MarkFlagRequired("user")

	RootCmd.AddCommand(cmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	user, _ := cmd.Flags().GetString("user")
	user = strings.TrimSpace(user)
	if user == "" {
		return errors.New("exec: --user must not be empty")
	}

	router := buildRouter(cfg, log)
	text := strings.Join(args, " ")
	if _, err := router.Parse(text); errors.Is(err, commands.ErrNotACommand) {
		text = router.Prefix() + text
	}

	reply, err := router.Route(cmd.Context(), commands.Request{UserID: user, Text: text})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(util.PlainText(reply), "\n"))
	return err
}
