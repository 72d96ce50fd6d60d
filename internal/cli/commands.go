package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/triage-service/internal/analyzer"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/service"
)

func newAnalyzeCmd() *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Classify ticket text without touching any ticket",
		Long: `Runs the content analyzer and prints language, sentiment, priority and category.

Examples:
  triagectl analyze --title "Error en factura" --description "El sistema no funciona"
  triagectl analyze "printer offline, urgent"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && description == "" {
				description = args[0]
			}
			if strings.TrimSpace(title+description) == "" {
				return fmt.Errorf("title or description required")
			}
			return printJSON(cmd.OutOrStdout(), analyzer.Analyze(title, description))
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "ticket title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "ticket description")
	return cmd
}

func newKBCmd() *cobra.Command {
	var title, description, lang string
	var limit int
	kb := &cobra.Command{
		Use:   "kb",
		Short: "Knowledge base tools",
	}
	search := &cobra.Command{
		Use:   "search",
		Short: "Preview knowledge base matching for a ticket text",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			settings, err := rt.settings(cmd.Context())
			if err != nil {
				return err
			}
			cfg := settings.Current(ctx)
			knowledge, _, err := rt.services(ctx, cfg.Name)
			if err != nil {
				return err
			}
			if limit > 0 {
				return printJSON(cmd.OutOrStdout(), knowledge.SuggestArticles(ctx, cfg, title, description, limit))
			}
			res := knowledge.GenerateKBResponse(ctx, cfg, service.KBRequest{
				Title:       title,
				Description: description,
				Language:    lang,
			})
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	search.Flags().StringVarP(&title, "title", "t", "", "ticket title")
	search.Flags().StringVarP(&description, "description", "d", "", "ticket description")
	search.Flags().StringVar(&lang, "lang", "es", "reply language (es or en)")
	search.Flags().IntVarP(&limit, "limit", "n", 0, "list raw matches instead of composing a reply")

	show := &cobra.Command{
		Use:   "show <slug>",
		Short: "Print a published article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			settings, err := rt.settings(cmd.Context())
			if err != nil {
				return err
			}
			cfg := settings.Current(ctx)
			knowledge, _, err := rt.services(ctx, cfg.Name)
			if err != nil {
				return err
			}
			article, err := knowledge.GetArticle(ctx, cfg, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), article)
		},
	}
	kb.AddCommand(search, show)
	return kb
}

func newFollowupsCmd() *cobra.Command {
	followups := &cobra.Command{
		Use:   "followups",
		Short: "Follow-up sweep tools",
	}
	run := &cobra.Command{
		Use:   "run",
		Short: "Run one follow-up sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			settings, err := rt.settings(cmd.Context())
			if err != nil {
				return err
			}
			cfg := settings.Current(ctx)
			_, sweeper, err := rt.services(ctx, cfg.Name)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), sweeper.ProcessAutoFollowup(ctx, cfg))
		},
	}
	followups.AddCommand(run)
	return followups
}

func newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change runtime assistant settings",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := rt.settings(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), settings.Current(context.Background()))
		},
	}

	var (
		enabled   bool
		name      string
		threshold int
		reminder  int
		autoClose int
		kbBaseURL string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Update runtime settings",
		Long: `Updates only the flags that are passed.

Examples:
  triagectl settings set --enabled=false
  triagectl settings set --kb-threshold 70 --reminder-hours 24`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch service.SettingsPatch
			flags := cmd.Flags()
			if flags.Changed("enabled") {
				patch.Enabled = &enabled
			}
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("kb-threshold") {
				patch.KBThreshold = &threshold
			}
			if flags.Changed("reminder-hours") {
				patch.ReminderDelayHours = &reminder
			}
			if flags.Changed("auto-close-days") {
				patch.AutoCloseDays = &autoClose
			}
			if flags.Changed("kb-base-url") {
				patch.KBBaseURL = &kbBaseURL
			}
			settings, err := rt.settings(cmd.Context())
			if err != nil {
				return err
			}
			cfg, err := settings.Update(context.Background(), patch)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cfg)
		},
	}
	set.Flags().BoolVar(&enabled, "enabled", true, "enable the assistant")
	set.Flags().StringVar(&name, "name", "", "assistant display name")
	set.Flags().IntVar(&threshold, "kb-threshold", 0, "auto-resolve score threshold (0-100)")
	set.Flags().IntVar(&reminder, "reminder-hours", 0, "hours before the first reminder")
	set.Flags().IntVar(&autoClose, "auto-close-days", 0, "days before auto-close")
	set.Flags().StringVar(&kbBaseURL, "kb-base-url", "", "knowledge base base URL")

	settingsCmd.AddCommand(show, set)
	return settingsCmd
}

func newAgentsCmd() *cobra.Command {
	agents := &cobra.Command{
		Use:   "agents",
		Short: "Staff account tools",
	}
	hash := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a staff password read from stdin",
		Long: `Reads one password line from stdin and prints its bcrypt hash using
AUTH_BCRYPT_COST, ready for the agents.password_hash column.

Example:
  echo 's3cret-pass' | triagectl agents hash-password`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := rt.load()
			if err != nil {
				return err
			}
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("read password: %w", err)
			}
			hashed, err := auth.HashPassword(strings.TrimRight(line, "\r\n"), cfg.Auth.BcryptCost)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hashed)
			return err
		},
	}
	agents.AddCommand(hash)
	return agents
}
