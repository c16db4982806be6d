package main

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"qbridge/internal/api"
	"qbridge/internal/ipc"
	"qbridge/internal/questions"
	"qbridge/internal/textutil"
)

const maxQuestionText = 160

func newQuestionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "questions",
		Aliases: []string{"q"},
		Short:   "List, answer, and watch pending installer questions",
	}
	cmd.AddCommand(newQuestionsListCommand(ctx))
	cmd.AddCommand(newQuestionsAnswerCommand(ctx))
	cmd.AddCommand(newQuestionsWatchCommand(ctx))
	return cmd
}

func newQuestionsListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show pending questions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ListQuestions()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Questions)
				}
				writeQuestions(cmd.OutOrStdout(), resp.Questions)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print questions as JSON")
	return cmd
}

func newQuestionsAnswerCommand(ctx *commandContext) *cobra.Command {
	var password string
	var passwordStdin bool
	cmd := &cobra.Command{
		Use:   "answer <id> <option>",
		Short: "Answer a pending question",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid question id %q", args[0])
			}
			answer := api.Answer{Generic: questions.GenericAnswer{Answer: args[1]}}
			switch {
			case passwordStdin:
				secret, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				answer.WithPassword = &questions.PasswordAnswer{Password: secret}
			case cmd.Flags().Changed("password"):
				answer.WithPassword = &questions.PasswordAnswer{Password: password}
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Answer(ipc.AnswerRequest{ID: uint32(id), Answer: answer})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password for questions that ask for one")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from the first line of stdin")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
	return cmd
}

func newQuestionsWatchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow question changes and re-list on every change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.API.Bind) == "" {
				return errors.New("watch needs the HTTP API; set api.bind")
			}
			url, err := api.WatchURL(cfg.API.Bind)
			if err != nil {
				return err
			}

			watchCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			relist := func() error {
				return ctx.withClient(func(client *ipc.Client) error {
					resp, err := client.ListQuestions()
					if err != nil {
						return err
					}
					writeQuestions(out, resp.Questions)
					return nil
				})
			}
			if err := relist(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", url)
			return api.Watch(watchCtx, url, func(ev api.ChangeEvent) error {
				fmt.Fprintf(out, "%s %s\n", time.Now().Format(time.TimeOnly), ev.Type)
				return relist()
			})
		},
	}
	return cmd
}

func writeQuestions(w io.Writer, items []api.Question) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No pending questions")
		return
	}
	sorted := slices.Clone(items)
	slices.SortFunc(sorted, func(a, b api.Question) int {
		return cmp.Compare(a.Generic.ID, b.Generic.ID)
	})
	rows := make([][]string, 0, len(sorted))
	for _, q := range sorted {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(q.Generic.ID), 10),
			classLabel(q.Generic.Class),
			textutil.Truncate(textutil.SingleLine(q.Generic.Text), maxQuestionText),
			textutil.SingleLine(strings.Join(q.Generic.Options, ", ")),
			textutil.SingleLine(q.Generic.DefaultOption),
			yesNo(q.WithPassword != nil),
		})
	}
	fmt.Fprint(w, renderTable(
		[]string{"ID", "Class", "Question", "Options", "Default", "Password"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
