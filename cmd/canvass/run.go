package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/canvass"
	"github.com/aretw0/canvass/pkg/adapters/file"
	"github.com/aretw0/canvass/pkg/domain"
)

var runCmd = &cobra.Command{
	Use:   "run <workflow-id>",
	Short: "Run a workflow interactively",
	Long:  `Starts a workflow traversal on the terminal, prompting for each question. Sessions are saved after every answer and can be resumed with --session.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		sessionID, _ := cmd.Flags().GetString("session")
		workflowID := args[0]

		if sessionID == "" {
			sessionID = fmt.Sprintf("%s-%d", workflowID, time.Now().Unix())
		}

		if err := runInteractive(cmd.Context(), dir, workflowID, sessionID); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("session", "s", "", "Session id to resume (or name a new one)")
}

func runInteractive(ctx context.Context, dir, workflowID, sessionID string) error {
	sess, err := canvass.New(ctx, sessionID, workflowID, canvass.WithWorkflowDir(dir))
	if err != nil {
		return err
	}

	store := file.NewStore(filepath.Join(dir, ".canvass", "sessions"))
	now := func() int64 { return time.Now().Unix() }

	snap, err := store.Load(ctx, sessionID)
	switch {
	case err == nil:
		if err := sess.Restore(ctx, snap, now()); err != nil {
			return fmt.Errorf("failed to resume session %s: %w", sessionID, err)
		}
		fmt.Printf("Resumed session %s (%d answers recorded)\n", sessionID, len(sess.Feedback()))
	case errors.Is(err, domain.ErrSessionNotFound):
		if err := sess.Start(ctx, now()); err != nil {
			return err
		}
	default:
		return err
	}

	reader := bufio.NewReader(os.Stdin)

	for !sess.Completed() {
		q := sess.CurrentQuestion()
		if q == nil {
			break
		}

		printQuestion(ctx, sess, q)
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			// EOF: persist and leave the session resumable.
			fmt.Printf("\nSession saved as %s\n", sessionID)
			return persist(ctx, sess, store, sessionID)
		}
		raw := strings.TrimSpace(line)

		if raw == "exit" || raw == "quit" {
			if err := persist(ctx, sess, store, sessionID); err != nil {
				return err
			}
			fmt.Printf("Session saved as %s. Resume with --session %s\n", sessionID, sessionID)
			return nil
		}

		answer, err := parseAnswer(q, raw)
		if err != nil {
			fmt.Printf("  %v\n", err)
			continue
		}
		if err := sess.Answer(ctx, answer, now()); err != nil {
			fmt.Printf("  rejected: %v\n", err)
			continue
		}
		if err := persist(ctx, sess, store, sessionID); err != nil {
			return err
		}
	}

	fmt.Println("\nWorkflow complete. Collected answers:")
	for _, fb := range sess.Feedback() {
		marker := ""
		if fb.Automatic {
			marker = " (auto)"
		}
		value := fb.Answer.Value
		if fb.Sensitive {
			value = "***"
		}
		fmt.Printf("  %s = %v%s\n", fb.Question.ID, value, marker)
	}

	return persist(ctx, sess, store, sessionID)
}

func persist(ctx context.Context, sess *canvass.Session, store *file.Store, sessionID string) error {
	snap, err := sess.Serialize()
	if err != nil {
		return err
	}
	return store.Save(ctx, sessionID, snap)
}

func printQuestion(ctx context.Context, sess *canvass.Session, q *domain.Question) {
	prompt := q.Prompt
	if prompt == "" {
		prompt = q.ID
	}
	fmt.Printf("\n%s\n", prompt)
	if q.Help != "" {
		fmt.Printf("  %s\n", q.Help)
	}
	if q.Type == domain.QuestionChoice {
		for _, choice := range sess.Choices(ctx, *q) {
			fmt.Printf("  - %s\n", choice)
		}
	}
	if q.Default != nil {
		fmt.Printf("  (default: %v)\n", q.Default)
	}
}

// parseAnswer converts terminal input to a typed answer. An empty line picks
// the question's default when one exists.
func parseAnswer(q *domain.Question, raw string) (domain.Answer, error) {
	if raw == "" && q.Default != nil {
		return domain.Answer{Type: q.Type, Value: q.Default}, nil
	}

	switch q.Type {
	case domain.QuestionInteger:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.Answer{}, fmt.Errorf("expected a whole number, got %q", raw)
		}
		return domain.Answer{Type: q.Type, Value: n}, nil

	case domain.QuestionBoolean:
		switch strings.ToLower(raw) {
		case "y", "yes", "true":
			return domain.Answer{Type: q.Type, Value: true}, nil
		case "n", "no", "false":
			return domain.Answer{Type: q.Type, Value: false}, nil
		}
		return domain.Answer{}, fmt.Errorf("expected yes or no, got %q", raw)

	default:
		return domain.Answer{Type: q.Type, Value: raw}, nil
	}
}
