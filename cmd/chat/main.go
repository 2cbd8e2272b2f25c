// Command chat is a line-oriented client for the chat-storage and
// completion services: list, select, create, and delete sessions, and
// submit prompts against the selected one.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/harshdhankhar10/bucketwings-chat/internal/apperr"
	"github.com/harshdhankhar10/bucketwings-chat/internal/client"
	"github.com/harshdhankhar10/bucketwings-chat/internal/completion"
	"github.com/harshdhankhar10/bucketwings-chat/internal/config"
	"github.com/harshdhankhar10/bucketwings-chat/internal/controller"
	"github.com/harshdhankhar10/bucketwings-chat/internal/store"
	"github.com/harshdhankhar10/bucketwings-chat/internal/watch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	watchFeed := flag.Bool("watch", false, "follow the storage change feed and refresh the session list on remote changes")
	flag.Parse()

	provider, err := buildProvider(ctx, cfg.Completion, logger)
	if err != nil {
		logger.Fatal("failed to build completion provider", zap.Error(err))
	}

	persistence := client.NewPersistence(cfg.Storage.BaseURL, cfg.Storage.Token, cfg.Storage.Timeout, logger)

	notifier := controller.NotifierFunc(func(kind apperr.Kind, message string) {
		fmt.Printf("! [%s] %s\n", kind, message)
	})

	ctrl := controller.New(store.New(), persistence, provider, notifier, logger)

	if err := ctrl.RefreshSessions(ctx); err != nil {
		os.Exit(1)
	}

	if *watchFeed {
		watcher := watch.New(cfg.Storage.WatchURL, cfg.Storage.Token, logger)
		go func() {
			for range watcher.Run(ctx) {
				if err := ctrl.RefreshSessions(ctx); err != nil {
					return
				}
			}
		}()
	}

	repl(ctx, ctrl)
}

func buildProvider(ctx context.Context, cfg config.CompletionConfig, logger *zap.Logger) (controller.CompletionClient, error) {
	if cfg.Provider == "ark" {
		chatModel, err := cfg.Ark.NewChatModel(ctx)
		if err != nil {
			return nil, err
		}
		return completion.NewArk(ctx, chatModel, cfg.Timeout, logger)
	}

	return completion.NewGemini(completion.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.Timeout,
	}, logger), nil
}

func repl(ctx context.Context, ctrl *controller.Controller) {
	fmt.Println("bucketwings chat - commands: ls, new, sel <n>, del <n>, quit; anything else is sent as a prompt")
	printSessions(ctrl)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		if ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		cmd := ""
		if len(fields) > 0 {
			cmd = fields[0]
		}

		switch cmd {
		case "quit", "exit":
			return

		case "ls":
			if ctrl.RefreshSessions(ctx) == nil {
				printSessions(ctrl)
			}

		case "new":
			if session, err := ctrl.CreateChat(ctx); err == nil {
				fmt.Printf("created session %s\n", session.ID)
				printSessions(ctrl)
			}

		case "sel":
			if id, ok := sessionArg(ctrl, fields); ok {
				if ctrl.SelectChat(ctx, id) == nil {
					printTranscript(ctrl)
				}
			}

		case "del":
			if id, ok := sessionArg(ctrl, fields); ok {
				if ctrl.DeleteChat(ctx, id) == nil {
					fmt.Printf("deleted session %s\n", id)
					printSessions(ctrl)
				}
			}

		case "":
			// Blank line, nothing to do.

		default:
			ctrl.SetPrompt(line)
			if ctrl.SendMessage(ctx) == nil {
				printLastTurn(ctrl)
			}
		}
	}
}

// sessionArg resolves a 1-based list index into a session id.
func sessionArg(ctrl *controller.Controller, fields []string) (string, bool) {
	if len(fields) < 2 {
		fmt.Println("usage: sel|del <n>")
		return "", false
	}

	n, err := strconv.Atoi(fields[1])
	sessions := ctrl.Store().Sessions()
	if err != nil || n < 1 || n > len(sessions) {
		fmt.Printf("no such session: %s\n", fields[1])
		return "", false
	}
	return sessions[n-1].ID, true
}

func printSessions(ctrl *controller.Controller) {
	sessions := ctrl.Store().Sessions()
	if len(sessions) == 0 {
		fmt.Println("no sessions yet - use 'new' to start one")
		return
	}

	selected := ctrl.Store().SelectedID()
	for i, sess := range sessions {
		marker := " "
		if sess.ID == selected {
			marker = "*"
		}
		preview := sess.LatestMessagePreview
		if preview == "" {
			preview = "(empty)"
		}
		fmt.Printf("%s %2d. %s  %s\n", marker, i+1, sess.CreatedAt.Local().Format("2006-01-02 15:04"), preview)
	}
}

func printTranscript(ctrl *controller.Controller) {
	messages := ctrl.Store().Messages()
	if len(messages) == 0 {
		fmt.Println("(no messages)")
		return
	}
	for _, msg := range messages {
		fmt.Printf("you: %s\n ai: %s\n", msg.Question, msg.Answer)
	}
}

func printLastTurn(ctrl *controller.Controller) {
	messages := ctrl.Store().Messages()
	if len(messages) == 0 {
		return
	}
	last := messages[len(messages)-1]
	fmt.Printf(" ai: %s\n", last.Answer)
}
