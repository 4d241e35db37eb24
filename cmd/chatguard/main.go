// Command chatguard runs an interactive chat session against the
// safety-gated pipeline. Each line of input is one turn; the reply is
// streamed to stdout as it arrives.
//
// Usage:
//
//	chatguard [-config config.yaml] [-user USER_ID] [-stream=false]
//
// Commands inside the session:
//
//	/history   print the conversation so far
//	/clear     erase the conversation
//	quit       exit (also: exit, q)
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/baotvdn/chatguard/pkg/chatguard"
	"github.com/baotvdn/chatguard/pkg/chatguard/audit"
	"github.com/baotvdn/chatguard/pkg/chatguard/config"
	"github.com/baotvdn/chatguard/pkg/chatguard/llm"
	"github.com/baotvdn/chatguard/pkg/chatguard/observability"
	"github.com/baotvdn/chatguard/pkg/chatguard/retry"
	"github.com/baotvdn/chatguard/pkg/chatguard/safety"
	"github.com/baotvdn/chatguard/pkg/chatguard/state"
	"github.com/baotvdn/chatguard/pkg/chatguard/thread"
)

func main() {
	configPath := flag.String("config", "", "path to config file (yaml or json)")
	userID := flag.String("user", "", "user identity for the session (default: random)")
	stream := flag.Bool("stream", true, "stream replies as they arrive")
	flag.Parse()

	if err := run(*configPath, *userID, *stream); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, userID string, stream bool) error {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if userID == "" {
		userID = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := llm.NewClient(cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	if err != nil {
		return err
	}
	client = retry.Wrap(client, retry.Config{
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff.Std(),
		MaxBackoff:     cfg.Retry.MaxBackoff.Std(),
		BackoffFactor:  retry.Default.BackoffFactor,
		Jitter:         retry.Default.Jitter,
	})

	opts := []chatguard.Option{
		chatguard.WithLogger(logger),
		chatguard.WithMetrics(observability.NewMetricsRecorder()),
		chatguard.WithModel(cfg.LLM.Model),
	}
	if cfg.LLM.MaxTokens > 0 {
		opts = append(opts, chatguard.WithMaxTokens(cfg.LLM.MaxTokens))
	}
	if cfg.Refusal != "" {
		opts = append(opts, chatguard.WithRefusal(cfg.Refusal))
	}

	var recorder safety.Recorder
	if cfg.Audit.Path != "" {
		log, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer log.Close()
		recorder = log
		opts = append(opts, chatguard.WithRecorder(recorder))
	}

	svc, err := chatguard.New(store, client, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("chatguard session (user %s) — type 'quit' to exit, '/history' or '/clear' for thread commands\n", userID)
	return repl(ctx, svc, userID, stream)
}

// repl reads one line per turn until EOF, interrupt, or a quit command.
func repl(ctx context.Context, svc *chatguard.Service, userID string, stream bool) error {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		case "/clear":
			if err := svc.Clear(ctx, userID); err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			fmt.Println("conversation cleared")
			continue
		case "/history":
			printHistory(ctx, svc, userID)
			continue
		}

		if err := turn(ctx, svc, userID, line, stream); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func turn(ctx context.Context, svc *chatguard.Service, userID, text string, stream bool) error {
	if !stream {
		reply, err := svc.Respond(ctx, userID, text)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}

	fragments, err := svc.StreamRespond(ctx, userID, text)
	if err != nil {
		return err
	}
	for f := range fragments {
		if f.Complete {
			break
		}
		fmt.Print(f.Chunk)
	}
	fmt.Println()
	return nil
}

func printHistory(ctx context.Context, svc *chatguard.Service, userID string) {
	msgs, err := svc.History(ctx, userID, 0)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return
	}
	if len(msgs) == 0 {
		fmt.Println("(no messages)")
		return
	}
	for _, m := range msgs {
		label := "you"
		if m.Role == state.RoleAssistant {
			label = "bot"
		}
		fmt.Printf("[%s] %s\n", label, m.Content)
	}
}

func newStore(cfg config.StoreConfig) (thread.Store, error) {
	if cfg.Path == "" {
		return thread.NewMemoryStore(), nil
	}
	return thread.NewSQLiteStore(cfg.Path)
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
