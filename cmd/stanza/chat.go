package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stanza-ai/stanza/pkg/api"
	"github.com/stanza-ai/stanza/pkg/config"
	"github.com/stanza-ai/stanza/pkg/history"
	"github.com/stanza-ai/stanza/pkg/models"
	"github.com/stanza-ai/stanza/pkg/resilience"
)

func newChatCmd() *cobra.Command {
	var (
		configPath string
		model      string
		system     string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if model != "" {
				cfg.Endpoint.Model = model
			}
			if system != "" {
				cfg.Chat.SystemPrompt = system
			}
			if cfg.Endpoint.Model == "" {
				return fmt.Errorf("no model configured; set endpoint.model or pass --model")
			}

			client, _, cleanup, err := buildClient(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			var hist history.Store
			if cfg.History.Enabled {
				h, err := history.New(cfg.History.DBPath)
				if err != nil {
					return fmt.Errorf("open history db: %w", err)
				}
				defer h.Close()
				hist = h
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runChat(ctx, cfg, client, hist)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to stanza config file")
	cmd.Flags().StringVar(&model, "model", "", "model to chat with (overrides config)")
	cmd.Flags().StringVar(&system, "system", "", "system prompt (overrides config)")

	return cmd
}

// session holds the state of one interactive chat.
type session struct {
	cfg      *config.Config
	client   *resilience.Client
	hist     history.Store
	conv     models.Conversation
	messages []models.ChatMessage
}

func runChat(ctx context.Context, cfg *config.Config, client *resilience.Client, hist history.Store) error {
	s := &session{cfg: cfg, client: client, hist: hist}

	if hist != nil {
		conv, err := hist.StartConversation(ctx, time.Now().Format("chat 2006-01-02 15:04"))
		if err != nil {
			return err
		}
		s.conv = conv
	}

	fmt.Printf("Chatting with %s at %s. Type /help for commands, /quit to exit.\n\n",
		cfg.Endpoint.Model, cfg.Endpoint.BaseURL)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := s.handleCommand(line); quit {
				return nil
			}
			continue
		}

		if err := s.turn(ctx, line); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

// turn sends one user message and prints the reply.
func (s *session) turn(ctx context.Context, input string) error {
	s.messages = append(s.messages, models.ChatMessage{Role: "user", Content: input})

	req := models.ChatRequest{
		Model:    s.cfg.Endpoint.Model,
		Messages: s.window(),
	}
	if s.cfg.Chat.Temperature > 0 {
		t := s.cfg.Chat.Temperature
		req.Temperature = &t
	}
	if s.cfg.Chat.MaxTokens > 0 {
		m := s.cfg.Chat.MaxTokens
		req.MaxTokens = &m
	}

	payload, err := api.ChatPayload(req)
	if err != nil {
		return err
	}

	res, err := s.client.Send(ctx, resilience.Request{
		Path:    api.PathChatCompletions,
		Payload: payload,
	})
	if err != nil {
		// The conversation survives a failed turn; drop the unanswered
		// message so a retyped prompt is not doubled.
		s.messages = s.messages[:len(s.messages)-1]
		printSendError(err)
		if errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	resp, err := api.ParseChatResponse(res.Payload)
	if err != nil {
		s.messages = s.messages[:len(s.messages)-1]
		printSendError(err)
		return nil
	}
	content := api.ExtractContent(resp)

	if res.Stale() {
		age := time.Since(res.StoredAt).Round(time.Second)
		fmt.Printf("\n[degraded: cached response from %s ago, %s]\n", age, res.Reason)
	}
	fmt.Printf("\n%s\n\n", content)

	s.messages = append(s.messages, models.ChatMessage{Role: "assistant", Content: content})
	s.record(ctx, input, content, res, resp.Usage)
	return nil
}

// window returns the system prompt plus the trailing history window.
func (s *session) window() []models.ChatMessage {
	msgs := s.messages
	if w := s.cfg.Chat.HistoryWindow; w > 0 && len(msgs) > w {
		msgs = msgs[len(msgs)-w:]
	}
	if s.cfg.Chat.SystemPrompt == "" {
		return msgs
	}
	out := make([]models.ChatMessage, 0, len(msgs)+1)
	out = append(out, models.ChatMessage{Role: "system", Content: s.cfg.Chat.SystemPrompt})
	return append(out, msgs...)
}

// record persists both sides of the turn; history failures only warn.
func (s *session) record(ctx context.Context, input, content string, res resilience.Result, usage *models.Usage) {
	if s.hist == nil {
		return
	}
	if err := s.hist.AppendTurn(ctx, models.Turn{
		ConversationID: s.conv.ID, Role: "user", Content: input,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: record turn: %v\n", err)
		return
	}
	turn := models.Turn{
		ConversationID: s.conv.ID,
		Role:           "assistant",
		Content:        content,
		Source:         res.Source.String(),
	}
	if usage != nil {
		turn.PromptTokens = usage.PromptTokens
		turn.CompletionTokens = usage.CompletionTokens
		turn.TotalTokens = usage.TotalTokens
	}
	if err := s.hist.AppendTurn(ctx, turn); err != nil {
		fmt.Fprintf(os.Stderr, "warning: record turn: %v\n", err)
	}
}

// handleCommand runs a slash command; true means quit.
func (s *session) handleCommand(line string) bool {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit":
		return true
	case "/new":
		s.messages = nil
		fmt.Println("Context cleared.")
	case "/stats":
		s.printStats()
	case "/help":
		fmt.Println("Commands: /new (clear context), /stats (cache and breaker state), /quit")
	default:
		fmt.Printf("Unknown command %q. Type /help.\n", line)
	}
	return false
}

func (s *session) printStats() {
	fmt.Printf("Breaker: %s (%d consecutive failures)\n",
		s.client.Breaker().State(), s.client.Breaker().ConsecutiveFailures())
	if cache := s.client.Cache(); cache != nil {
		st := cache.Stats()
		fmt.Printf("Cache:   %d entries, %d hits, %d misses, %d stale hits, %d evictions\n",
			st.Entries, st.Hits, st.Misses, st.StaleHits, st.Evictions)
	} else {
		fmt.Println("Cache:   disabled")
	}
	fmt.Printf("Context: %d messages\n", len(s.messages))
}

func printSendError(err error) {
	switch {
	case errors.Is(err, resilience.ErrServiceUnavailable):
		fmt.Printf("\nThe endpoint is unavailable and no cached response exists. Try again shortly.\n\n")
	case errors.Is(err, resilience.ErrUpstream):
		fmt.Printf("\nThe endpoint kept failing: %v\n\n", err)
	case errors.Is(err, context.Canceled):
		fmt.Println("\nCancelled.")
	default:
		fmt.Printf("\nRequest failed: %v\n\n", err)
	}
}
