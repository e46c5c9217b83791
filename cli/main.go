// Package main provides a simple interactive client for the ledger API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/xiaot623/clouseau/internal/domain"
)

func main() {
	addr := flag.String("addr", "http://localhost:8000", "API server address")
	provider := flag.String("provider", "", "provider to use (empty for the server default)")
	model := flag.String("model", "", "model override")
	conversationID := flag.Int64("conversation", 0, "continue an existing conversation")
	stream := flag.Bool("stream", false, "ask the provider to stream its reply")
	list := flag.Bool("list", false, "list sessions and exit")
	listProviders := flag.Bool("providers", false, "list providers and exit")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	flag.Parse()

	log.SetFlags(log.Ltime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := NewClient(*addr, *timeout)

	if *list {
		if err := printSessions(ctx, client, os.Stdout); err != nil {
			log.Fatalf("List sessions failed: %v", err)
		}
		return
	}
	if *listProviders {
		if err := printProviders(ctx, client, os.Stdout); err != nil {
			log.Fatalf("List providers failed: %v", err)
		}
		return
	}

	convID := *conversationID
	if convID == 0 {
		id, err := startConversation(ctx, client)
		if err != nil {
			log.Fatalf("Failed to start conversation: %v", err)
		}
		convID = id
		fmt.Printf("Started conversation %d\n", convID)
	} else {
		page, err := client.History(ctx, convID)
		if err != nil {
			log.Fatalf("Failed to load conversation: %v", err)
		}
		fmt.Printf("Continuing conversation %d (%d exchanges)\n", convID, page.Total)
	}

	fmt.Println("\nType a message and press Enter to send.")
	fmt.Println("Commands: /history, /quit")

	chat := domain.ChatRequest{Provider: *provider, Stream: *stream}
	if *model != "" {
		chat.Model = model
	}
	if err := repl(ctx, client, convID, chat, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Session ended: %v", err)
	}
}

func startConversation(ctx context.Context, client *Client) (int64, error) {
	stamp := time.Now().Format(time.DateTime)
	session, err := client.CreateSession(ctx, "cli "+stamp)
	if err != nil {
		return 0, err
	}
	conv, err := client.CreateConversation(ctx, session.ID, "chat "+stamp)
	if err != nil {
		return 0, err
	}
	return conv.ID, nil
}

// repl reads one message per line and prints each reply until /quit or EOF.
func repl(ctx context.Context, client *Client, convID int64, chat domain.ChatRequest, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/quit":
			fmt.Fprintln(out, "Bye!")
			return nil
		case "/history":
			page, err := client.History(ctx, convID)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			for _, ex := range page.Items {
				fmt.Fprintf(out, "you: %s\nassistant: %s\n", ex.UserMessage, ex.AssistantMessage)
			}
			continue
		}

		req := chat
		req.Message = input
		ex, err := client.Generate(ctx, convID, req)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintln(out, ex.AssistantMessage)
		if total := ex.TotalTokens(); total != nil {
			fmt.Fprintf(out, "[%s, %d tokens]\n", deref(ex.Model), *total)
		}
	}
}

func printSessions(ctx context.Context, client *Client, out io.Writer) error {
	page, err := client.ListSessions(ctx)
	if err != nil {
		return err
	}
	for _, s := range page.Items {
		fmt.Fprintf(out, "%5d  %-32s %s\n", s.ID, s.Name, s.UpdatedAt.Local().Format(time.DateTime))
	}
	fmt.Fprintf(out, "%d of %d sessions\n", len(page.Items), page.Total)
	return nil
}

func printProviders(ctx context.Context, client *Client, out io.Writer) error {
	list, err := client.Providers(ctx)
	if err != nil {
		return err
	}
	for _, p := range list.Providers {
		marker := " "
		if p.Default {
			marker = "*"
		}
		status := "ready"
		if !p.Valid {
			status = "not configured"
		}
		fmt.Fprintf(out, "%s %-12s %-10s %-32s %s\n", marker, p.Name, p.Model.Provider, p.Model.Name, status)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return "unknown model"
	}
	return *s
}
