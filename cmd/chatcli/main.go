package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
)

var (
	baseURL  = flag.String("base-url", "http://localhost:5000", "Backend base URL")
	token    = flag.String("token", "", "JWT access token (from /auth/login)")
	expertID = flag.String("expert", "", "Expert id to chat with")
	model    = flag.String("model", "", "Model override (empty = server default)")
)

type sseToken struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
	Type           string `json:"type"`
	Title          string `json:"title"`
	Error          string `json:"error"`
}

func main() {
	flag.Parse()

	if *token == "" {
		fmt.Fprintln(os.Stderr, "missing -token; log in via POST /auth/login first")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nShutting down...")
		cancel()
		os.Exit(0)
	}()

	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()
	fmt.Println(boldGreen("Bioassist chat"))
	fmt.Println("Type your message and press Enter. Type 'exit' or press Ctrl+C to quit.")
	fmt.Println()

	client := &http.Client{Timeout: 5 * time.Minute}
	conversationID := ""
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" {
			break
		}

		payload := map[string]any{"message": input}
		if conversationID != "" {
			payload["conversation_id"] = conversationID
		}
		if *expertID != "" {
			payload["expert_id"] = *expertID
		}
		if *model != "" {
			payload["model"] = *model
		}
		body, _ := json.Marshal(payload)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(*baseURL, "/")+"/api/chat/completions", bytes.NewReader(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "request error: %v\n", err)
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+*token)

		resp, err := client.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "request failed: %v\n", err)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			fmt.Fprintf(os.Stderr, "server returned %s\n", resp.Status)
			resp.Body.Close()
			continue
		}

		fmt.Print(boldCyan("AI: "))
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				break
			}
			var ev sseToken
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				continue
			}
			switch {
			case ev.Error != "":
				fmt.Printf("\n%s\n", color.RedString("error: %s", ev.Error))
			case ev.Type == "title_generated":
				fmt.Printf("\n%s\n", gray("(conversation titled: "+ev.Title+")"))
			default:
				fmt.Print(ev.Content)
				if ev.ConversationID != "" {
					conversationID = ev.ConversationID
				}
			}
		}
		resp.Body.Close()
		fmt.Println()
		fmt.Println()
	}
}
