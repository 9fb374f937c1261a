// chat.go implements the end-user chatbot loop.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/relaydesk/relaydesk/internal/backoff"
	"github.com/relaydesk/relaydesk/internal/events"
	"github.com/relaydesk/relaydesk/internal/transport"
	"github.com/relaydesk/relaydesk/pkg/models"
)

func runChat(ctx context.Context, sessionID string, debug bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, debug)
	notifier := terminalNotifier{out: os.Stdout}
	if sessionID == "" {
		sessionID = "session_" + uuid.NewString()
		notifier.Info("Starting new session " + sessionID)
	}

	bus := events.NewBus(logger)
	client := transport.NewClient(transport.Options{
		URL:               cfg.Server.WebsocketURL,
		Mode:              transport.ModeUser,
		SessionID:         sessionID,
		ReconnectAttempts: cfg.Reconnect.Attempts,
		ReconnectPolicy: backoff.Policy{
			Initial: cfg.Reconnect.InitialDelay,
			Max:     cfg.Reconnect.MaxDelay,
			Factor:  2,
			Jitter:  0.2,
		},
		Logger:  logger,
		Metrics: transport.NewMetrics(nil),
	}, bus)

	unsubs := []func(){
		bus.Subscribe(events.NameNewMessage, func(ev events.Event) {
			msg := ev.(events.NewMessage).Message
			if msg.Role == models.RoleUser {
				return // our own echo
			}
			fmt.Printf("\r[%s] %s\n> ", msg.Role, msg.Content)
		}),
		bus.Subscribe(events.NameChatHistory, func(ev events.Event) {
			for _, msg := range ev.(events.ChatHistory).Messages {
				fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
			}
		}),
		bus.Subscribe(events.NameAITyping, func(ev events.Event) {
			if ev.(events.AITyping).Typing {
				fmt.Print("\r… assistant is typing\n> ")
			}
		}),
		bus.Subscribe(events.NameAgentJoined, func(ev events.Event) {
			notifier.Info("A human agent joined the conversation")
		}),
		bus.Subscribe(events.NameSessionClosed, func(ev events.Event) {
			notifier.Info("The session was closed: " + ev.(events.SessionClosed).Reason)
		}),
		bus.Subscribe(events.NameEscalationNotice, func(ev events.Event) {
			notifier.Info("Your conversation was escalated to a human agent")
		}),
		bus.Subscribe(events.NameConnectionError, func(ev events.Event) {
			notifier.Error(ev.(events.ConnectionError).Message)
		}),
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect()
	notifier.Success("Connected to session " + sessionID)
	fmt.Println("Type your message, or /quit to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}
		if err := client.SendUserMessage(sessionID, line, ""); err != nil {
			notifier.Error("Not connected; message not sent")
		}
	}
}
