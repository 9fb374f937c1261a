// attend.go implements the interactive agent console.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/relaydesk/relaydesk/internal/api"
	"github.com/relaydesk/relaydesk/internal/backoff"
	"github.com/relaydesk/relaydesk/internal/events"
	"github.com/relaydesk/relaydesk/internal/reconcile"
	"github.com/relaydesk/relaydesk/internal/session"
	"github.com/relaydesk/relaydesk/internal/transcript"
	"github.com/relaydesk/relaydesk/internal/transport"
	"github.com/relaydesk/relaydesk/pkg/models"
)

func runAttend(ctx context.Context, agentID string, debug bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, debug)
	if agentID == "" {
		agentID = cfg.Agent.ID
	}

	notifier := terminalNotifier{out: os.Stdout}
	bus := events.NewBus(logger)
	escalations := reconcile.NewEscalationList(logger)
	messageLog := reconcile.NewMessageLog(logger)
	restClient := api.NewClient(cfg.Server.APIBaseURL)

	var archiver session.Archiver
	if cfg.Transcript.Enabled {
		store, err := transcript.Open(cfg.Transcript.Path, logger)
		if err != nil {
			return fmt.Errorf("open transcript archive: %w", err)
		}
		defer store.Close()
		archiver = store
	}

	client := transport.NewClient(transport.Options{
		URL:               cfg.Server.WebsocketURL,
		Mode:              transport.ModeAgent,
		ActorID:           agentID,
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

	ctrl := session.NewController(session.Options{
		Transport:   client,
		Escalations: escalations,
		Log:         messageLog,
		Summaries:   restClient,
		Archiver:    archiver,
		Notifier:    notifier,
		Logger:      logger,
	})
	defer ctrl.Bind(bus)()

	// Print incoming chat for the attended room as it arrives.
	unsubChat := bus.Subscribe(events.NameNewMessage, func(ev events.Event) {
		msg := ev.(events.NewMessage).Message
		if room := messageLog.ActiveRoom(); room != nil && msg.Role != models.RoleAgent {
			fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
		}
	})
	defer unsubChat()
	unsubConnErr := bus.Subscribe(events.NameConnectionError, func(ev events.Event) {
		notifier.Error(ev.(events.ConnectionError).Message)
	})
	defer unsubConnErr()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect()
	notifier.Success("Connected as " + agentID)

	// Seed the queue from REST; pushes keep it current afterwards.
	if records, err := restClient.GetEscalations(ctx, "pending", 50); err != nil {
		notifier.Error("Could not load escalations: " + err.Error())
	} else {
		escalations.ApplySnapshot(records)
		fmt.Printf("%d escalations pending. Type /list to see them, /join <roomId> to attend.\n", escalations.Len())
	}

	return attendLoop(ctx, os.Stdin, ctrl, escalations, messageLog, notifier)
}

// attendLoop reads console input until /quit or EOF.
func attendLoop(ctx context.Context, in *os.File, ctrl *session.Controller, escalations *reconcile.EscalationList, messageLog *reconcile.MessageLog, notifier terminalNotifier) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return nil

		case line == "/list":
			escs := escalations.SortForDisplay()
			if len(escs) == 0 {
				fmt.Println("No escalations pending.")
				continue
			}
			printEscalations(escs)

		case strings.HasPrefix(line, "/join "):
			roomID := strings.TrimSpace(strings.TrimPrefix(line, "/join"))
			if roomID == "" {
				notifier.Error("Usage: /join <roomId>")
				continue
			}
			if err := ctrl.HandleJoinRoom(ctx, roomID); err != nil {
				continue // controller already notified
			}
			for _, msg := range messageLog.Messages() {
				fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
			}

		case line == "/close":
			room := messageLog.ActiveRoom()
			if room == nil {
				notifier.Error("Not attending a room")
				continue
			}
			// Errors are surfaced through the notifier.
			_ = ctrl.HandleCloseSession(room.RoomID, func() bool {
				return promptYesNo(scanner, "Close this session? [y/N] ")
			})

		case line == "/leave":
			room := messageLog.ActiveRoom()
			if room == nil {
				notifier.Error("Not attending a room")
				continue
			}
			_ = ctrl.HandleLeaveRoom(room.RoomID)

		case line == "/summary":
			sum := ctrl.Summary()
			if sum == nil {
				fmt.Println("No summary loaded.")
				continue
			}
			printSummary(*sum)

		case strings.HasPrefix(line, "/"):
			notifier.Error("Unknown command: " + line)

		default:
			room := messageLog.ActiveRoom()
			if room == nil {
				notifier.Error("Join a room first (/join <roomId>)")
				continue
			}
			_ = ctrl.HandleSendMessage(room.RoomID, line)
		}
	}
}

func promptYesNo(scanner *bufio.Scanner, prompt string) bool {
	fmt.Print(prompt)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func printSummary(sum models.SessionSummary) {
	if sum.User.Name != "" {
		fmt.Println("Customer:", sum.User.Name)
	}
	if sum.User.Phone != "" {
		fmt.Println("Phone:", sum.User.Phone)
	}
	if sum.Session.MessageCount > 0 {
		fmt.Printf("Messages so far: %d\n", sum.Session.MessageCount)
	}
	if sum.Summary != "" {
		fmt.Println("Summary:", sum.Summary)
	}
	for _, issue := range sum.Issues {
		fmt.Println("  issue:", issue)
	}
	for _, point := range sum.KeyPoints {
		fmt.Println("  key point:", point)
	}
	if sum.Sentiment != "" {
		fmt.Println("Sentiment:", sum.Sentiment)
	}
	if sum.EscalationReason != "" {
		fmt.Println("Escalated because:", sum.EscalationReason)
	}
}
