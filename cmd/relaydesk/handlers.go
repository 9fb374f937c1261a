// handlers.go contains the REST one-shot handlers.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relaydesk/relaydesk/internal/api"
	"github.com/relaydesk/relaydesk/internal/reconcile"
	"github.com/relaydesk/relaydesk/pkg/models"
)

func runEscalations(ctx context.Context, status string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg, false)

	records, err := api.NewClient(cfg.Server.APIBaseURL).GetEscalations(ctx, status, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No escalations.")
		return nil
	}

	// Reuse the display ordering the console uses.
	list := reconcile.NewEscalationList(logger)
	list.ApplySnapshot(records)
	printEscalations(list.SortForDisplay())
	return nil
}

func printEscalations(escs []models.Escalation) {
	fmt.Printf("%-20s %-10s %-10s %-15s %s\n", "ROOM", "PRIORITY", "STATUS", "USER", "REASON")
	for _, esc := range escs {
		fmt.Printf("%-20s %-10s %-10s %-15s %s\n",
			esc.RoomID, orDash(string(esc.Priority)), orDash(string(esc.Status)),
			orDash(esc.UserName), orDash(esc.Reason))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runAgents(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg, false)

	agents, err := api.NewClient(cfg.Server.APIBaseURL).GetAgents(ctx)
	if err != nil {
		return err
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered.")
		return nil
	}
	fmt.Printf("%-12s %-15s %-10s %s\n", "ID", "NAME", "AVAILABLE", "ACTIVE CHATS")
	for _, a := range agents {
		fmt.Printf("%-12s %-15s %-10v %d\n", a.ID, orDash(a.Name), a.IsAvailable, a.ActiveChats)
	}
	return nil
}

func runAvailability(ctx context.Context, agentID string, available bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg, false)
	if agentID == "" {
		agentID = cfg.Agent.ID
	}

	if err := api.NewClient(cfg.Server.APIBaseURL).UpdateAgentAvailability(ctx, agentID, available); err != nil {
		return err
	}
	state := "available"
	if !available {
		state = "unavailable"
	}
	fmt.Printf("Agent %s is now %s.\n", agentID, state)
	return nil
}

func runHealth(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg, false)

	health, err := api.NewClient(cfg.Server.APIBaseURL).Health(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Backend: %s\n", health.Status)
	if health.Timestamp != "" {
		fmt.Printf("Reported at: %s\n", health.Timestamp)
	}
	return nil
}

func runAsk(ctx context.Context, words []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg, false)

	answer, err := api.NewKnowledgeClient(cfg.Server.APIBaseURL).Query(ctx, strings.Join(words, " "))
	if err != nil {
		return err
	}
	fmt.Println(answer.Answer)
	if len(answer.SourceDocuments) > 0 {
		fmt.Println("\nSources:")
		for _, doc := range answer.SourceDocuments {
			fmt.Println("  -", doc)
		}
	}
	return nil
}

func runUpload(ctx context.Context, path string, pdf bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg, false)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	kc := api.NewKnowledgeClient(cfg.Server.APIBaseURL)
	name := filepath.Base(path)
	var result api.UploadResult
	if pdf {
		result, err = kc.UploadPDF(ctx, name, f)
	} else {
		result, err = kc.Upload(ctx, name, f)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %s (%d chunks added).\n", name, result.ChunksAdded)
	return nil
}

func runDocs(ctx context.Context, pdfs bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg, false)

	kc := api.NewKnowledgeClient(cfg.Server.APIBaseURL)
	if pdfs {
		names, err := kc.ListPDFs(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No PDFs.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	docs, err := kc.Documents(ctx)
	if err != nil {
		return err
	}
	if len(docs.Documents) == 0 {
		fmt.Println("Knowledge base is empty.")
		return nil
	}
	for _, name := range docs.Documents {
		fmt.Println(name)
	}
	fmt.Printf("\n%d documents, %d chunks total.\n", len(docs.Documents), docs.TotalChunks)
	return nil
}
