// commands.go contains the cobra command definitions. Each builder
// wires flags and delegates to its handler.
package main

import (
	"github.com/spf13/cobra"
)

func buildAttendCmd() *cobra.Command {
	var (
		agentID string
		debug   bool
	)
	cmd := &cobra.Command{
		Use:   "attend",
		Short: "Attend escalated conversations as an agent",
		Long: `Connect to the realtime channel as an agent and work the
escalation queue interactively.

Console commands:
  /list           show pending escalations, highest priority first
  /join <roomId>  attend a room
  /close          close the attended session (asks for confirmation)
  /leave          leave the room without closing it
  /summary        show the loaded session summary
  /quit           disconnect and exit
Anything else is sent to the room as an agent message.`,
		Example: `  relaydesk attend
  relaydesk attend --agent agent_007 --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttend(cmd.Context(), agentID, debug)
		},
	}
	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "Agent id (overrides config)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func buildChatCmd() *cobra.Command {
	var (
		sessionID string
		debug     bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the support bot as an end user",
		Long: `Join a chat session on the realtime channel as an end user.
Messages you type are sent as user messages; bot and agent replies are
printed as they arrive. A fresh session id is generated when none is
given.`,
		Example: `  relaydesk chat
  relaydesk chat --session 42`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), sessionID, debug)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Chat session id (resume an existing session)")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func buildEscalationsCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "escalations",
		Short: "List pending escalations over REST",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEscalations(cmd.Context(), status, limit)
		},
	}
	cmd.Flags().StringVar(&status, "status", "pending", "Filter by status (empty for all)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of records")
	return cmd
}

func buildAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agent roster and availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgents(cmd.Context())
		},
	}
}

func buildAvailabilityCmd() *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:       "availability <on|off>",
		Short:     "Set an agent's availability",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAvailability(cmd.Context(), agentID, args[0] == "on")
		},
	}
	cmd.Flags().StringVarP(&agentID, "agent", "a", "", "Agent id (overrides config)")
	return cmd
}

func buildHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHealth(cmd.Context())
		},
	}
}

func buildAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "ask <question>",
		Short:   "Query the knowledge base",
		Args:    cobra.MinimumNArgs(1),
		Example: `  relaydesk ask "how do refunds work"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), args)
		},
	}
}

func buildUploadCmd() *cobra.Command {
	var pdf bool
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document to the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd.Context(), args[0], pdf)
		},
	}
	cmd.Flags().BoolVar(&pdf, "pdf", false, "Use the PDF ingestion pipeline")
	return cmd
}

func buildDocsCmd() *cobra.Command {
	var pdfs bool
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List knowledge-base documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDocs(cmd.Context(), pdfs)
		},
	}
	cmd.Flags().BoolVar(&pdfs, "pdfs", false, "List PDFs known to the PDF pipeline")
	return cmd
}
