// Command inspect prints what the console persisted, without starting it.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"

	"osc-console/domain"
	"osc-console/repositories"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("inspect", pflag.ContinueOnError)
	dbPath := flags.String("db", "./data/badger", "Path to the badger directory")
	what := flags.StringP("what", "w", "participants", "participants or chat")
	ref := flags.String("sender", "", "Only chat messages of this stable sender id")
	if err := flags.Parse(args); err != nil {
		return err
	}

	// Read-only so a running console keeps its lock
	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	log := logs.GetLoggerFromLevel(slog.LevelWarn)
	switch *what {
	case "participants":
		participants, err := repositories.NewParticipantRepository(db, log).ListByName()
		if err != nil {
			return err
		}
		printParticipants(out, participants)
	case "chat":
		chats := repositories.NewChatRepository(db, log)
		var messages []domain.ChatMessage
		if *ref != "" {
			messages, err = chats.ListForParticipant(*ref)
		} else {
			messages, err = chats.ListByTimestamp()
		}
		if err != nil {
			return err
		}
		printMessages(out, messages)
	default:
		return fmt.Errorf("unknown --what %q", *what)
	}
	return nil
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printParticipants(out io.Writer, participants []domain.Participant) {
	table := newTable(out, []string{"Name", "Role", "Online", "Joins", "Last active", "Last session", "Tags"})
	for _, p := range participants {
		lastActive, lastSession := "-", "-"
		if p.LastActiveAt != nil {
			lastActive = p.LastActiveAt.Format("2006-01-02 15:04:05")
		}
		if p.LastSeenSessionID != nil {
			lastSession = p.LastSeenSessionID.String()[:8]
		}
		table.Append([]string{
			p.Name,
			p.Role.String(),
			fmt.Sprint(p.Online),
			fmt.Sprint(p.JoinCount),
			lastActive,
			lastSession,
			strings.Join(p.Tags, ","),
		})
	}
	table.Render()
}

func printMessages(out io.Writer, messages []domain.ChatMessage) {
	table := newTable(out, []string{"At", "Sender", "Type", "Lang", "Watched", "Content"})
	for _, m := range messages {
		table.Append([]string{
			m.Timestamp.Format("15:04:05"),
			m.SenderName,
			m.Type.String(),
			m.Lang,
			strings.Join(m.Keywords, ","),
			m.Content,
		})
	}
	table.Render()
}
