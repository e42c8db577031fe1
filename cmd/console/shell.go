package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"osc-console/domain"
	"osc-console/notification"
	"osc-console/runtime"
)

const searchLimit = 10

const usage = `commands:
  connect | disconnect | list | stats | search <text>
  pin|addpin|unpin|spot|unspot|mute|unmute|lower|video|novideo <name>
  clearpins | muteall | unmuteall | lowerall
  say <text> | tell <name>: <text>
  act PIN_PARTICIPANT|SEND_GREETING|LOWER_HAND <name>
  autopin|autogreet|notify|sound on|off | maxpinned <n>
  priority add|remove <tag>`

// shell reads operator commands, one per line.
type shell struct {
	orchestrator *runtime.Orchestrator
	policy       *notification.Policy
	out          io.Writer
	log          *slog.Logger
}

func newShell(orchestrator *runtime.Orchestrator, policy *notification.Policy, out io.Writer, log *slog.Logger) *shell {
	return &shell{orchestrator: orchestrator, policy: policy, out: out, log: log}
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := s.execute(ctx, line); err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
	return scanner.Err()
}

func (s *shell) execute(ctx context.Context, line string) error {
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	commander := s.orchestrator.Commander()
	engine := s.orchestrator.Engine()

	switch strings.ToLower(verb) {
	case "help":
		fmt.Fprintln(s.out, usage)
		return nil
	case "connect":
		return s.orchestrator.Connect(ctx)
	case "disconnect":
		s.orchestrator.Disconnect(ctx)
		return nil
	case "list":
		s.printParticipants(s.orchestrator.Store().ListAll())
		return nil
	case "stats":
		stats := s.orchestrator.Stats()
		fmt.Fprintf(s.out, "enqueued=%d dropped=%d applied=%d stale=%d failed=%d changes=%d queue=%d mem_mb=%d\n",
			stats.Enqueued, stats.Dropped, stats.Applied, stats.Stale, stats.Failed, stats.Changes, stats.QueueSize, stats.AllocMemMb)
		return nil
	case "search":
		return s.search(ctx, arg)
	case "clearpins":
		return commander.ClearPins(ctx)
	case "muteall":
		return commander.MuteAll()
	case "unmuteall":
		return commander.UnmuteAll()
	case "lowerall":
		return commander.LowerAllHands()
	case "say":
		return required(arg, commander.ChatAll)
	case "tell":
		name, text, ok := strings.Cut(arg, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("usage: tell <name>: <text>")
		}
		return commander.ChatUser(strings.TrimSpace(name), strings.TrimSpace(text))
	case "pin":
		return required(arg, func(name string) error { return commander.Pin(ctx, name) })
	case "addpin":
		return required(arg, func(name string) error { return commander.AddPin(ctx, name) })
	case "unpin":
		return required(arg, func(name string) error { return commander.Unpin(ctx, name) })
	case "spot":
		return required(arg, func(name string) error { return commander.Spotlight(ctx, name) })
	case "unspot":
		return required(arg, func(name string) error { return commander.Unspotlight(ctx, name) })
	case "mute":
		return required(arg, commander.Mute)
	case "unmute":
		return required(arg, commander.Unmute)
	case "lower":
		return required(arg, commander.LowerHand)
	case "video":
		return required(arg, commander.StartVideo)
	case "novideo":
		return required(arg, commander.StopVideo)
	case "act":
		action, name, _ := strings.Cut(arg, " ")
		return required(strings.TrimSpace(name), func(name string) error {
			return s.orchestrator.HandleAction(ctx, domain.NotificationAction(strings.ToUpper(action)), domain.ParticipantID(name))
		})
	case "autopin":
		return toggle(arg, engine.SetAutoPin)
	case "autogreet":
		return toggle(arg, engine.SetAutoGreet)
	case "notify":
		return toggle(arg, s.policy.SetEnabled)
	case "sound":
		return toggle(arg, s.policy.SetSound)
	case "maxpinned":
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("maxpinned expects a number: %w", err)
		}
		engine.SetMaxPinned(n)
		return nil
	case "priority":
		op, tag, _ := strings.Cut(arg, " ")
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return fmt.Errorf("usage: priority add|remove <tag>")
		}
		switch op {
		case "add":
			s.policy.AddPriorityTag(tag)
			engine.AddPinPriorityTag(tag)
		case "remove":
			s.policy.RemovePriorityTag(tag)
			engine.RemovePinPriorityTag(tag)
		default:
			return fmt.Errorf("usage: priority add|remove <tag>")
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", verb)
	}
}

func (s *shell) search(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("usage: search <text>")
	}
	messages, err := s.orchestrator.SearchChat(ctx, text, searchLimit)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		fmt.Fprintf(s.out, "%s  %-20s %s\n", msg.Timestamp.Format("15:04:05"), msg.SenderName, msg.Content)
	}
	return nil
}

func (s *shell) printParticipants(participants []domain.Participant) {
	table := tablewriter.NewWriter(s.out)
	table.SetHeader([]string{"Name", "Role", "Online", "Muted", "Hand", "Pinned", "Tags"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, p := range participants {
		table.Append([]string{
			p.Name,
			p.Role.String(),
			yesNo(p.Online),
			yesNo(p.Muted),
			yesNo(p.HandRaised),
			yesNo(p.Pinned),
			strings.Join(p.Tags, ","),
		})
	}
	table.Render()
}

func required(arg string, fn func(string) error) error {
	if arg == "" {
		return fmt.Errorf("missing argument")
	}
	return fn(arg)
}

func toggle(arg string, set func(bool)) error {
	switch arg {
	case "on":
		set(true)
	case "off":
		set(false)
	default:
		return fmt.Errorf("expected on or off, got %q", arg)
	}
	return nil
}

func yesNo(v bool) string {
	return lo.Ternary(v, "yes", "")
}
