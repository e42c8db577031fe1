package runtime

import (
	"context"
	"log/slog"

	"osc-console/contract"
	"osc-console/domain"
	"osc-console/wire"
)

var _ contract.CommandSender = (*Commander)(nil)

// Commander encodes and sends outbound commands. Commands that change the
// pin or spotlight layout record the new state once the send succeeded.
type Commander struct {
	link   contract.DatagramSender
	reader contract.StateReader
	writer contract.StateWriter
	log    *slog.Logger
}

func NewCommander(link contract.DatagramSender, reader contract.StateReader, writer contract.StateWriter, log *slog.Logger) *Commander {
	return &Commander{link: link, reader: reader, writer: writer, log: log}
}

func (c *Commander) Send(cmd domain.Command) error {
	raw, err := wire.Encode(cmd)
	if err != nil {
		return err
	}
	if err = c.link.Send(raw); err != nil {
		c.log.Warn("Command not sent", "command", cmd.String(), "error", err)
		return err
	}
	c.log.Debug("Command sent", "command", cmd.String())
	return nil
}

func (c *Commander) Subscribe(enabled bool) error {
	return c.Send(domain.Subscribe(enabled))
}

func (c *Commander) GalleryTracking(enabled bool) error {
	return c.Send(domain.GalleryTracking(enabled))
}

func (c *Commander) RequestList() error {
	return c.Send(domain.RequestList())
}

func (c *Commander) MuteAll() error {
	return c.Send(domain.MuteAll())
}

func (c *Commander) UnmuteAll() error {
	return c.Send(domain.UnmuteAll())
}

func (c *Commander) LowerAllHands() error {
	return c.Send(domain.LowerAllHands())
}

func (c *Commander) ChatAll(message string) error {
	return c.Send(domain.ChatAll(message))
}

func (c *Commander) ChatUser(name, message string) error {
	return c.Send(domain.ChatUser(name, message))
}

func (c *Commander) LowerHand(name string) error {
	return c.Send(domain.LowerHand(name))
}

func (c *Commander) Mute(name string) error {
	return c.Send(domain.Mute(name))
}

func (c *Commander) Unmute(name string) error {
	return c.Send(domain.Unmute(name))
}

func (c *Commander) StartVideo(name string) error {
	return c.Send(domain.StartVideo(name))
}

func (c *Commander) StopVideo(name string) error {
	return c.Send(domain.StopVideo(name))
}

func (c *Commander) Ping(probe string) error {
	return c.Send(domain.Ping(probe))
}

func (c *Commander) Pin(ctx context.Context, name string) error {
	if err := c.Send(domain.Pin(name)); err != nil {
		return err
	}
	return c.writer.SetPinned(ctx, name, true)
}

func (c *Commander) AddPin(ctx context.Context, name string) error {
	if err := c.Send(domain.AddPin(name)); err != nil {
		return err
	}
	return c.writer.SetPinned(ctx, name, true)
}

func (c *Commander) Unpin(ctx context.Context, name string) error {
	if err := c.Send(domain.Unpin(name)); err != nil {
		return err
	}
	return c.writer.SetPinned(ctx, name, false)
}

// ClearPins unpins everyone; the local pin flags are cleared participant by participant.
func (c *Commander) ClearPins(ctx context.Context) error {
	if err := c.Send(domain.ClearPins()); err != nil {
		return err
	}
	for _, p := range c.reader.ListPinned() {
		if err := c.writer.SetPinned(ctx, p.Name, false); err != nil {
			return err
		}
	}
	return nil
}

func (c *Commander) Spotlight(ctx context.Context, name string) error {
	if err := c.Send(domain.Spotlight(name)); err != nil {
		return err
	}
	return c.writer.SetSpotlighted(ctx, name, true)
}

func (c *Commander) Unspotlight(ctx context.Context, name string) error {
	if err := c.Send(domain.Unspotlight(name)); err != nil {
		return err
	}
	return c.writer.SetSpotlighted(ctx, name, false)
}
