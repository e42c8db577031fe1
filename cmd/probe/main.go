// Command probe stands in for the conferencing client: it replays a meeting
// opening burst to the console and prints the commands the console sends back.
package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/hypebeast/go-osc/osc"
	"github.com/kelseyhightower/envconfig"

	"osc-console/wire"
)

type Config struct {
	// PROBE_TARGET is the console's receive address
	Target       string        `envconfig:"PROBE_TARGET" default:"127.0.0.1:1246"`
	ListenPort   int           `envconfig:"PROBE_LISTEN_PORT" default:"9090"`
	Participants int           `envconfig:"PROBE_PARTICIPANTS" default:"12"`
	Interval     time.Duration `envconfig:"PROBE_INTERVAL" default:"2ms"`
	ListenFor    time.Duration `envconfig:"PROBE_LISTEN_FOR" default:"5s"`
	Colours      bool          `envconfig:"PROBE_COLOURS" default:"true"`
}

var prefixes = []string{"Host_", "TCH_", "STU_", "STU_", "VIP_", "GST_"}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return err
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: config.ListenPort})
	if err != nil {
		return fmt.Errorf("bind %d: %w", config.ListenPort, err)
	}
	defer conn.Close()
	target, err := net.ResolveUDPAddr("udp", config.Target)
	if err != nil {
		return err
	}

	go listen(conn, config.Colours)

	packets := script(config.Participants)
	for _, packet := range packets {
		raw, err := packet.MarshalBinary()
		if err != nil {
			return err
		}
		if _, err = conn.WriteToUDP(raw, target); err != nil {
			return err
		}
		time.Sleep(config.Interval)
	}
	fmt.Println(paint(config.Colours, color.New(color.BgBlack, color.FgGreen), fmt.Sprintf(" sent %d packets to %s ", len(packets), target)))

	time.Sleep(config.ListenFor)
	return nil
}

// listen prints every command received until the socket closes.
func listen(conn *net.UDPConn, colours bool) {
	buf := make([]byte, 65536)
	style := color.New(color.FgCyan)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		messages, err := wire.Decode(buf[:n])
		if err != nil {
			fmt.Println(paint(colours, color.New(color.FgRed), err.Error()))
			continue
		}
		for _, msg := range messages {
			fmt.Printf("%s %v\n", paint(colours, style, msg.Address), msg.Arguments)
		}
	}
}

// script is the opening of a meeting: a list burst, the gallery size,
// a raised hand and a chat line.
func script(participants int) []osc.Packet {
	var packets []osc.Packet
	names := make([]string, 0, participants)
	for i := 0; i < participants; i++ {
		name := fmt.Sprintf("%s%02d", prefixes[i%len(prefixes)], i)
		names = append(names, name)
		role := int32(0)
		if strings.HasPrefix(name, "Host_") {
			role = 3
		}
		packets = append(packets, osc.NewMessage("/zoomosc/user/list",
			int32(i), name, int32(i), int32(16778240+i), role, int32(1), int32(1), int32(i%2), int32(0)))
	}
	packets = append(packets, osc.NewMessage("/zoomosc/galleryCount", int32(participants)))
	if len(names) > 2 {
		packets = append(packets,
			osc.NewMessage("/zoomosc/user/handRaised", int32(2), names[2], int32(2), int32(16778242)),
			osc.NewMessage("/zoomosc/user/chat", int32(2), names[2], int32(2), int32(16778242), "can you share the slides please", "16778242", int32(1)))
	}
	return packets
}

func paint(colours bool, style color.Style, text string) string {
	if !colours {
		return text
	}
	return style.Render(text)
}
