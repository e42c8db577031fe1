package domain

import "fmt"

// Command is an outbound control-bus message.
// Args only hold int32 and string values.
type Command struct {
	Address string
	Args    []any
}

func (c Command) String() string {
	return fmt.Sprintf("%s %v", c.Address, c.Args)
}

func flag(enabled bool) int32 {
	if enabled {
		return 1
	}
	return 0
}

func global(address string, args ...any) Command {
	return Command{Address: address, Args: args}
}

// userCommand targets one participant by display name.
func userCommand(name, verb string, args ...any) Command {
	return Command{Address: fmt.Sprintf("/zoom/userName/%s/%s", name, verb), Args: args}
}

func Subscribe(enabled bool) Command {
	return global("/zoom/subscribe", flag(enabled))
}

func GalleryTracking(enabled bool) Command {
	return global("/zoom/galTrackMode", flag(enabled))
}

func RequestList() Command {
	return global("/zoom/list")
}

func MuteAll() Command {
	return global("/zoom/all/mute")
}

func UnmuteAll() Command {
	return global("/zoom/all/unMute")
}

func LowerAllHands() Command {
	return global("/zoom/lowerAllHands")
}

func ClearPins() Command {
	return global("/zoom/clearPin")
}

func Ping(probe string) Command {
	return global("/zoom/ping", probe)
}

func ChatAll(message string) Command {
	return global("/zoom/chatAll", message)
}

func ChatUser(name, message string) Command {
	return userCommand(name, "chat", message)
}

func Pin(name string) Command {
	return userCommand(name, "pin")
}

func AddPin(name string) Command {
	return userCommand(name, "addPin")
}

func Unpin(name string) Command {
	return userCommand(name, "unPin")
}

func LowerHand(name string) Command {
	return userCommand(name, "lowerHand")
}

func Mute(name string) Command {
	return userCommand(name, "mute")
}

func Unmute(name string) Command {
	return userCommand(name, "unMute")
}

func StartVideo(name string) Command {
	return userCommand(name, "videoOn")
}

func StopVideo(name string) Command {
	return userCommand(name, "videoOff")
}

func Spotlight(name string) Command {
	return userCommand(name, "spot")
}

func Unspotlight(name string) Command {
	return userCommand(name, "unSpot")
}
