package automation

import (
	"maps"
	"slices"
)

const (
	minPinned = 1
	// The control bus supports up to 9 pins.
	maxPinned = 9

	DefaultGreetingKey = "default"
	fallbackGreeting   = "Welcome!"
)

type Settings struct {
	AutoPin     bool
	AutoGreet   bool
	MaxPinned   int
	PinPriority []string
	Greetings   map[string]string
}

func DefaultSettings() Settings {
	return Settings{
		MaxPinned:   2,
		PinPriority: []string{"Host", "Teacher", "VIP"},
		Greetings: map[string]string{
			"Host":             "Welcome, Host!",
			"Teacher":          "Welcome, Teacher!",
			"Student":          "Welcome to class!",
			"VIP":              "Welcome, VIP!",
			DefaultGreetingKey: "Welcome to the meeting!",
		},
	}
}

// ClampPinned bounds n to the range accepted by the control bus.
func ClampPinned(n int) int {
	return max(minPinned, min(n, maxPinned))
}

func (s Settings) clone() Settings {
	c := s
	c.PinPriority = slices.Clone(s.PinPriority)
	c.Greetings = maps.Clone(s.Greetings)
	return c
}
