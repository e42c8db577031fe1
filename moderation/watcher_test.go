package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// The dictionary uses specific words to avoid partial collisions (e.g., "he" inside "The")
func TestKeywordWatcher_Match(t *testing.T) {
	req := require.New(t)
	watcher, err := NewKeywordWatcher([]string{"badger", "snake", "mushroom"})
	req.NoError(err)

	tests := []struct {
		name  string
		input string
		words []string
	}{
		{
			name:  "Simple word",
			input: "The badger is here",
			words: []string{"badger"},
		},
		{
			name:  "Multiple occurrences are reported once",
			input: "badger badger badger",
			words: []string{"badger"},
		},
		{
			name:  "Leet speak and internal punctuation",
			input: "Look at B.4.d.g.€r !",
			words: []string{"badger"},
		},
		{
			name:  "Uppercase and extreme noise, order of appearance",
			input: "S-N-A-K-E is a B.A.D.G.E.R",
			words: []string{"snake", "badger"},
		},
		{
			name:  "Accents and special characters (UTF-8)",
			input: "Un été avec un badger",
			words: []string{"badger"},
		},
		{
			name:  "Nothing watched",
			input: "The console is amazing",
			words: nil,
		},
		{
			name:  "Empty string",
			input: "",
			words: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.words, watcher.Match(tt.input), "input=%s", tt.input)
		})
	}
}

func TestKeywordWatcher_CornerCases(t *testing.T) {
	req := require.New(t)

	// Given real noise and not Leet Speak associated
	watcher, err := NewKeywordWatcher([]string{"...", ",,,", "", "badger"})
	req.NoError(err)

	// Then the keyword is still found
	req.Equal([]string{"badger"}, watcher.Match("The badger is safe"))

	// Then real noise is never matched
	req.Nil(watcher.Match("Hello ..."))
}

func TestKeywordWatcher_Empty_Watch_List(t *testing.T) {
	req := require.New(t)

	// Given no watched word
	watcher, err := NewKeywordWatcher(nil)
	req.NoError(err)

	// Then nothing ever matches
	req.Nil(watcher.Match("badger"))
}

func TestInspector_Inspect(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	watcher, err := NewKeywordWatcher([]string{"urgent"})
	req.NoError(err)
	inspector := NewInspector(watcher, log)

	// When an english message with a watched word is inspected
	lang, keywords := inspector.Inspect("This is really urgent, could somebody please help me with the shared screen before the lesson starts")

	// Then both language and keyword are reported
	req.Equal("en", lang)
	req.Equal([]string{"urgent"}, keywords)

	// When the content is empty
	lang, keywords = inspector.Inspect("")

	// Then nothing is reported
	req.Empty(lang)
	req.Nil(keywords)
}
