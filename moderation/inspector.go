package moderation

import (
	"log/slog"

	"github.com/abadojack/whatlanggo"
)

// Inspector enriches incoming chat content before it is committed.
type Inspector struct {
	watcher *KeywordWatcher
	log     *slog.Logger
}

func NewInspector(watcher *KeywordWatcher, log *slog.Logger) *Inspector {
	return &Inspector{watcher: watcher, log: log}
}

// Inspect returns the ISO 639-1 language of content ("" when undetected)
// and the watched words it contains.
func (i *Inspector) Inspect(content string) (string, []string) {
	if content == "" {
		return "", nil
	}
	lang := whatlanggo.Detect(content).Lang.Iso6391()
	keywords := i.watcher.Match(content)
	if len(keywords) > 0 {
		i.log.Debug("Watched keywords in chat", "keywords", keywords, "lang", lang)
	}
	return lang, keywords
}
