package seed

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/postwatch/postwatch/app/database"
	"github.com/postwatch/postwatch/app/source"
)

// Loader reads a YAML seed file and applies it to the database. Applying
// is idempotent: existing channels are reused and accounts are upserted,
// so the same file can be applied on every boot.
type Loader struct {
	channels database.ChannelRepository
	accounts database.AccountRepository
}

func NewLoader(channels database.ChannelRepository, accounts database.AccountRepository) *Loader {
	return &Loader{channels: channels, accounts: accounts}
}

// Apply loads the seed file at path and reconciles the database with it.
// A missing file is not an error; the seed is optional.
func (l *Loader) Apply(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Debug("Seed file not found, skipping", "path", path)
		return nil
	}

	file, err := loadFile(path)
	if err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}

	for _, ch := range file.Channels {
		if err := l.applyChannel(ch); err != nil {
			return fmt.Errorf("error seeding channel %q: %w", ch.Name, err)
		}
	}

	slog.Info("Seed file applied", "path", path, "channels", len(file.Channels))
	return nil
}

func (l *Loader) applyChannel(ch ChannelSeed) error {
	channel, err := l.channels.GetByName(ch.Name)
	if err != nil {
		return err
	}

	var channelID int64
	if channel != nil {
		channelID = channel.ID
	} else {
		channelID, err = l.channels.Create(ch.Name, ch.WebhookURL)
		if err != nil {
			return err
		}
		slog.Info("Channel created from seed", "name", ch.Name)
	}

	for _, raw := range ch.Accounts {
		handle := source.NormalizeHandle(raw)
		if err := l.accounts.Upsert(handle, channelID, nil); err != nil {
			return err
		}
	}

	return nil
}

func loadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validate(&file); err != nil {
		return nil, err
	}

	return &file, nil
}

func validate(file *File) error {
	seen := make(map[string]bool)

	for i, ch := range file.Channels {
		if ch.Name == "" {
			return fmt.Errorf("channel at index %d: name is required", i)
		}
		if seen[ch.Name] {
			return fmt.Errorf("duplicate channel name: %s", ch.Name)
		}
		seen[ch.Name] = true

		if !validWebhookURL(ch.WebhookURL) {
			return fmt.Errorf("channel %q: webhook_url must be an absolute http(s) URL", ch.Name)
		}

		for _, raw := range ch.Accounts {
			if !source.ValidHandle(source.NormalizeHandle(raw)) {
				return fmt.Errorf("channel %q: invalid account handle: %s", ch.Name, raw)
			}
		}
	}

	return nil
}

func validWebhookURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
