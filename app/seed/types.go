package seed

// File is the on-disk seed format. Each channel carries its webhook and
// the handles to track in it.
type File struct {
	Channels []ChannelSeed `yaml:"channels"`
}

// ChannelSeed declares one notification channel and its accounts.
type ChannelSeed struct {
	Name       string   `yaml:"name"`
	WebhookURL string   `yaml:"webhook_url"`
	Accounts   []string `yaml:"accounts"`
}
