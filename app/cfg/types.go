package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Source API configuration
	SourceAPIKey  string
	SourceBaseURL string
	SourceTimeout int

	// Monitoring configuration
	CheckInterval    int
	MaxPostsPerCheck int
	MaxConcurrent    int
	FetchMinInterval int
	SendDelay        int
	StartOnBoot      bool

	// Application configuration
	Port         string
	SeedFile     string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
