package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything the collection and merge pipelines need.
// Non-secret settings come from an optional YAML file; credentials are
// environment-only and are validated by the caller before any client is
// built.
type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Twitter    TwitterConfig    `yaml:"twitter"`
	Reddit     RedditConfig     `yaml:"reddit"`
	Database   DatabaseConfig   `yaml:"database"`
	Collection CollectionConfig `yaml:"collection"`
	Merge      MergeConfig      `yaml:"merge"`
}

// YouTubeConfig holds credentials for the YouTube Data API.
type YouTubeConfig struct {
	APIKey string `yaml:"-"`
}

// TwitterConfig holds OAuth1 user-context credentials.
type TwitterConfig struct {
	APIKey       string `yaml:"-"`
	APISecret    string `yaml:"-"`
	AccessToken  string `yaml:"-"`
	AccessSecret string `yaml:"-"`
}

// RedditConfig holds script-app credentials for the Reddit OAuth API.
type RedditConfig struct {
	ClientID     string `yaml:"-"`
	ClientSecret string `yaml:"-"`
	UserAgent    string `yaml:"-"`
}

// DatabaseConfig contains the optional Postgres archive connection. An
// empty URL disables archiving.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// CollectionConfig contains runtime settings for collection runs.
// PageDelay is a duration string such as "100ms".
type CollectionConfig struct {
	OutputDir string `yaml:"output_dir"`
	PageDelay string `yaml:"page_delay"`
	Subreddit string `yaml:"subreddit"`
}

// Delay returns the parsed inter-page pause. Load has already validated the
// string, so parse failures cannot happen here.
func (c *CollectionConfig) Delay() time.Duration {
	d, err := time.ParseDuration(c.PageDelay)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// MergeConfig contains locations of the external labeled corpora.
type MergeConfig struct {
	ExcelPath string `yaml:"excel_path"`
	ArSASURL  string `yaml:"arsas_url"`
	TSACURL   string `yaml:"tsac_url"`
	Output    string `yaml:"output"`
}

// MissingCredentialsError reports every credential variable absent from the
// environment for the platforms a run asked for.
type MissingCredentialsError struct {
	Vars []string
}

func (e *MissingCredentialsError) Error() string {
	return fmt.Sprintf("missing environment variables: %s", strings.Join(e.Vars, ", "))
}

// Load reads the optional YAML config file and overlays credentials from the
// environment. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg.YouTube.APIKey = os.Getenv("YOUTUBE_API_KEY")
	cfg.Twitter.APIKey = os.Getenv("TWITTER_API_KEY")
	cfg.Twitter.APISecret = os.Getenv("TWITTER_API_SECRET")
	cfg.Twitter.AccessToken = os.Getenv("TWITTER_ACCESS_TOKEN")
	cfg.Twitter.AccessSecret = os.Getenv("TWITTER_ACCESS_SECRET")
	cfg.Reddit.ClientID = os.Getenv("REDDIT_CLIENT_ID")
	cfg.Reddit.ClientSecret = os.Getenv("REDDIT_CLIENT_SECRET")
	cfg.Reddit.UserAgent = os.Getenv("REDDIT_USER_AGENT")

	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}

	if cfg.Collection.OutputDir == "" {
		cfg.Collection.OutputDir = "collected_data"
	}
	if cfg.Collection.PageDelay == "" {
		cfg.Collection.PageDelay = "100ms"
	}
	if _, err := time.ParseDuration(cfg.Collection.PageDelay); err != nil {
		return nil, fmt.Errorf("failed to parse collection page_delay: %w", err)
	}
	if cfg.Collection.Subreddit == "" {
		cfg.Collection.Subreddit = "all"
	}
	if cfg.Merge.Output == "" {
		cfg.Merge.Output = "merged_dataset.xlsx"
	}

	return cfg, nil
}

// ValidateCredentials checks that every credential needed by the given
// platforms is present. All missing variables are reported together so the
// user can fix the environment in one pass.
func (c *Config) ValidateCredentials(platforms []string) error {
	var missing []string

	for _, platform := range platforms {
		switch platform {
		case "youtube":
			if c.YouTube.APIKey == "" {
				missing = append(missing, "YOUTUBE_API_KEY")
			}
		case "twitter":
			if c.Twitter.APIKey == "" {
				missing = append(missing, "TWITTER_API_KEY")
			}
			if c.Twitter.APISecret == "" {
				missing = append(missing, "TWITTER_API_SECRET")
			}
			if c.Twitter.AccessToken == "" {
				missing = append(missing, "TWITTER_ACCESS_TOKEN")
			}
			if c.Twitter.AccessSecret == "" {
				missing = append(missing, "TWITTER_ACCESS_SECRET")
			}
		case "reddit":
			if c.Reddit.ClientID == "" {
				missing = append(missing, "REDDIT_CLIENT_ID")
			}
			if c.Reddit.ClientSecret == "" {
				missing = append(missing, "REDDIT_CLIENT_SECRET")
			}
			if c.Reddit.UserAgent == "" {
				missing = append(missing, "REDDIT_USER_AGENT")
			}
		}
	}

	if len(missing) > 0 {
		return &MissingCredentialsError{Vars: missing}
	}
	return nil
}
