package sources

import (
	"fmt"

	"go.uber.org/zap"

	"darjacollect/pkg/collector"
	"darjacollect/pkg/config"
	"darjacollect/pkg/reddit"
	"darjacollect/pkg/twitter"
	"darjacollect/pkg/youtube"
)

// Platforms lists every supported platform name, in run order.
var Platforms = []string{"youtube", "twitter", "reddit"}

// Expand resolves a platform selector to the concrete platform list.
// "all" selects every platform.
func Expand(platform string) ([]string, error) {
	if platform == "all" {
		return Platforms, nil
	}
	for _, p := range Platforms {
		if p == platform {
			return []string{platform}, nil
		}
	}
	return nil, fmt.Errorf("unknown platform: %s", platform)
}

// Build constructs one adapter per selected platform from the loaded
// configuration. Credentials must have been validated by the caller.
func Build(cfg *config.Config, platform string, logger *zap.Logger) ([]collector.Source, error) {
	names, err := Expand(platform)
	if err != nil {
		return nil, err
	}

	delay := cfg.Collection.Delay()
	var built []collector.Source
	for _, name := range names {
		switch name {
		case "youtube":
			built = append(built, youtube.NewCollector(cfg.YouTube.APIKey, "", delay, logger))
		case "twitter":
			built = append(built, twitter.NewCollector(twitter.Credentials{
				APIKey:       cfg.Twitter.APIKey,
				APISecret:    cfg.Twitter.APISecret,
				AccessToken:  cfg.Twitter.AccessToken,
				AccessSecret: cfg.Twitter.AccessSecret,
			}, "", delay, logger))
		case "reddit":
			built = append(built, reddit.NewCollector(reddit.Credentials{
				ClientID:     cfg.Reddit.ClientID,
				ClientSecret: cfg.Reddit.ClientSecret,
				UserAgent:    cfg.Reddit.UserAgent,
			}, "", "", delay, logger))
		}
	}
	return built, nil
}
