package config

// Default returns the built-in configuration. Values here must stay in sync
// with sample_config.toml.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  "~/.local/share/herald",
			LogDir:   "~/.local/share/herald/logs",
			APIBind:  "127.0.0.1:7733",
			APIToken: "",
		},
		Search: Search{
			APIKey:         "",
			BaseURL:        "https://serpapi.com/search",
			TimeoutSeconds: 30,
		},
		Profile: Profile{
			APIKey:         "",
			BaseURL:        "https://nubela.co/proxycurl/api",
			TimeoutSeconds: 30,
		},
		LLM: LLM{
			APIKey:         "",
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Model:          "anthropic/claude-sonnet-4",
			TimeoutSeconds: 120,
		},
		Research: Research{
			APIKey:         "",
			BaseURL:        "",
			Model:          "gemini-2.5-flash",
			TimeoutSeconds: 120,
		},
		Workflow: Workflow{
			Workers:                4,
			RateLimitRPS:           2.0,
			MaxActiveJobs:          8,
			ItemRetries:            2,
			ScrapeTimeoutSeconds:   300,
			StageTimeoutSeconds:    600,
			JobDeadlineSeconds:     0,
			MaxScrapedParticipants: 10,
		},
		Notifications: Notifications{
			Topic:          "",
			TimeoutSeconds: 10,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
