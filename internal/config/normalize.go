package config

import "strings"

// normalize expands paths and fills zero values with defaults so the rest of
// the daemon never has to guard against partial configs.
func (c *Config) normalize() error {
	defaults := Default()

	var err error
	if c.Paths.DataDir, err = expandPath(firstNonEmpty(c.Paths.DataDir, defaults.Paths.DataDir)); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(firstNonEmpty(c.Paths.LogDir, defaults.Paths.LogDir)); err != nil {
		return err
	}
	c.Paths.APIBind = firstNonEmpty(c.Paths.APIBind, defaults.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)

	c.Search.BaseURL = firstNonEmpty(c.Search.BaseURL, defaults.Search.BaseURL)
	if c.Search.TimeoutSeconds <= 0 {
		c.Search.TimeoutSeconds = defaults.Search.TimeoutSeconds
	}

	c.Profile.BaseURL = firstNonEmpty(c.Profile.BaseURL, defaults.Profile.BaseURL)
	if c.Profile.TimeoutSeconds <= 0 {
		c.Profile.TimeoutSeconds = defaults.Profile.TimeoutSeconds
	}

	c.LLM.BaseURL = firstNonEmpty(c.LLM.BaseURL, defaults.LLM.BaseURL)
	c.LLM.Model = firstNonEmpty(c.LLM.Model, defaults.LLM.Model)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaults.LLM.TimeoutSeconds
	}

	c.Research.Model = firstNonEmpty(c.Research.Model, defaults.Research.Model)
	if c.Research.TimeoutSeconds <= 0 {
		c.Research.TimeoutSeconds = defaults.Research.TimeoutSeconds
	}

	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaults.Workflow.Workers
	}
	if c.Workflow.RateLimitRPS <= 0 {
		c.Workflow.RateLimitRPS = defaults.Workflow.RateLimitRPS
	}
	if c.Workflow.MaxActiveJobs <= 0 {
		c.Workflow.MaxActiveJobs = defaults.Workflow.MaxActiveJobs
	}
	if c.Workflow.ItemRetries < 0 {
		c.Workflow.ItemRetries = defaults.Workflow.ItemRetries
	}
	if c.Workflow.ScrapeTimeoutSeconds <= 0 {
		c.Workflow.ScrapeTimeoutSeconds = defaults.Workflow.ScrapeTimeoutSeconds
	}
	if c.Workflow.StageTimeoutSeconds <= 0 {
		c.Workflow.StageTimeoutSeconds = defaults.Workflow.StageTimeoutSeconds
	}
	if c.Workflow.JobDeadlineSeconds < 0 {
		c.Workflow.JobDeadlineSeconds = 0
	}
	if c.Workflow.MaxScrapedParticipants <= 0 {
		c.Workflow.MaxScrapedParticipants = defaults.Workflow.MaxScrapedParticipants
	}

	c.Notifications.Topic = strings.TrimSpace(c.Notifications.Topic)
	if c.Notifications.TimeoutSeconds <= 0 {
		c.Notifications.TimeoutSeconds = defaults.Notifications.TimeoutSeconds
	}

	c.Logging.Format = strings.ToLower(firstNonEmpty(c.Logging.Format, defaults.Logging.Format))
	c.Logging.Level = strings.ToLower(firstNonEmpty(c.Logging.Level, defaults.Logging.Level))

	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
