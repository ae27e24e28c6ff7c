// internal/model/campaign.go
package model

import "time"

// ChannelOutcome is the per-platform result of a distribution attempt.
// Platform-specific fields are left empty where they don't apply.
type ChannelOutcome struct {
	Success    bool       `json:"success"`
	Manual     bool       `json:"manual"`
	PostedAt   *time.Time `json:"posted_at,omitempty"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	URL        string     `json:"url,omitempty"`
	ThreadSize int        `json:"thread_size,omitempty"`
	Subreddit  string     `json:"subreddit,omitempty"`
	Recipients int        `json:"recipients,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Campaign is a write-once summary of a multi-channel distribution attempt.
type Campaign struct {
	ID           string                    `db:"id" json:"id"`
	ProductID    string                    `db:"product_id" json:"product_id"`
	ChannelsUsed []string                  `db:"channels_used" json:"channels_used"`
	Results      map[string]ChannelOutcome `db:"results" json:"results"`
	CreatedAt    time.Time                 `db:"created_at" json:"created_at"`
}

func (c *Campaign) Validate() error {
	if c.ProductID == "" {
		return errRequired("campaign", "product_id")
	}
	if len(c.ChannelsUsed) == 0 {
		return errRequired("campaign", "channels_used")
	}
	used := make(map[string]bool, len(c.ChannelsUsed))
	for _, ch := range c.ChannelsUsed {
		used[ch] = true
	}
	for platform := range c.Results {
		if !used[platform] {
			return errInvalidValue("campaign", "results", platform)
		}
	}
	return nil
}
