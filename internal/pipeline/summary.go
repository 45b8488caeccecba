package pipeline

import "time"

// Summary is the run's user-visible outcome: enough counts for an operator
// to decide whether to fix source data and re-run instead of silently losing
// content.
type Summary struct {
	RunID      string    `json:"run_id"`
	Stage      string    `json:"stage"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	ItemsLoaded    int `json:"items_loaded"`
	StoriesCreated int `json:"stories_created"`
	ItemsSkipped   int `json:"items_skipped"`

	LinksResolved   int `json:"links_resolved"`
	LinksDowngraded int `json:"links_downgraded"`
	RefsResolved    int `json:"refs_resolved"`
	RefsDropped     int `json:"refs_dropped"`

	AssetsResolved int `json:"assets_resolved"`
	AssetsReused   int `json:"assets_reused"`
	AssetsFailed   int `json:"assets_failed"`

	Errors []string `json:"errors,omitempty"`
}
