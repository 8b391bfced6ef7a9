package models

// Category summarises a roster grouping (group-title from M3U).
type Category struct {
	Name         string `json:"name"`
	ChannelCount int    `json:"channelCount"`
}
