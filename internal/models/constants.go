package models

// Media types guessed from a stream URL extension.
const (
	MediaTypeHLS  = "application/x-mpegURL"
	MediaTypeDASH = "application/dash+xml"
	MediaTypeMP4  = "video/mp4"
	MediaTypeTS   = "video/mp2t"
)

// DefaultCategory is used when a playlist entry has no group-title.
const DefaultCategory = "Uncategorized"

// Default store keys for the persisted guide and roster.
const (
	GuideKey  = "app:epg_v1"
	RosterKey = "app:channels_v1"
)
