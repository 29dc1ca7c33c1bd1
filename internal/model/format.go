package model

import (
	"fmt"
	"time"
)

// Unknown is rendered for absent detail values.
const Unknown = "Unknown"

// FormatDuration renders seconds as m:ss, or Unknown for non-positive values.
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return Unknown
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatSize renders a byte count in a short human readable form.
func FormatSize(bytes int64) string {
	switch {
	case bytes <= 0:
		return Unknown
	case bytes >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(1<<30))
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FormatDate renders a unix timestamp, or Unknown when unset.
func FormatDate(unix int64) string {
	if unix <= 0 {
		return Unknown
	}
	return time.Unix(unix, 0).Format("02 Jan 2006, 15:04")
}

// Details renders the item details sheet.
func Details(m MediaItem) string {
	ref := m.ContentRef
	if ref == "" {
		ref = Unknown
	}
	return fmt.Sprintf("Chat ID: %d\nMessage ID: %d\nType: %s\nDuration: %s\nSize: %s\nDate: %s\nFile: %s\n",
		m.CollectionID, m.ItemID, m.Kind, FormatDuration(m.DurationSeconds),
		FormatSize(m.SizeBytes), FormatDate(m.Timestamp), ref)
}
