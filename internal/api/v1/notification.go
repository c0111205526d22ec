package v1

// Notification kinds pushed to subscribers. The type tells a client which
// aspect of the board changed; Values carries only that aspect, with the
// untouched aspects left null.
const (
	TypeCounterUpdate    = "counterUpdate"
	TypeSoundUpdate      = "soundUpdate"
	TypeStatisticsUpdate = "statisticsUpdate"
	TypeCatalogUpdate    = "catalogUpdate"
	TypeSnapshot         = "snapshot"
)

// Notification is the outbound real-time envelope.
type Notification struct {
	Type   string              `json:"type"`
	Values *NotificationValues `json:"values"`
}

// NotificationValues holds the changed aspects. Absent aspects serialize
// as null so clients can distinguish "unchanged" from "now empty".
type NotificationValues struct {
	Total      *int64      `json:"total"`
	Statistics *Statistics `json:"statistics"`
	Sounds     []Sound     `json:"sounds"`
}

// CounterUpdate announces a click: the new total plus the full figures.
func CounterUpdate(total int64, stats Statistics) Notification {
	return Notification{
		Type:   TypeCounterUpdate,
		Values: &NotificationValues{Total: &total, Statistics: &stats},
	}
}

// SoundUpdate announces changed play counts for the given sounds.
func SoundUpdate(sounds []Sound) Notification {
	return Notification{
		Type:   TypeSoundUpdate,
		Values: &NotificationValues{Sounds: sounds},
	}
}

// StatisticsUpdate announces a calendar rollover of the counter figures.
func StatisticsUpdate(stats Statistics) Notification {
	return Notification{
		Type:   TypeStatisticsUpdate,
		Values: &NotificationValues{Statistics: &stats},
	}
}

// CatalogUpdate announces that the sound list itself changed and carries
// the complete new catalog.
func CatalogUpdate(sounds []Sound) Notification {
	return Notification{
		Type:   TypeCatalogUpdate,
		Values: &NotificationValues{Sounds: sounds},
	}
}

// SnapshotNotification seeds a new subscriber with the full board state.
func SnapshotNotification(total int64, stats Statistics, sounds []Sound) Notification {
	return Notification{
		Type:   TypeSnapshot,
		Values: &NotificationValues{Total: &total, Statistics: &stats, Sounds: sounds},
	}
}
