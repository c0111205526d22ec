package v1

import (
	"encoding/json"
	"testing"
)

// decodeValues marshals a notification and splits the values block into
// raw JSON per aspect, so tests can tell null from populated.
func decodeValues(t *testing.T, n Notification) (string, map[string]json.RawMessage) {
	t.Helper()

	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var envelope struct {
		Type   string                     `json:"type"`
		Values map[string]json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if envelope.Values == nil {
		t.Fatalf("Expected a values block, document was %s", data)
	}

	return envelope.Type, envelope.Values
}

func TestNotification_AspectNullness(t *testing.T) {
	stats := Statistics{Total: 100, Daily: 5, Weekly: 30, Monthly: 80, Average: 2}
	sounds := []Sound{{ID: 1, Filename: "explosion", DisplayName: "Explosion!"}}

	// Per notification type: which aspects carry data and which stay null.
	tests := []struct {
		name         string
		notification Notification
		wantType     string
		wantNull     []string
		wantSet      []string
	}{
		{
			name:         "counterUpdate carries total and statistics",
			notification: CounterUpdate(100, stats),
			wantType:     TypeCounterUpdate,
			wantNull:     []string{"sounds"},
			wantSet:      []string{"total", "statistics"},
		},
		{
			name:         "soundUpdate carries sounds only",
			notification: SoundUpdate(sounds),
			wantType:     TypeSoundUpdate,
			wantNull:     []string{"total", "statistics"},
			wantSet:      []string{"sounds"},
		},
		{
			name:         "statisticsUpdate carries statistics only",
			notification: StatisticsUpdate(stats),
			wantType:     TypeStatisticsUpdate,
			wantNull:     []string{"total", "sounds"},
			wantSet:      []string{"statistics"},
		},
		{
			name:         "catalogUpdate carries sounds only",
			notification: CatalogUpdate(sounds),
			wantType:     TypeCatalogUpdate,
			wantNull:     []string{"total", "statistics"},
			wantSet:      []string{"sounds"},
		},
		{
			name:         "snapshot carries every aspect",
			notification: SnapshotNotification(100, stats, sounds),
			wantType:     TypeSnapshot,
			wantNull:     nil,
			wantSet:      []string{"total", "statistics", "sounds"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, values := decodeValues(t, tt.notification)
			if gotType != tt.wantType {
				t.Errorf("type mismatch: got %q, want %q", gotType, tt.wantType)
			}

			for _, aspect := range tt.wantNull {
				if string(values[aspect]) != "null" {
					t.Errorf("Expected %q to be null, got %s", aspect, values[aspect])
				}
			}
			for _, aspect := range tt.wantSet {
				raw, ok := values[aspect]
				if !ok {
					t.Errorf("Expected %q to be present", aspect)
					continue
				}
				if string(raw) == "null" {
					t.Errorf("Expected %q to carry data, got null", aspect)
				}
			}
		})
	}
}

func TestCounterUpdate_Values(t *testing.T) {
	stats := Statistics{Total: 42, Daily: 3, Weekly: 10, Monthly: 20, Average: 1}
	n := CounterUpdate(42, stats)

	if n.Values.Total == nil || *n.Values.Total != 42 {
		t.Errorf("Total mismatch: got %v, want 42", n.Values.Total)
	}
	if n.Values.Statistics == nil || n.Values.Statistics.Daily != 3 {
		t.Errorf("Statistics mismatch: got %+v", n.Values.Statistics)
	}
	if n.Values.Sounds != nil {
		t.Errorf("Sounds should stay nil on a counter update, got %v", n.Values.Sounds)
	}
}

func TestSnapshotNotification_RoundTrip(t *testing.T) {
	stats := Statistics{Total: 9000, Daily: 12, Weekly: 90, Monthly: 400, Average: 30}
	sounds := []Sound{
		{ID: 1, Filename: "explosion", DisplayName: "Explosion!", PlayCount: 7},
		{ID: 3, Filename: "realname", DisplayName: "Real name", Source: "Season 2", PlayCount: 2},
	}

	data, err := json.Marshal(SnapshotNotification(9000, stats, sounds))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var unmarshaled Notification
	if err := json.Unmarshal(data, &unmarshaled); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if unmarshaled.Type != TypeSnapshot {
		t.Errorf("Type mismatch: got %q, want %q", unmarshaled.Type, TypeSnapshot)
	}
	if unmarshaled.Values.Total == nil || *unmarshaled.Values.Total != 9000 {
		t.Errorf("Total mismatch: got %v, want 9000", unmarshaled.Values.Total)
	}
	if unmarshaled.Values.Statistics == nil || *unmarshaled.Values.Statistics != stats {
		t.Errorf("Statistics mismatch: got %+v, want %+v", unmarshaled.Values.Statistics, stats)
	}
	if len(unmarshaled.Values.Sounds) != 2 {
		t.Fatalf("Sounds length mismatch: got %d, want 2", len(unmarshaled.Values.Sounds))
	}
	if unmarshaled.Values.Sounds[1] != sounds[1] {
		t.Errorf("Sound mismatch: got %+v, want %+v", unmarshaled.Values.Sounds[1], sounds[1])
	}
}

func TestClientEvent_Unmarshaling(t *testing.T) {
	tests := []struct {
		name         string
		payload      string
		wantType     string
		wantFilename string
	}{
		{
			name:     "click event",
			payload:  `{"type":"click"}`,
			wantType: ClientClick,
		},
		{
			name:         "play event names a sound",
			payload:      `{"type":"playEvent","sound":{"filename":"explosion"}}`,
			wantType:     ClientPlay,
			wantFilename: "explosion",
		},
		{
			name:     "play event without sound",
			payload:  `{"type":"playEvent"}`,
			wantType: ClientPlay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var event ClientEvent
			if err := json.Unmarshal([]byte(tt.payload), &event); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}

			if event.Type != tt.wantType {
				t.Errorf("Type mismatch: got %q, want %q", event.Type, tt.wantType)
			}
			if tt.wantFilename == "" {
				if event.Sound != nil && event.Sound.Filename != "" {
					t.Errorf("Expected no sound reference, got %+v", event.Sound)
				}
				return
			}
			if event.Sound == nil || event.Sound.Filename != tt.wantFilename {
				t.Errorf("Sound mismatch: got %+v, want filename %q", event.Sound, tt.wantFilename)
			}
		})
	}
}
