package v1

import "fmt"

// Sound is the public shape of one catalog entry.
// Filename doubles as the lookup key and the on-disk stem of the audio
// payload, so it is unique across the catalog and never empty.
type Sound struct {
	// ID is assigned once at registration and never reused, even after
	// deletions leave gaps in the sequence.
	ID int `json:"id"`

	// Filename is the unique logical name, without extension.
	// Play events reference sounds by this value.
	Filename string `json:"filename"`

	// DisplayName is the human-readable label shown on the board.
	DisplayName string `json:"displayName"`

	// Source attributes where the clip came from (episode, short, etc.).
	Source string `json:"source"`

	// PlayCount is the all-time number of plays recorded for this sound.
	PlayCount int64 `json:"playCount"`
}

// Statistics is the counter figures block carried by notifications and
// the subscriber snapshot. All figures refer to the same instant.
type Statistics struct {
	Total   int64 `json:"total"`
	Daily   int64 `json:"daily"`
	Weekly  int64 `json:"weekly"`
	Monthly int64 `json:"monthly"`
	Average int64 `json:"average"`
}

// RegisterRequest is the metadata half of a sound upload. The audio
// payload arrives alongside it as multipart file parts.
type RegisterRequest struct {
	Filename    string `form:"filename"`
	DisplayName string `form:"displayName"`
	Source      string `form:"source"`
}

// Validate ensures the registration carries the required fields.
func (r *RegisterRequest) Validate() error {
	if r.Filename == "" {
		return fmt.Errorf("filename is required")
	}

	if r.DisplayName == "" {
		return fmt.Errorf("displayName is required")
	}

	return nil
}

// RenameRequest carries the replacement fields for an existing sound.
// Filename is the new logical name; empty fields keep their current value.
type RenameRequest struct {
	Filename    string `json:"filename"`
	DisplayName string `json:"displayName"`
	Source      string `json:"source"`
}

// Validate ensures the rename changes at least one field.
func (r *RenameRequest) Validate() error {
	if r.Filename == "" && r.DisplayName == "" && r.Source == "" {
		return fmt.Errorf("at least one of filename, displayName, source is required")
	}

	return nil
}
