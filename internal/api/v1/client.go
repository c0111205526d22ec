package v1

// Inbound event kinds accepted over the real-time channel. Anything else
// is dropped without reply.
const (
	ClientClick = "click"
	ClientPlay  = "playEvent"
)

// ClientEvent is a message received from a subscriber.
type ClientEvent struct {
	Type  string       `json:"type"`
	Sound *ClientSound `json:"sound"`
}

// ClientSound names the sound a play event refers to.
type ClientSound struct {
	Filename string `json:"filename"`
}
