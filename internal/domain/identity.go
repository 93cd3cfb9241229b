package domain

// Identity is the authenticated subject of a request or live connection.
// It is carried inside access and refresh tokens and never persisted by the
// gateway itself.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// PrivateChannel returns the per-identity channel name used for pushes.
func (i Identity) PrivateChannel() string {
	return "user-" + i.ID
}
