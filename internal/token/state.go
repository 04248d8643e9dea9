package token

// state.go encodes the OAuth state parameter as base64 JSON carrying the
// initiating user and a timestamp. The callback decodes it to recover the
// user without any server-side session store, which is what lets a single
// callback handler serve every tenant.

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// State is the payload round-tripped through the OAuth state parameter.
type State struct {
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

// EncodeState packs the user ID and current time into a state string.
func EncodeState(userID string, now time.Time) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("state requires a user id")
	}
	payload, err := json.Marshal(State{UserID: userID, Timestamp: now.Unix()})
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(payload), nil
}

// DecodeState unpacks a state string produced by EncodeState.
func DecodeState(s string) (State, error) {
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	if st.UserID == "" {
		return State{}, fmt.Errorf("decode state: missing user id")
	}
	return st, nil
}
