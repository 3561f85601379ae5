package repository

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// Cursor marks a position in the transaction ordering (occurred_at
// desc, created_at desc, id desc). It round-trips through an opaque
// base64 string so clients can resume a listing without knowing the
// sort keys.
type Cursor struct {
	OccurredAt time.Time `json:"o"`
	CreatedAt  time.Time `json:"c"`
	ID         string    `json:"i"`
}

// ErrBadCursor is returned for cursors that did not come from Encode.
var ErrBadCursor = errors.New("malformed cursor")

// Encode serializes the cursor to its opaque wire form.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses an opaque cursor produced by Encode.
func DecodeCursor(s string) (Cursor, error) {
	var c Cursor
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return c, ErrBadCursor
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, ErrBadCursor
	}
	if c.ID == "" {
		return c, ErrBadCursor
	}
	return c, nil
}
