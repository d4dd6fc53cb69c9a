package cursor

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidCursor is wrapped by every Decode failure.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is a position in (dt DESC, id DESC) order.
type Cursor struct {
	DT *string `json:"dt"`
	ID string  `json:"id"`
}

// New returns a cursor at (dt, id).
func New(dt *string, id string) Cursor {
	return Cursor{DT: dt, ID: id}
}

// Encode returns the token for c. DT and ID must be valid UTF-8, which the
// repository enforces on write; JSON would replace invalid bytes with
// U+FFFD and the token would point elsewhere.
func (c Cursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.URLEncoding.EncodeToString(data)
}

// String implements fmt.Stringer.
func (c Cursor) String() string {
	dt := "null"
	if c.DT != nil {
		dt = *c.DT
	}
	return fmt.Sprintf("cursor(dt=%s, id=%s)", dt, c.ID)
}

// Equal reports whether both cursors point at the same position.
func (c Cursor) Equal(o Cursor) bool {
	if c.ID != o.ID {
		return false
	}
	if c.DT == nil || o.DT == nil {
		return c.DT == nil && o.DT == nil
	}
	return *c.DT == *o.DT
}

// Decode parses a token produced by Encode. Padding is optional.
func Decode(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, fmt.Errorf("%w: empty token", ErrInvalidCursor)
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		data, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(token, "="))
	}
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: not base64: %v", ErrInvalidCursor, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Cursor{}, fmt.Errorf("%w: not a JSON object: %v", ErrInvalidCursor, err)
	}

	rawDT, ok := fields["dt"]
	if !ok {
		return Cursor{}, fmt.Errorf("%w: missing dt", ErrInvalidCursor)
	}
	rawID, ok := fields["id"]
	if !ok {
		return Cursor{}, fmt.Errorf("%w: missing id", ErrInvalidCursor)
	}

	var c Cursor
	if !bytes.Equal(bytes.TrimSpace(rawDT), []byte("null")) {
		var dt string
		if err := json.Unmarshal(rawDT, &dt); err != nil {
			return Cursor{}, fmt.Errorf("%w: dt is not a string", ErrInvalidCursor)
		}
		c.DT = &dt
	}
	if err := json.Unmarshal(rawID, &c.ID); err != nil {
		return Cursor{}, fmt.Errorf("%w: id is not a string", ErrInvalidCursor)
	}

	return c, nil
}
