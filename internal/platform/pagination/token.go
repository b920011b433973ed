package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// tokenPrefix versions the opaque token format so a future cursor shape can
// coexist with tokens already handed out to clients.
const tokenPrefix = "c1."

// Cursor marks the last document returned by the previous page.
type Cursor struct {
	LastID string
}

// EncodeToken serialises the cursor into an opaque page token. An empty
// cursor encodes to an empty token, meaning "first page".
func EncodeToken(cursor Cursor) (string, error) {
	if cursor.LastID == "" {
		return "", nil
	}
	return tokenPrefix + base64.RawURLEncoding.EncodeToString([]byte(cursor.LastID)), nil
}

// DecodeToken parses a page token produced by EncodeToken.
func DecodeToken(token string) (Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Cursor{}, nil
	}

	payload, ok := strings.CutPrefix(token, tokenPrefix)
	if !ok || payload == "" {
		return Cursor{}, fmt.Errorf("%w: unrecognised token format", ErrInvalidPageToken)
	}
	lastID, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	return Cursor{LastID: string(lastID)}, nil
}
