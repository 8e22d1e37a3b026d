package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// viewIDPrefix is the wire prefix used for view identifiers.
const viewIDPrefix = "view-id-"

// ViewID identifies a view. View and buffer identifiers are drawn from one
// shared counter, so a ViewID never equals a BufferID.
type ViewID uint64

// BufferID identifies a buffer backing one or more views.
type BufferID uint64

// String returns the wire form of the view id.
func (id ViewID) String() string {
	return viewIDPrefix + strconv.FormatUint(uint64(id), 10)
}

// MarshalJSON encodes the view id as "view-id-<n>".
func (id ViewID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts "view-id-<n>" or a bare integer.
func (id *ViewID) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		var n uint64
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return fmt.Errorf("view id: %w", err)
		}
		*id = ViewID(n)
		return nil
	}
	parsed, err := ParseViewID(text)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseViewID parses the "view-id-<n>" form (a bare number is also accepted).
func ParseViewID(text string) (ViewID, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(text), viewIDPrefix)
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid view id %q", text)
	}
	return ViewID(n), nil
}

// String returns the decimal form of the buffer id.
func (id BufferID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}
