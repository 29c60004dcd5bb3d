package pagequery

import (
	"encoding/base64"
	"fmt"
	"strconv"
)

var _encoder = base64.RawURLEncoding

// PageToken is an opaque continuation token for offset paging. It carries
// the offset of the first row of the page it points to, so APIs can hand out
// "next page" tokens without exposing offsets.
type PageToken struct {
	offset int
}

func NewPageToken(offset int) *PageToken {
	return &PageToken{
		offset: offset,
	}
}

// DecodePageToken attempts to parse a base64-encoded string into *PageToken.
// An empty string decodes to a nil token, which points to the first page.
func DecodePageToken(b64String string) (*PageToken, error) {
	if len(b64String) == 0 {
		return nil, nil
	}

	offsetBytes, err := _encoder.DecodeString(b64String)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 encoded page token: %w", err)
	}

	offset, err := strconv.Atoi(string(offsetBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode page token offset value: %w", err)
	}

	if offset < 0 {
		return nil, fmt.Errorf("failed to decode page token: %w", &InvalidRangeError{Offset: offset})
	}

	return &PageToken{
		offset: offset,
	}, nil
}

// String - implements fmt.Stringer. The first page has an empty token.
func (p *PageToken) String() string {
	if p == nil || p.offset == 0 {
		return ""
	}

	return _encoder.EncodeToString([]byte(strconv.Itoa(p.offset)))
}

// IsEmpty reports whether the token points to the first page.
func (p *PageToken) IsEmpty() bool {
	return p == nil || p.offset == 0
}

// GetOffset returns the numeric offset value.
func (p *PageToken) GetOffset() int {
	if p != nil {
		return p.offset
	}

	return 0
}

// PageRequest returns the request for the page the token points to.
func (p *PageToken) PageRequest(limit int, sort ...OrderBy) PageRequest {
	return NewPageRequest(p.GetOffset(), limit, sort...)
}

// MarshalText - implements encoding.TextMarshaler, so tokens serialize as
// their string form in JSON payloads.
func (p *PageToken) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText - implements encoding.TextUnmarshaler.
func (p *PageToken) UnmarshalText(text []byte) error {
	decoded, err := DecodePageToken(string(text))
	if err != nil {
		return err
	}

	p.offset = decoded.GetOffset()

	return nil
}

var _ fmt.Stringer = (*PageToken)(nil)
