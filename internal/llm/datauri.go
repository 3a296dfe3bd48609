package llm

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var errInvalidDataURI = errors.New("invalid data uri")

// IsDataURI reports whether s looks like a base64 data URI.
func IsDataURI(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return false
	}
	comma := strings.IndexByte(s, ',')
	return comma > 0 && strings.Contains(s[:comma], ";base64")
}

// ParseDataURI decodes data:<mime>;base64,<payload> into a Media part.
func ParseDataURI(s string) (Media, error) {
	s = strings.TrimSpace(s)
	if !IsDataURI(s) {
		return Media{}, errInvalidDataURI
	}
	comma := strings.IndexByte(s, ',')
	meta := strings.TrimPrefix(s[:comma], "data:")
	mimeType := strings.TrimSpace(strings.SplitN(meta, ";", 2)[0])
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	payload := s[comma+1:]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return Media{}, fmt.Errorf("%w: %v", errInvalidDataURI, err)
		}
	}
	return Media{MIMEType: mimeType, Data: data}, nil
}

// DataURI encodes m as a base64 data URI.
func (m Media) DataURI() string {
	return "data:" + m.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
}
