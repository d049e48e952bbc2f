// Package imagecheck validates downloaded payloads before they reach disk.
//
// The check is a cheap integrity gate: a minimum size threshold (anything
// smaller is presumed to be an error page or placeholder) and a leading-bytes
// signature match against the common web image containers. It does not decode
// image structure.
package imagecheck

import (
	"bytes"
	"errors"
	"fmt"
)

// DefaultMinBytes is the smallest payload accepted as a genuine image.
const DefaultMinBytes = 1000

var (
	// ErrUndersized rejects payloads below the size threshold.
	ErrUndersized = errors.New("imagecheck: payload below minimum size")

	// ErrUnknownSignature rejects payloads whose leading bytes match no
	// recognized image container.
	ErrUnknownSignature = errors.New("imagecheck: unrecognized image signature")
)

type signature struct {
	format string
	magic  []byte
}

// Recognized container signatures. RIFF covers WebP.
var signatures = []signature{
	{format: "jpeg", magic: []byte{0xff, 0xd8, 0xff}},
	{format: "png", magic: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}},
	{format: "gif", magic: []byte("GIF87a")},
	{format: "gif", magic: []byte("GIF89a")},
	{format: "webp", magic: []byte("RIFF")},
}

// DetectFormat reports the container format of data, if recognized.
func DetectFormat(data []byte) (string, bool) {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.format, true
		}
	}
	return "", false
}

// Validate accepts data as an image payload or reports why it is rejected.
// minBytes <= 0 applies DefaultMinBytes. On success it returns the detected
// container format.
func Validate(data []byte, minBytes int) (string, error) {
	if minBytes <= 0 {
		minBytes = DefaultMinBytes
	}
	if len(data) < minBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrUndersized, len(data))
	}
	format, ok := DetectFormat(data)
	if !ok {
		return "", ErrUnknownSignature
	}
	return format, nil
}
