package imagecheck

import (
	"bytes"
	"errors"
	"testing"
)

// payload builds a byte string starting with magic, padded to size.
func payload(magic []byte, size int) []byte {
	data := make([]byte, size)
	copy(data, magic)
	return data
}

func TestValidateAcceptsAllSignatureFamilies(t *testing.T) {
	tests := []struct {
		name   string
		magic  []byte
		format string
	}{
		{name: "jpeg", magic: []byte{0xff, 0xd8, 0xff}, format: "jpeg"},
		{name: "png", magic: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, format: "png"},
		{name: "gif87a", magic: []byte("GIF87a"), format: "gif"},
		{name: "gif89a", magic: []byte("GIF89a"), format: "gif"},
		{name: "webp riff", magic: []byte("RIFF"), format: "webp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := Validate(payload(tt.magic, DefaultMinBytes), 0)
			if err != nil {
				t.Fatalf("size-valid %s payload should be accepted: %v", tt.name, err)
			}
			if format != tt.format {
				t.Errorf("format = %q, want %q", format, tt.format)
			}
		})
	}
}

func TestValidateRejectsUndersized(t *testing.T) {
	// Valid signature but truncated below threshold.
	data := payload([]byte{0xff, 0xd8, 0xff}, DefaultMinBytes-1)
	if _, err := Validate(data, 0); !errors.Is(err, ErrUndersized) {
		t.Fatalf("expected ErrUndersized, got %v", err)
	}

	if _, err := Validate(nil, 0); !errors.Is(err, ErrUndersized) {
		t.Fatalf("empty payload: expected ErrUndersized, got %v", err)
	}
}

func TestValidateRejectsUnknownSignature(t *testing.T) {
	// Size-valid HTML error page must be rejected.
	data := bytes.Repeat([]byte("<html>not an image</html>"), 100)
	if _, err := Validate(data, 0); !errors.Is(err, ErrUnknownSignature) {
		t.Fatalf("expected ErrUnknownSignature, got %v", err)
	}
}

func TestValidateCustomThreshold(t *testing.T) {
	data := payload([]byte("GIF89a"), 50)
	if _, err := Validate(data, 40); err != nil {
		t.Fatalf("payload above custom threshold should pass: %v", err)
	}
	if _, err := Validate(data, 60); !errors.Is(err, ErrUndersized) {
		t.Fatalf("payload below custom threshold should fail, got %v", err)
	}
}

func TestDetectFormatUnknown(t *testing.T) {
	if format, ok := DetectFormat([]byte("BM...bitmap")); ok {
		t.Fatalf("BMP should not be recognized, got %q", format)
	}
}
