package compression

import (
	"bytes"
	"strings"
	"testing"
)

var codecs = []Type{None, Snappy, Zlib, LZ4, Zstd}

func TestRoundTrip(t *testing.T) {
	// Repetitive like a real operation history.
	data := []byte(strings.Repeat("Write(id=4242) = 0\nRead(id=4242) ok\n", 500))

	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			compressed, err := Compress(codec, data)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if codec != None && len(compressed) >= len(data) {
				t.Errorf("compressed size %d >= original %d", len(compressed), len(data))
			}

			out, err := Decompress(codec, compressed)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func TestEmptyInput(t *testing.T) {
	for _, codec := range codecs {
		compressed, err := Compress(codec, nil)
		if err != nil {
			t.Fatalf("%s: Compress(nil): %v", codec, err)
		}
		out, err := Decompress(codec, compressed)
		if err != nil {
			t.Fatalf("%s: Decompress: %v", codec, err)
		}
		if len(out) != 0 {
			t.Errorf("%s: round trip of empty input returned %d bytes", codec, len(out))
		}
	}
}

func TestTypeFromName(t *testing.T) {
	for _, codec := range codecs {
		got, err := TypeFromName(codec.String())
		if err != nil {
			t.Fatalf("TypeFromName(%q): %v", codec.String(), err)
		}
		if got != codec {
			t.Errorf("TypeFromName(%q) = %v, want %v", codec.String(), got, codec)
		}
	}
	if _, err := TypeFromName("brotli"); err == nil {
		t.Error("expected error for unsupported codec name")
	}
}
