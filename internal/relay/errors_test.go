package relay

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"8080", 8080, false},
		{"1", 1, false},
		{"65535", 65535, false},
		{"0", 0, true},
		{"65536", 0, true},
		{"-1", 0, true},
		{"http", 0, true},
		{"", 0, true},
		{"80.5", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePort(tt.input)
			if tt.wantErr {
				var usageErr *UsageError
				if !errors.As(err, &usageErr) {
					t.Errorf("Expected *UsageError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestParsePort_WrapsConversionError(t *testing.T) {
	_, err := ParsePort("abc")
	var numErr *strconv.NumError
	if !errors.As(err, &numErr) {
		t.Errorf("Expected the strconv error to be wrapped, got %v", err)
	}
	if !strings.Contains(err.Error(), `invalid port "abc"`) {
		t.Errorf("Unexpected message: %v", err)
	}
}

func TestTransferError(t *testing.T) {
	err := &TransferError{Direction: Receive, Err: io.ErrUnexpectedEOF}

	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("Expected TransferError to unwrap to its cause")
	}
	if err.Error() != "receive failed: unexpected EOF" {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}

func TestUsageError_Message(t *testing.T) {
	if got := (&UsageError{Msg: "expected 2 arguments"}).Error(); got != "expected 2 arguments" {
		t.Errorf("Unexpected message: %q", got)
	}
}

func TestDecodeChunk(t *testing.T) {
	tests := []struct {
		name  string
		chunk []byte
		want  string
	}{
		{"ascii", []byte("hello"), "hello"},
		{"multibyte", []byte("héllo"), "héllo"},
		{"invalid byte", []byte{'a', 0xff, 'b'}, "a�b"},
		{"truncated rune", []byte{'a', 0xc3}, "a�"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeChunk(tt.chunk); got != tt.want {
				t.Errorf("decodeChunk(%v) = %q, want %q", tt.chunk, got, tt.want)
			}
		})
	}
}
