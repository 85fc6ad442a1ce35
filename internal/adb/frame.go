package adb

import (
	"bytes"
	"fmt"

	"github.com/lunixbochs/struc"

	"github.com/mmr-tortoise/adbfinder/internal/model"
)

// EncodeMessage packs an ADB header into its 24-byte little-endian wire form.
func EncodeMessage(m model.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, &m); err != nil {
		return nil, fmt.Errorf("encode adb header: %w", err)
	}
	if buf.Len() != model.HeaderSize {
		return nil, fmt.Errorf("encode adb header: got %d bytes, want %d", buf.Len(), model.HeaderSize)
	}
	return buf.Bytes(), nil
}

// DecodeMessage unpacks the first 24 bytes of b into a header. Trailing
// bytes (a payload) are ignored.
func DecodeMessage(b []byte) (model.Message, error) {
	var m model.Message
	if len(b) < model.HeaderSize {
		return m, fmt.Errorf("decode adb header: got %d bytes, want %d", len(b), model.HeaderSize)
	}
	if err := struc.Unpack(bytes.NewReader(b[:model.HeaderSize]), &m); err != nil {
		return m, fmt.Errorf("decode adb header: %w", err)
	}
	return m, nil
}
