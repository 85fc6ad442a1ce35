package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultHandshake_Magic verifies that the CNXN handshake carries the
// complement of its command word in the magic field, as every ADB header must.
func TestDefaultHandshake_Magic(t *testing.T) {
	hs := DefaultHandshake()
	assert.True(t, hs.HasValidMagic())
	assert.Equal(t, CommandCNXN, hs.Tag())
	assert.Equal(t, "CNXN", hs.Tag().String())
}

// TestMessage_HasValidMagic checks the complement rule on a few headers.
func TestMessage_HasValidMagic(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"okay header", Message{Command: 0x59414b4f, Magic: ^uint32(0x59414b4f)}, true},
		{"zero magic", Message{Command: 0x59414b4f}, false},
		{"all zero", Message{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.HasValidMagic())
		})
	}
}

// TestDefaultCommands verifies the eight recognized tags in their wire order,
// and that callers get an independent copy.
func TestDefaultCommands(t *testing.T) {
	cmds := DefaultCommands()
	require.Len(t, cmds, 8)

	names := make([]string, 0, len(cmds))
	for _, c := range cmds {
		names = append(names, c.String())
	}
	assert.Equal(t, []string{"SYNC", "CLSE", "WRTE", "AUTH", "OPEN", "CNXN", "STLS", "OKAY"}, names)

	cmds[0] = CommandTag{'X', 'X', 'X', 'X'}
	assert.Equal(t, CommandSYNC, DefaultCommands()[0], "mutating one copy must not leak into the next")
}

// TestParseCommandTag verifies string-to-tag conversion. Matching is exact,
// so lowercase input is preserved rather than normalized.
func TestParseCommandTag(t *testing.T) {
	tests := []struct {
		input    string
		expected CommandTag
		hasError bool
	}{
		{"OKAY", CommandOKAY, false},
		{"okay", CommandTag{'o', 'k', 'a', 'y'}, false},
		{"OKA", CommandTag{}, true},
		{"OKAYY", CommandTag{}, true},
		{"", CommandTag{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tag, err := ParseCommandTag(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tag)
		})
	}
}

// TestPortRange_Validate checks bound validation.
func TestPortRange_Validate(t *testing.T) {
	tests := []struct {
		name    string
		r       PortRange
		wantErr string
	}{
		{"default", DefaultPortRange(), ""},
		{"single port", PortRange{Low: 5555, High: 5555}, ""},
		{"full range", PortRange{Low: 1, High: 65535}, ""},
		{"zero low", PortRange{Low: 0, High: 100}, "low bound"},
		{"high too large", PortRange{Low: 1024, High: 70000}, "high bound"},
		{"inverted", PortRange{Low: 2000, High: 1000}, "greater than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestPortRange_ContainsAndSize checks the inclusive bounds.
func TestPortRange_ContainsAndSize(t *testing.T) {
	r := DefaultPortRange()
	assert.Equal(t, 64512, r.Size())
	assert.True(t, r.Contains(1024))
	assert.True(t, r.Contains(65535))
	assert.False(t, r.Contains(1023))
	assert.False(t, r.Contains(65536))
	assert.Equal(t, "1024-65535", r.String())

	assert.Equal(t, 0, PortRange{Low: 10, High: 5}.Size())
}

// TestParseProbeStage verifies string-to-stage conversion.
func TestParseProbeStage(t *testing.T) {
	stage, err := ParseProbeStage("Matched")
	require.NoError(t, err)
	assert.Equal(t, StageMatched, stage)

	_, err = ParseProbeStage("bogus")
	assert.Error(t, err)
	assert.False(t, ProbeStage("").IsValid())
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitNoFreePort, "no free port")
		assert.Equal(t, ExitNoFreePort, err.Code)
		assert.Equal(t, "no free port", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("unknown key")
		err := WrapCLIError(ExitInvalidConfig, "failed to load configuration", inner)
		assert.Equal(t, ExitInvalidConfig, err.Code)
		assert.Contains(t, err.Error(), "unknown key")
		assert.Equal(t, inner, err.Unwrap())
	})

	t.Run("errors.Is chain", func(t *testing.T) {
		inner := errors.New("unknown key")
		err := WrapCLIError(ExitInvalidConfig, "failed to load configuration", inner)
		assert.True(t, errors.Is(err, inner))
	})
}
