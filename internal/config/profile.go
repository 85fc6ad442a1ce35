package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/mmr-tortoise/adbfinder/internal/adb"
	"github.com/mmr-tortoise/adbfinder/internal/model"
)

// Profile is an alternate fingerprint: a different handshake to send
// and/or a different set of reply commands to accept. Unset parts keep
// their defaults.
//
// A profile file is JSON (comments allowed) or YAML:
//
//	{
//	  "name": "adb-cnxn",
//	  // 24 bytes, hex, whitespace ignored
//	  "handshake": "434e584e 01000010 00000000 00000000 00000000 bcb1a7b1",
//	  "commands": ["AUTH", "CNXN", "STLS"],
//	  "strictMagic": true
//	}
type Profile struct {
	Name string

	// Handshake is nil when the profile keeps the default CNXN header.
	Handshake *model.Message

	// Commands is empty when the profile keeps the default command set.
	Commands []model.CommandTag

	StrictMagic bool
}

// profileFile mirrors the on-disk layout.
type profileFile struct {
	Name        string   `json:"name" yaml:"name"`
	Handshake   string   `json:"handshake" yaml:"handshake"`
	Commands    []string `json:"commands" yaml:"commands"`
	StrictMagic bool     `json:"strictMagic" yaml:"strictMagic"`
}

// LoadProfile reads a profile, choosing the decoder by file extension:
// .json/.jsonc use the JSONC reader, .yaml/.yml use YAML.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	profile, err := ParseProfile(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", path, err)
	}
	return profile, nil
}

// ParseProfile decodes a profile in the given format ("json", "jsonc",
// "yaml" or "yml") and validates it.
func ParseProfile(data []byte, format string) (*Profile, error) {
	var raw profileFile
	switch format {
	case "json", "jsonc":
		// Strip comments and trailing commas before handing off to
		// encoding/json.
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format %q (valid: json, jsonc, yaml, yml)", format)
	}

	profile := &Profile{Name: raw.Name, StrictMagic: raw.StrictMagic}

	if raw.Handshake != "" {
		frame, err := hex.DecodeString(strings.Join(strings.Fields(raw.Handshake), ""))
		if err != nil {
			return nil, fmt.Errorf("handshake is not valid hex: %w", err)
		}
		if len(frame) != model.HeaderSize {
			return nil, fmt.Errorf("handshake must be exactly %d bytes, got %d", model.HeaderSize, len(frame))
		}
		msg, err := adb.DecodeMessage(frame)
		if err != nil {
			return nil, err
		}
		profile.Handshake = &msg
	}

	for _, c := range raw.Commands {
		tag, err := model.ParseCommandTag(c)
		if err != nil {
			return nil, err
		}
		profile.Commands = append(profile.Commands, tag)
	}

	return profile, nil
}
