// Package settings implements the JSON compiler-settings schema
// (spec §6): whether PUSH0 may be used, the filling pattern for the
// padding after a block's trailing PUSH data, and compile-time
// variable overrides.
package settings

import (
	"encoding/hex"
	"encoding/json"

	"github.com/meplang/meplangc/pkg/errors"
)

// FillingKind discriminates the two filling-pattern shapes accepted
// in JSON: the bare string "random", or {"repeat": "0xHH"}.
type FillingKind int

const (
	FillingRepeat FillingKind = iota
	FillingRandom
)

// FillingPattern governs the filler bytes the emitter appends after a
// root block whose trailing PUSH is still owed data bytes, so that the
// next block does not begin inside that PUSH's data.
type FillingPattern struct {
	Kind   FillingKind
	Repeat byte // FillingRepeat
}

// DefaultFillingPattern is {"repeat":"0x00"}, the spec's default.
var DefaultFillingPattern = FillingPattern{Kind: FillingRepeat, Repeat: 0x00}

// Settings is the fully-resolved compiler configuration (spec §6).
type Settings struct {
	Push0          bool
	FillingPattern FillingPattern
	Variables      map[string][]byte
}

// Default returns the settings a compile uses when none are supplied:
// push0 enabled, zero-repeat filling, no compile-time variables.
func Default() Settings {
	return Settings{Push0: true, FillingPattern: DefaultFillingPattern, Variables: map[string][]byte{}}
}

// jsonSettings mirrors the wire schema's camelCase field names.
type jsonSettings struct {
	Push0          *bool             `json:"push0"`
	FillingPattern json.RawMessage   `json:"fillingPattern"`
	Variables      map[string]string `json:"variables"`
}

// Parse decodes raw JSON settings text, applying the spec's defaults
// for any field the caller omitted.
func Parse(data []byte) (Settings, error) {
	s := Default()
	if len(data) == 0 {
		return s, nil
	}
	var raw jsonSettings
	if err := json.Unmarshal(data, &raw); err != nil {
		return Settings{}, errors.Wrap(err, "invalid compiler settings JSON")
	}
	if raw.Push0 != nil {
		s.Push0 = *raw.Push0
	}
	if len(raw.FillingPattern) > 0 {
		fp, err := parseFillingPattern(raw.FillingPattern)
		if err != nil {
			return Settings{}, err
		}
		s.FillingPattern = fp
	}
	if raw.Variables != nil {
		vars := make(map[string][]byte, len(raw.Variables))
		for name, hexStr := range raw.Variables {
			b, err := decodeHex(hexStr)
			if err != nil {
				return Settings{}, errors.Wrapf(err, "settings.variables.%s", name)
			}
			vars[name] = b
		}
		s.Variables = vars
	}
	return s, nil
}

func parseFillingPattern(data json.RawMessage) (FillingPattern, error) {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if asString == "random" {
			return FillingPattern{Kind: FillingRandom}, nil
		}
		return FillingPattern{}, errors.Errorf("unrecognized fillingPattern string %q", asString)
	}
	var asObject struct {
		Repeat string `json:"repeat"`
	}
	if err := json.Unmarshal(data, &asObject); err != nil {
		return FillingPattern{}, errors.Wrap(err, "fillingPattern must be \"random\" or {\"repeat\":\"0xHH\"}")
	}
	b, err := decodeHex(asObject.Repeat)
	if err != nil {
		return FillingPattern{}, errors.Wrap(err, "fillingPattern.repeat")
	}
	if len(b) != 1 {
		return FillingPattern{}, errors.Errorf("fillingPattern.repeat must be exactly one byte, got %d", len(b))
	}
	return FillingPattern{Kind: FillingRepeat, Repeat: b[0]}, nil
}

func decodeHex(s string) ([]byte, error) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return nil, errors.Errorf("expected a 0x-prefixed hex string, got %q", s)
	}
	b, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, errors.Wrapf(err, "invalid hex string %q", s)
	}
	return b, nil
}
