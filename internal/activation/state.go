package activation

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"pysel/internal/distribution"
)

// Saved is a variable's value before activation. Set distinguishes an unset
// variable from one holding the empty string.
type Saved struct {
	Value string `msgpack:"v"`
	Set   bool   `msgpack:"s"`
}

// State is everything needed to undo an activation.
type State struct {
	Active bool `msgpack:"active"`
	// Vars holds the pre-activation value of every touched variable and
	// Order the sequence they were first touched in.
	Vars  map[string]Saved `msgpack:"vars"`
	Order []string         `msgpack:"order"`

	Prompt      Saved `msgpack:"prompt"`
	PromptSaved bool  `msgpack:"prompt_saved"`
	Nested      bool  `msgpack:"nested"`
	// NestedName is the environment name the nested manager reported.
	NestedName string `msgpack:"nested_name,omitempty"`

	Selection *distribution.Distribution `msgpack:"selection,omitempty"`
}

func newState() State {
	return State{Vars: map[string]Saved{}}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Vars = make(map[string]Saved, len(s.Vars))
	for k, v := range s.Vars {
		out.Vars[k] = v
	}
	out.Order = append([]string(nil), s.Order...)
	if s.Selection != nil {
		sel := *s.Selection
		out.Selection = &sel
	}
	return out
}

// Encode packs the state into a string that fits in an environment variable.
func (s State) Encode() (string, error) {
	raw, err := msgpack.Marshal(&s)
	if err != nil {
		return "", fmt.Errorf("encode activation state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeState reverses Encode.
func DecodeState(encoded string) (State, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return State{}, fmt.Errorf("decode activation state: %w", err)
	}
	var s State
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("decode activation state: %w", err)
	}
	if s.Vars == nil {
		s.Vars = map[string]Saved{}
	}
	return s, nil
}
