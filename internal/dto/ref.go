package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Ref is a reference to another record. Clients may send it as a raw id
// (number or numeric string) or as an expanded object carrying an "id"
// field; both normalize to the plain identifier here so the rest of the
// code never re-checks shapes.
type Ref struct {
	ID uint
}

// UnmarshalJSON accepts 7, "7" and {"id": 7} style references.
func (r *Ref) UnmarshalJSON(data []byte) error {
	var number json.Number
	if err := json.Unmarshal(data, &number); err == nil {
		return r.fromNumber(number)
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		return r.fromNumber(json.Number(text))
	}

	var expanded struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(data, &expanded); err == nil && expanded.ID != "" {
		return r.fromNumber(expanded.ID)
	}

	return fmt.Errorf("invalid reference: %s", string(data))
}

// MarshalJSON emits the plain identifier.
func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ID)
}

func (r *Ref) fromNumber(number json.Number) error {
	parsed, err := strconv.ParseUint(number.String(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid reference id %q", number.String())
	}

	r.ID = uint(parsed)
	return nil
}

// ResponseValue is the opaque answer payload for one question: a single
// reference for single-choice questions or a list for multiple-choice.
type ResponseValue struct {
	raw json.RawMessage
	ids []uint
}

// UnmarshalJSON keeps the raw payload and eagerly extracts option ids from
// either a scalar reference or an array of references.
func (v *ResponseValue) UnmarshalJSON(data []byte) error {
	v.raw = append(json.RawMessage(nil), data...)

	var many []Ref
	if err := json.Unmarshal(data, &many); err == nil {
		v.ids = make([]uint, 0, len(many))
		for _, ref := range many {
			v.ids = append(v.ids, ref.ID)
		}
		return nil
	}

	var one Ref
	if err := json.Unmarshal(data, &one); err == nil {
		v.ids = []uint{one.ID}
		return nil
	}

	// Unrecognized shapes grade as incorrect rather than erroring.
	v.ids = nil
	return nil
}

// MarshalJSON replays the original payload.
func (v ResponseValue) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// Single returns the lone referenced id, if exactly one was supplied.
func (v ResponseValue) Single() (uint, bool) {
	if len(v.ids) != 1 {
		return 0, false
	}
	return v.ids[0], true
}

// IDs returns every referenced id in submission order.
func (v ResponseValue) IDs() []uint {
	return v.ids
}

// Raw returns the payload as it arrived.
func (v ResponseValue) Raw() json.RawMessage {
	return v.raw
}
