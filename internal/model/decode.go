package model

import (
	"encoding/json"
	"strings"
)

// DecodeRawEvent decodes one JSON object into a RawEvent. Numbers stay
// json.Number so large integer ids keep every digit. ok is false for
// anything that is not an object.
func DecodeRawEvent(raw string) (RawEvent, bool) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var ev map[string]any
	if err := dec.Decode(&ev); err != nil || ev == nil {
		return nil, false
	}
	return RawEvent(ev), true
}
