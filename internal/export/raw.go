package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
)

// SaveRaw writes events as an indented JSON array.
func SaveRaw(path string, events []model.RawEvent) error {
	if events == nil {
		events = []model.RawEvent{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode raw events: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write raw events: %w", err)
	}
	return nil
}

// LoadRaw reads events saved by SaveRaw. It also accepts a commands API
// response envelope ({"resource": {"items": [...]}}) or an object with a
// top-level "items" array. Non-object items are skipped.
func LoadRaw(path string) ([]model.RawEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw events: %w", err)
	}
	return ParseRaw(data)
}

// ParseRaw decodes the formats accepted by LoadRaw.
func ParseRaw(data []byte) ([]model.RawEvent, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("raw events are not valid JSON")
	}
	root := gjson.ParseBytes(data)
	var items gjson.Result
	switch {
	case root.IsArray():
		items = root
	case root.Get("resource.items").IsArray():
		items = root.Get("resource.items")
	case root.Get("items").IsArray():
		items = root.Get("items")
	default:
		return nil, fmt.Errorf("raw events must be an array or contain an items array")
	}

	arr := items.Array()
	events := make([]model.RawEvent, 0, len(arr))
	for _, item := range arr {
		if !item.IsObject() {
			continue
		}
		if ev, ok := model.DecodeRawEvent(item.Raw); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}
