// Package identity extracts a stable user identifier from the contact field of
// an event-track record.
//
// The upstream field is inconsistently serialized: sometimes a real object,
// sometimes a JSON string, sometimes a Python-dict-like string with single
// quotes. Extract tries independent strategies in order and stops at the
// first one that yields a string identity.
package identity

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

var identityKeys = []string{"identity", "Identity"}

var identityPattern = regexp.MustCompile(`(?i)["']identity["']\s*:\s*["']([^"']+)["']`)

type strategy func(contact any) (string, bool)

var strategies = []strategy{
	fromMapping,
	fromJSON,
	fromLooseJSON,
	fromPattern,
}

// Extract returns the identity carried by contact. It never panics; ok is
// false when no strategy finds a string identity.
func Extract(contact any) (id string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			id, ok = "", false
		}
	}()
	if contact == nil {
		return "", false
	}
	for _, s := range strategies {
		if id, ok := s(contact); ok {
			return id, true
		}
	}
	return "", false
}

func fromMapping(contact any) (string, bool) {
	switch m := contact.(type) {
	case map[string]any:
		for _, k := range identityKeys {
			if v, ok := m[k].(string); ok {
				return v, true
			}
		}
		for k, v := range m {
			if s, ok := v.(string); ok && strings.EqualFold(k, "identity") {
				return s, true
			}
		}
	case map[string]string:
		for _, k := range identityKeys {
			if v, ok := m[k]; ok {
				return v, true
			}
		}
		for k, v := range m {
			if strings.EqualFold(k, "identity") {
				return v, true
			}
		}
	}
	return "", false
}

func fromJSON(contact any) (string, bool) {
	s, ok := contact.(string)
	if !ok {
		return "", false
	}
	return identityFromObject(strings.TrimSpace(s))
}

func fromLooseJSON(contact any) (string, bool) {
	s, ok := contact.(string)
	if !ok {
		return "", false
	}
	return identityFromObject(strings.ReplaceAll(strings.TrimSpace(s), "'", `"`))
}

func fromPattern(contact any) (string, bool) {
	s, ok := contact.(string)
	if !ok {
		return "", false
	}
	m := identityPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func identityFromObject(s string) (string, bool) {
	if s == "" || !gjson.Valid(s) {
		return "", false
	}
	obj := gjson.Parse(s)
	if !obj.IsObject() {
		return "", false
	}
	for _, k := range identityKeys {
		if v := obj.Get(k); v.Type == gjson.String {
			return v.Str, true
		}
	}
	var (
		found string
		ok    bool
	)
	obj.ForEach(func(key, value gjson.Result) bool {
		if value.Type == gjson.String && strings.EqualFold(key.Str, "identity") {
			found, ok = value.Str, true
			return false
		}
		return true
	})
	return found, ok
}
