package catalog

import (
	"encoding/json"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

// EncodeImages stores image URLs as a JSON array, dropping blanks.
func EncodeImages(urls []string) datatypes.JSON {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

// DecodeImages always returns a list of image URLs.
// Arrays are returned as is, objects contribute their values in key order,
// a JSON string holding either is unwrapped, and any other string becomes a single entry.
func DecodeImages(raw datatypes.JSON) []string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []string{}
	}

	var list []string
	if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
		if list == nil {
			return []string{}
		}
		return list
	}

	var object map[string]string
	if err := json.Unmarshal([]byte(trimmed), &object); err == nil {
		keys := make([]string, 0, len(object))
		for key := range object {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		values := make([]string, 0, len(keys))
		for _, key := range keys {
			values = append(values, object[key])
		}
		return values
	}

	var nested string
	if err := json.Unmarshal([]byte(trimmed), &nested); err == nil {
		return DecodeImages(datatypes.JSON(nested))
	}

	return []string{trimmed}
}
