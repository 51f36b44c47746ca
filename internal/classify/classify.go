// Package classify turns a classifier response into a Scan.
//
// Responses are tried against three strategies in order: the whole body as a
// JSON object, a JSON object embedded in prose or a markdown fence, and
// finally YAML or loose "key: value" lines.
package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/roach88/scanledger/internal/history"
)

// ErrParseFailed is returned when no strategy yields an item name.
var ErrParseFailed = errors.New("failed to parse classifier response")

// Result is one classified item.
type Result struct {
	Item          string  `json:"item" yaml:"item"`
	Material      string  `json:"material" yaml:"material"`
	Recyclable    bool    `json:"recyclable" yaml:"recyclable"`
	Bin           string  `json:"bin" yaml:"bin"`
	Notes         string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	CarbonSavedKg float64 `json:"carbon_saved_kg" yaml:"carbon_saved_kg"`
}

// Scan builds the Scan recorded for r. raw is kept verbatim.
func (r Result) Scan(at time.Time, source history.Source, localImagePath, raw string) history.Scan {
	return history.Scan{
		At:             at,
		Item:           r.Item,
		Material:       r.Material,
		Recyclable:     r.Recyclable,
		Bin:            r.Bin,
		Notes:          r.Notes,
		CarbonSavedKg:  r.CarbonSavedKg,
		Source:         source,
		LocalImagePath: localImagePath,
		Raw:            raw,
	}.Normalized()
}

type strategy struct {
	name string
	fn   func(string) (map[string]any, bool)
}

var strategies = []strategy{
	{"json", strictJSON},
	{"embedded_json", embeddedJSON},
	{"lines", keyValueLines},
}

// Parse extracts a Result from content. It never panics on malformed input.
func Parse(content string) (Result, error) {
	content = strings.TrimSpace(content)
	for _, s := range strategies {
		fields, ok := s.fn(content)
		if !ok {
			continue
		}
		if r, ok := fromFields(fields); ok {
			return r, nil
		}
	}
	return Result{}, fmt.Errorf("%w: %q", ErrParseFailed, truncate(content, 80))
}

// ParseStrategy reports which strategy accepted content, or "" if none did.
func ParseStrategy(content string) string {
	content = strings.TrimSpace(content)
	for _, s := range strategies {
		if fields, ok := s.fn(content); ok {
			if _, ok := fromFields(fields); ok {
				return s.name
			}
		}
	}
	return ""
}

func strictJSON(content string) (map[string]any, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return nil, false
	}
	return m, true
}

var fenceRegex = regexp.MustCompile(`(?s)` + "```" + `(?:json)?\s*\n?(.*?)\n?` + "```")

func embeddedJSON(content string) (map[string]any, bool) {
	if matches := fenceRegex.FindStringSubmatch(content); len(matches) >= 2 {
		if m, ok := strictJSON(strings.TrimSpace(matches[1])); ok {
			return m, true
		}
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return strictJSON(content[start : end+1])
}

func keyValueLines(content string) (map[string]any, bool) {
	var m map[string]any
	if err := yaml.Unmarshal([]byte(content), &m); err == nil && len(m) > 0 {
		return m, true
	}

	m = map[string]any{}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "-*• ")
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			key, value, ok = strings.Cut(line, "=")
		}
		if !ok {
			continue
		}
		key = strings.Trim(strings.TrimSpace(key), "*_\"")
		if key == "" {
			continue
		}
		m[key] = strings.Trim(strings.TrimSpace(value), "\"")
	}
	return m, len(m) > 0
}

var aliases = map[string][]string{
	"item":       {"item", "name", "object", "itemname"},
	"material":   {"material", "materialtype"},
	"recyclable": {"recyclable", "isrecyclable"},
	"bin":        {"bin", "disposal", "disposalbin"},
	"notes":      {"notes", "note", "tips", "instructions"},
	"carbon":     {"carbonsavedkg", "carbonsaved", "co2savedkg", "carbonkg"},
}

func fromFields(raw map[string]any) (Result, bool) {
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		fields[foldKey(k)] = v
	}
	lookup := func(name string) (any, bool) {
		for _, alias := range aliases[name] {
			if v, ok := fields[alias]; ok && v != nil {
				return v, true
			}
		}
		return nil, false
	}

	var r Result
	if v, ok := lookup("item"); ok {
		r.Item = strings.TrimSpace(fmt.Sprint(v))
	}
	if r.Item == "" {
		return Result{}, false
	}
	if v, ok := lookup("material"); ok {
		r.Material = strings.TrimSpace(fmt.Sprint(v))
	}
	if v, ok := lookup("bin"); ok {
		r.Bin = strings.TrimSpace(fmt.Sprint(v))
	}
	if v, ok := lookup("notes"); ok {
		r.Notes = strings.TrimSpace(fmt.Sprint(v))
	}
	if v, ok := lookup("recyclable"); ok {
		r.Recyclable = asBool(v)
	}
	if v, ok := lookup("carbon"); ok {
		r.CarbonSavedKg = asFloat(v)
	}
	return r, true
}

func foldKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y", "1":
			return true
		}
	}
	return false
}

func asFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case string:
		s := strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(x)), "kg"))
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
