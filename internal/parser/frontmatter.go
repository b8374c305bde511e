package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// formats decodes YAML with yaml.v3 so that unquoted on/off/yes/no stay
// strings, as they do in files written by the creator.
var formats = []*frontmatter.Format{
	frontmatter.NewFormat("---", "---", yaml.Unmarshal),
	frontmatter.NewFormat("---yaml", "---", yaml.Unmarshal),
	frontmatter.NewFormat("+++", "+++", toml.Unmarshal),
	frontmatter.NewFormat("---toml", "---", toml.Unmarshal),
	frontmatter.NewFormat(";;;", ";;;", json.Unmarshal),
	frontmatter.NewFormat("---json", "---", json.Unmarshal),
}

// ParseFrontmatter separates a leading metadata block from the Markdown body.
// YAML (---), TOML (+++) and JSON (;;;) blocks are recognised.
//
// Without a block the whole input is the body and the mapping is empty. A
// block that fails to decode is reported through err, but the returned
// mapping is still empty and the body is still the whole input, so callers
// may ignore err.
func ParseFrontmatter(data []byte) (meta map[string]any, body string, err error) {
	var decoded map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader(data), &decoded, formats...)
	if err != nil {
		return map[string]any{}, string(data), fmt.Errorf("parse frontmatter: %w", err)
	}
	if decoded == nil {
		decoded = map[string]any{}
	}
	return decoded, string(rest), nil
}

// StringSet converts a front-matter value into a sorted, deduplicated list of
// trimmed strings. It accepts a sequence or a comma-separated string; any
// other shape yields nil.
func StringSet(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, item := range t {
			switch s := item.(type) {
			case string:
				raw = append(raw, s)
			case int, int64, float64, bool:
				raw = append(raw, fmt.Sprint(s))
			}
		}
	}
	return normalizeSet(raw)
}

func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}
