package claudecode

import (
	"regexp"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// aliasPrefix is applied to tool names with no entry in the alias table.
const aliasPrefix = "mcp_"

// toolAliases maps client tool names to the upstream names the claude_code
// channel expects. The mapping is bijective.
var toolAliases = [][2]string{
	{"bash", "Bash"},
	{"question", "AskUserQuestion"},
	{"read", "Read"},
	{"write", "Write"},
	{"edit", "Edit"},
	{"glob", "Glob"},
	{"grep", "Grep"},
	{"task", "Task"},
	{"webfetch", "WebFetch"},
	{"todowrite", "TodoWrite"},
	{"skill", "Skill"},
}

// toUpstreamName maps a client tool name to its upstream alias.
func toUpstreamName(name string) string {
	for _, pair := range toolAliases {
		if name == pair[0] {
			return pair[1]
		}
	}
	if len(name) >= len(aliasPrefix) && name[:len(aliasPrefix)] == aliasPrefix {
		return name
	}
	return aliasPrefix + name
}

// toClientName inverts toUpstreamName.
func toClientName(name string) string {
	for _, pair := range toolAliases {
		if name == pair[1] {
			return pair[0]
		}
	}
	if len(name) >= len(aliasPrefix) && name[:len(aliasPrefix)] == aliasPrefix {
		return name[len(aliasPrefix):]
	}
	return name
}

// SpoofToolNames rewrites tool names in an outbound request body: the tools
// array and every tool_use content block in messages.
func SpoofToolNames(body []byte) []byte {
	gjson.GetBytes(body, "tools").ForEach(func(key, tool gjson.Result) bool {
		if name := tool.Get("name"); name.Exists() {
			body, _ = sjson.SetBytes(body, "tools."+key.String()+".name", toUpstreamName(name.String()))
		}
		return true
	})

	gjson.GetBytes(body, "messages").ForEach(func(mk, msg gjson.Result) bool {
		msg.Get("content").ForEach(func(ck, block gjson.Result) bool {
			if block.Get("type").String() != "tool_use" {
				return true
			}
			if name := block.Get("name"); name.Exists() {
				path := "messages." + mk.String() + ".content." + ck.String() + ".name"
				body, _ = sjson.SetBytes(body, path, toUpstreamName(name.String()))
			}
			return true
		})
		return true
	})
	return body
}

// RestoreToolNames rewrites tool names in an inbound unit response body's
// content blocks back to the client names.
func RestoreToolNames(body []byte) []byte {
	gjson.GetBytes(body, "content").ForEach(func(key, block gjson.Result) bool {
		if name := block.Get("name"); name.Exists() {
			body, _ = sjson.SetBytes(body, "content."+key.String()+".name", toClientName(name.String()))
		}
		return true
	})
	return body
}

var (
	aliasRestorePatterns = buildAliasRestorePatterns()
	prefixRestorePattern = regexp.MustCompile(`"name"\s*:\s*"` + aliasPrefix + `([^"]+)"`)
)

type aliasPattern struct {
	re          *regexp.Regexp
	replacement string
}

func buildAliasRestorePatterns() []aliasPattern {
	patterns := make([]aliasPattern, 0, len(toolAliases))
	for _, pair := range toolAliases {
		patterns = append(patterns, aliasPattern{
			re:          regexp.MustCompile(`"name"\s*:\s*"` + regexp.QuoteMeta(pair[1]) + `"`),
			replacement: `"name": "` + pair[0] + `"`,
		})
	}
	return patterns
}

// RestoreToolNamesInText undoes the aliasing on raw SSE text, where events
// are not reassembled into JSON documents.
func RestoreToolNamesInText(text []byte) []byte {
	for _, p := range aliasRestorePatterns {
		text = p.re.ReplaceAll(text, []byte(p.replacement))
	}
	return prefixRestorePattern.ReplaceAll(text, []byte(`"name": "$1"`))
}
