// Package transform rewrites request bodies on their way upstream: header
// passthrough, beta-flag merging, system-prompt injection, and the stream
// flag. Bodies are raw JSON bytes worked on with gjson/sjson.
package transform

import (
	"net/http"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// passthroughHeaders is the allow-list of client headers forwarded upstream.
var passthroughHeaders = []string{"anthropic-beta"}

// passthroughKey is the temporary body field carrying forwarded headers. It
// is stripped by Finalize before the body leaves the process.
const passthroughKey = "_passthrough_headers"

// betaFlagsBase is the set of beta flags the claude_code channel always
// sends; the upstream rejects requests without them.
var betaFlagsBase = []string{
	"claude-code-20250219",
	"fine-grained-tool-streaming-2025-05-14",
	"interleaved-thinking-2025-05-14",
	"oauth-2025-04-20",
}

const (
	claudeCodeIdentity = "You are Claude Code"
	claudeCodePrompt   = `{"cache_control":{"type":"ephemeral"},"text":"You are Claude Code, Anthropic's official CLI for Claude.","type":"text"}`
)

// AttachPassthrough copies allow-listed headers of the incoming request into
// the body's passthrough field.
func AttachPassthrough(body []byte, h http.Header) []byte {
	for _, name := range passthroughHeaders {
		if value := h.Get(name); value != "" {
			body, _ = sjson.SetBytes(body, passthroughKey+"."+name, value)
		}
	}
	return body
}

// BetaHeader computes the outbound anthropic-beta value: the sorted,
// deduplicated union of the base flags and any client-passed flags.
func BetaHeader(body []byte) string {
	set := make(map[string]struct{}, len(betaFlagsBase))
	for _, flag := range betaFlagsBase {
		set[flag] = struct{}{}
	}
	passed := gjson.GetBytes(body, passthroughKey+".anthropic-beta").String()
	for _, flag := range strings.Split(passed, ",") {
		if flag = strings.TrimSpace(flag); flag != "" {
			set[flag] = struct{}{}
		}
	}

	flags := make([]string, 0, len(set))
	for flag := range set {
		flags = append(flags, flag)
	}
	sort.Strings(flags)
	return strings.Join(flags, ",")
}

// Finalize strips the passthrough field and pins the stream flag to the
// dispatch path actually taken. Must run last, after header construction.
func Finalize(body []byte, stream bool) []byte {
	body, _ = sjson.DeleteBytes(body, passthroughKey)
	body, _ = sjson.SetBytes(body, "stream", stream)
	return body
}

// InjectClaudeCodePrompt prepends the Claude Code identity block to the
// system array unless its first element already carries it. Bodies without a
// system array pass through untouched.
func InjectClaudeCodePrompt(body []byte) []byte {
	system := gjson.GetBytes(body, "system")
	if !system.Exists() || !system.IsArray() {
		return body
	}

	first := system.Get("0.text")
	if first.Exists() && strings.Contains(first.String(), claudeCodeIdentity) {
		return body
	}

	raw := strings.TrimSpace(system.Raw)
	var merged string
	if inner := strings.TrimSpace(raw[1 : len(raw)-1]); inner == "" {
		merged = "[" + claudeCodePrompt + "]"
	} else {
		merged = "[" + claudeCodePrompt + "," + inner + "]"
	}
	body, _ = sjson.SetRawBytes(body, "system", []byte(merged))
	return body
}

// Model returns the request's model field, or "unknown".
func Model(body []byte) string {
	if model := gjson.GetBytes(body, "model").String(); model != "" {
		return model
	}
	return "unknown"
}

// IsStreaming returns the client-provided stream flag.
func IsStreaming(body []byte) bool {
	return gjson.GetBytes(body, "stream").Bool()
}
