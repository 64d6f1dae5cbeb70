package util

import (
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)```(?:json)?(.*?)```")

// ExtractJsonFromText pulls the JSON payload out of an LLM reply: a
// fenced code block if present, otherwise the outermost braces or
// brackets. Returns the text unchanged when neither is found.
func ExtractJsonFromText(text string) string {
	if matches := codeBlockRe.FindStringSubmatch(text); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "}]")
	if start != -1 && end > start {
		return text[start : end+1]
	}
	return text
}
