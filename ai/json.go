package ai

import (
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")

// ExtractFencedJSON returns the body of the first ```json fenced block in
// content and whether one was found.
func ExtractFencedJSON(content string) (string, bool) {
	m := fencedJSON.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ExtractJSONObject pulls the outermost JSON object out of a model response.
// Markdown code fences are stripped and unquoted keys repaired.
// Returns ErrNoJSON if content holds no '{' ... '}' span.
func ExtractJSONObject(content string) (string, error) {
	text := strings.TrimSpace(content)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", ErrNoJSON
	}
	return repairJSON(text[start : end+1]), nil
}

// repairJSON fixes keys that lost their opening quote, a common failure of
// small local models. Example: `, type":` -> `, "type":`
func repairJSON(s string) string {
	result := []rune(s)
	fixed := make([]rune, 0, len(result)+16)

	i := 0
	for i < len(result) {
		ch := result[i]
		if ch != '{' && ch != ',' {
			fixed = append(fixed, ch)
			i++
			continue
		}

		fixed = append(fixed, ch)
		i++
		for i < len(result) && (result[i] == ' ' || result[i] == '\n' || result[i] == '\t' || result[i] == '\r') {
			fixed = append(fixed, result[i])
			i++
		}

		if i < len(result) && isLetter(result[i]) {
			keyStart := i
			for i < len(result) && (isLetter(result[i]) || result[i] == '_') {
				i++
			}
			if i+1 < len(result) && result[i] == '"' && result[i+1] == ':' {
				fixed = append(fixed, '"')
			}
			fixed = append(fixed, result[keyStart:i]...)
		}
	}

	return string(fixed)
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
