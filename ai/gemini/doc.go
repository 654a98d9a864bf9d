// Package gemini implements ai.Model on the Google Gemini API using the
// google.golang.org/genai client.
package gemini
