// Package gemini implements [vawk.Model] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, translating between vawk's
// prompt messages and the Gemini content types.
package gemini

const (
	defaultModel     = "gemini-3.1-pro-preview"
	defaultMaxTokens = 65536
)
