// Package generator wraps the generative backends: deriving categories from a
// user profile and synthesizing a prose answer from candidate thoughts.
//
// Backends are Anthropic (Messages API), Ollama (/api/generate) and an offline
// local provider that matches the profile against a keyword catalog and answers
// extractively. Remote failures wrap types.ErrGenerationUnavailable and are
// never retried.
package generator
