package template

import (
	"bytes"
	"fmt"
	"text/template"
)

// ChallengeData contains data for rendering a challenge server block
type ChallengeData struct {
	Domain   string
	Port     string
	Token    string
	Response string
}

// RenderChallenge renders a temporary server block answering one
// http-01 challenge.
func RenderChallenge(data ChallengeData) (string, error) {
	content, err := nginxTemplates.ReadFile("nginx/challenge.tmpl")
	if err != nil {
		return "", fmt.Errorf("challenge template missing: %w", err)
	}

	tmpl, err := template.New("challenge").Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse challenge template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render challenge template: %w", err)
	}
	return buf.String(), nil
}
