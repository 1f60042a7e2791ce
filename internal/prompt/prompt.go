// Package prompt loads and validates the two prompt templates the pipeline
// needs: the grounding prompt given to a domain agent's generation call and
// the routing policy given to the router as system context.
package prompt

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
)

// Default template locations, relative to the working directory.
const (
	DefaultGroundingPath = "prompts/agent_prompt.tmpl"
	DefaultRoutingPath   = "prompts/router_prompt.tmpl"
)

// querySlot is the literal line the routing policy file carries so prompt
// authors can see where the query lands. The router supplies the query as
// its own user turn, so the slot is stripped at load time.
const querySlot = "User query: {{.Query}}"

// DefaultGroundingTemplate backs the pipeline when no template file is
// configured, and anchors tests.
const DefaultGroundingTemplate = `You are the {{.AgentType}} support agent. Answer the question using only the context below. If the context does not contain the answer, say you do not know.

Context:
{{.Context}}

Question: {{.Question}}`

// GroundingData is the substitution payload for the grounding template.
type GroundingData struct {
	// Context is the retrieved passage text, concatenated in rank order
	// with blank lines between passages.
	Context string
	// Question is the user's literal query.
	Question string
	// AgentType names the answering domain for light persona steering.
	AgentType string
}

// ParseGrounding compiles a grounding template and verifies that it
// references both required placeholders. A template missing the context or
// question slot would silently produce ungrounded prompts.
func ParseGrounding(text string) (*template.Template, error) {
	tmpl, err := template.New("grounding").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse grounding template: %w", err)
	}

	probe := GroundingData{
		Context:   "\x00context\x00",
		Question:  "\x00question\x00",
		AgentType: "probe",
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, probe); err != nil {
		return nil, fmt.Errorf("grounding template failed a probe execution: %w", err)
	}
	rendered := buf.String()
	if !strings.Contains(rendered, probe.Context) {
		return nil, fmt.Errorf("grounding template is missing the {{.Context}} placeholder")
	}
	if !strings.Contains(rendered, probe.Question) {
		return nil, fmt.Errorf("grounding template is missing the {{.Question}} placeholder")
	}

	return tmpl, nil
}

// LoadGrounding reads and compiles the grounding template at path.
// An empty path selects the built-in default template.
func LoadGrounding(path string) (*template.Template, error) {
	if path == "" {
		return ParseGrounding(DefaultGroundingTemplate)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grounding template %s: %w", path, err)
	}
	return ParseGrounding(string(data))
}

// StripQuerySlot removes the literal query slot line from a routing policy
// and trims surrounding whitespace.
func StripQuerySlot(policy string) string {
	return strings.TrimSpace(strings.ReplaceAll(policy, querySlot, ""))
}

// LoadRoutingPolicy reads the routing policy at path, strips the query slot,
// and returns the remaining system instruction. The policy must be
// non-empty after stripping. An empty path selects the default location.
func LoadRoutingPolicy(path string) (string, error) {
	if path == "" {
		path = DefaultRoutingPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read routing policy %s: %w", path, err)
	}

	policy := StripQuerySlot(string(data))
	if policy == "" {
		return "", fmt.Errorf("routing policy %s is empty after stripping the query slot", path)
	}
	return policy, nil
}
