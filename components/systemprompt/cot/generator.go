// Package cot renders Chain-of-Thought style system prompts:
// identity, internal steps, output instructions and extra context sections.
package cot

import (
	"strings"

	"github.com/bububa/smart-shop/components/systemprompt"
)

const (
	identityTitle     = "IDENTITY and PURPOSE"
	stepsTitle        = "INTERNAL ASSISTANT STEPS"
	instructionsTitle = "OUTPUT INSTRUCTIONS"
	contextTitle      = "EXTRA INFORMATION AND CONTEXT"
)

var defaultOutputInstructs = []string{
	"- Always respond using the proper JSON schema.",
	"- Always use the available additional information and context to enhance the response.",
}

// Generator is Chain-of-Thought system prompt generator
type Generator struct {
	systemprompt.BaseGenerator
	background      []string
	steps           []string
	outputInstructs []string
}

var _ systemprompt.Generator = (*Generator)(nil)

// New returns a new system prompt Generator
func New(options ...Option) *Generator {
	ret := new(Generator)
	for _, opt := range options {
		opt(ret)
	}
	if len(ret.background) == 0 {
		ret.background = []string{"- This is a conversation with a helpful and friendly AI assistant."}
	}
	ret.outputInstructs = append(ret.outputInstructs, defaultOutputInstructs...)
	return ret
}

func (g *Generator) Generate() string {
	var sb strings.Builder
	writeSection(&sb, "# "+identityTitle, g.background)
	writeSection(&sb, "# "+stepsTitle, g.steps)
	writeSection(&sb, "# "+instructionsTitle, g.outputInstructs)
	if providers := g.ContextProviders(); len(providers) > 0 {
		sb.WriteString("# " + contextTitle + "\n")
		for _, provider := range providers {
			if info := provider.Info(); info != "" {
				writeSection(&sb, "## "+provider.Title(), []string{info})
			}
		}
	}
	return strings.TrimSpace(sb.String())
}

func writeSection(sb *strings.Builder, heading string, lines []string) {
	if len(lines) == 0 {
		return
	}
	sb.WriteString(heading)
	sb.WriteByte('\n')
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
}
