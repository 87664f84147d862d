package receipt

import (
	"context"
	"fmt"

	"github.com/bububa/smart-shop/agents"
	"github.com/bububa/smart-shop/components"
	"github.com/bububa/smart-shop/components/systemprompt"
	"github.com/bububa/smart-shop/components/systemprompt/cot"
	"github.com/bububa/smart-shop/schema"
)

// Extractor turns a receipt image into a Receipt
type Extractor interface {
	Extract(ctx context.Context, img schema.Image) (*Receipt, error)
}

// ExtractInput is the request sent with the receipt image attached
type ExtractInput struct {
	schema.Base
	Instruction string `json:"instruction" jsonschema:"title=instruction,description=What to extract from the attached image."`
}

// ExtractAgent is the image processor agent
type ExtractAgent = agents.Agent[ExtractInput, Receipt]

const extractInstruction = "Extract every purchased product from the attached grocery receipt."

// DateContextTitle titles the system prompt section holding today's date
const DateContextTitle = "Current date"

// NewExtractAgent returns the image processor agent
func NewExtractAgent(opts ...agents.Option) *ExtractAgent {
	generator := cot.New(
		cot.WithBackground([]string{
			"You are an image processor that reads grocery store receipts.",
			"You turn a photo of a receipt into structured data.",
		}),
		cot.WithSteps([]string{
			"Find the store name and the purchase date.",
			"Read every product line, including its quantity and line price.",
			"Expand abbreviated product names into plain product names when obvious.",
			"Read the subtotal, tax and total.",
		}),
		cot.WithOutputInstructs([]string{
			"Use 1 as quantity when the receipt does not print one.",
			"Skip discounts, coupons, deposits and payment lines.",
			"Write the date as YYYY-MM-DD, leave it empty when unreadable.",
		}),
	)
	opts = append([]agents.Option{
		agents.WithName("image_processor"),
		agents.WithSystemPromptGenerator(generator),
	}, opts...)
	agent := agents.NewAgent[ExtractInput, Receipt](opts...)
	agent.RegisterSystemPromptContextProvider(systemprompt.NewDateProvider(DateContextTitle, ""))
	return agent
}

// AgentExtractor extracts receipts with an ExtractAgent
type AgentExtractor struct {
	agent *ExtractAgent
}

var _ Extractor = (*AgentExtractor)(nil)

// NewAgentExtractor returns an Extractor backed by agent
func NewAgentExtractor(agent *ExtractAgent) *AgentExtractor {
	return &AgentExtractor{agent: agent}
}

// Extract implements Extractor
func (e *AgentExtractor) Extract(ctx context.Context, img schema.Image) (*Receipt, error) {
	in := ExtractInput{Instruction: extractInstruction}
	in.SetAttachement(&schema.Attachement{Images: []schema.Image{img}})
	var (
		out     Receipt
		apiResp components.ApiResponse
	)
	if err := e.agent.Run(ctx, &in, &out, &apiResp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}
	out.Model = apiResp.Model
	out.Usage = apiResp.Usage
	out.Normalize()
	if len(out.Items) == 0 {
		return nil, ErrNoItems
	}
	return &out, nil
}
