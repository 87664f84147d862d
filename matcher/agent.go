package matcher

import (
	"context"
	"strings"

	"github.com/bububa/smart-shop/agents"
	"github.com/bububa/smart-shop/components"
	"github.com/bububa/smart-shop/components/systemprompt/cot"
	"github.com/bububa/smart-shop/schema"
)

// MatchInput is the question put to the inventory manager agent
type MatchInput struct {
	schema.Base
	// Item receipt line text
	Item string `json:"item" jsonschema:"title=item,description=The product name as printed on the receipt."`
	// Candidates catalog items as category:key (Display Name)
	Candidates []string `json:"candidates" jsonschema:"title=candidates,description=Tracked inventory items in the format category:key (Display Name)."`
}

// MatchOutput is the inventory manager agent answer
type MatchOutput struct {
	schema.Base
	// Match category:key of the chosen candidate or new_item:custom
	Match string `json:"match" jsonschema:"title=match,description=Exactly one candidate as category:key or new_item:custom when nothing fits."`
}

// MatchAgent is the agent answering MatchInput
type MatchAgent = agents.Agent[MatchInput, MatchOutput]

// NewMatchAgent returns the inventory manager agent
func NewMatchAgent(opts ...agents.Option) *MatchAgent {
	generator := cot.New(
		cot.WithBackground([]string{
			"You are an inventory manager for a household grocery list.",
			"You map product names from store receipts to the items the household tracks.",
		}),
		cot.WithSteps([]string{
			"Read the receipt product name, ignore brand names, sizes and fat percentages.",
			"Compare it with the tracked candidates by meaning, not spelling.",
			"Pick the single candidate that is the same kind of product.",
			"If no candidate is the same kind of product, answer new_item:custom.",
		}),
		cot.WithOutputInstructs([]string{
			"Answer with exactly one candidate in the format category:key, without the display name.",
			"Never invent a category or key that is not in the candidate list.",
		}),
	)
	opts = append([]agents.Option{
		agents.WithName("inventory_manager"),
		agents.WithSystemPromptGenerator(generator),
	}, opts...)
	return agents.NewAgent[MatchInput, MatchOutput](opts...)
}

// AgentOracle asks a MatchAgent
type AgentOracle struct {
	agent *MatchAgent
}

var _ Oracle = (*AgentOracle)(nil)

// NewAgentOracle returns an Oracle backed by agent
func NewAgentOracle(agent *MatchAgent) *AgentOracle {
	return &AgentOracle{agent: agent}
}

// Ask implements Oracle
func (o *AgentOracle) Ask(ctx context.Context, name string, candidates []Candidate) (string, error) {
	in := MatchInput{
		Item:       name,
		Candidates: make([]string, 0, len(candidates)),
	}
	for _, c := range candidates {
		in.Candidates = append(in.Candidates, c.String())
	}
	var (
		out     MatchOutput
		apiResp components.ApiResponse
	)
	if err := o.agent.Run(ctx, &in, &out, &apiResp); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Match), nil
}
