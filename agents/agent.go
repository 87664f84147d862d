package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bububa/instructor-go/pkg/instructor"
	cohere "github.com/cohere-ai/cohere-go/v2"
	anthropic "github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/bububa/smart-shop/components"
	"github.com/bububa/smart-shop/components/systemprompt"
	"github.com/bububa/smart-shop/components/systemprompt/cot"
	"github.com/bububa/smart-shop/schema"
)

// ErrNoClient is returned by Run when the agent has no language model client
var ErrNoClient = errors.New("agent has no llm client")

// Config represents general agents configuration
type Config struct {
	// client Client for interacting with the language model
	client instructor.Instructor
	// gemini client, used instead of client when set
	gemini *genai.Client
	//	systemPromptGenerator Component for generating system prompts.
	systemPromptGenerator systemprompt.Generator
	// model llm model
	model string
	// temperature Temperature for response generation, typically ranging from 0 to 1.
	temperature float32
	// maxTokens Maximum number of tokens allowed in the response
	maxTokens int
	// timeout bounds a single Run, zero means no deadline besides ctx
	timeout time.Duration
	// name is Agent name presentation
	name string
	// tokenCounter estimates prompt size for debug logs
	tokenCounter components.TokenCounter
	logger       *zap.Logger
}

// Agent runs one structured request against a language model.
// Every Run is independent: the prompt is built from the system prompt and the given input only,
// so a single Agent can serve concurrent requests.
type Agent[I schema.Schema, O schema.Schema] struct {
	Config
	startHook func(context.Context, *Agent[I, O], *I)
	endHook   func(context.Context, *Agent[I, O], *I, *O, *components.ApiResponse)
	errorHook func(context.Context, *Agent[I, O], *I, *components.ApiResponse, error)
}

// NewAgent initializes the Agent
func NewAgent[I schema.Schema, O schema.Schema](options ...Option) *Agent[I, O] {
	ret := new(Agent[I, O])
	for _, opt := range options {
		opt(&ret.Config)
	}
	if ret.systemPromptGenerator == nil {
		ret.systemPromptGenerator = cot.New()
	}
	if ret.tokenCounter == nil {
		ret.tokenCounter = components.WordCounter{}
	}
	if ret.logger == nil {
		ret.logger = zap.NewNop()
	}
	return ret
}

func (a Agent[I, O]) Model() string {
	return a.model
}

func (a Agent[I, O]) Name() string {
	return a.name
}

func (a *Agent[I, O]) SetStartHook(fn func(context.Context, *Agent[I, O], *I)) {
	a.startHook = fn
}

func (a *Agent[I, O]) SetEndHook(fn func(context.Context, *Agent[I, O], *I, *O, *components.ApiResponse)) {
	a.endHook = fn
}

func (a *Agent[I, O]) SetErrorHook(fn func(context.Context, *Agent[I, O], *I, *components.ApiResponse, error)) {
	a.errorHook = fn
}

// response obtains a response from the language model synchronously
func (a *Agent[I, O]) response(ctx context.Context, userInput *I, response *O, apiResponse *components.ApiResponse) error {
	systemPrompt := a.systemPromptGenerator.Generate()
	var msg *components.Message
	if userInput != nil {
		msg = components.NewMessage(components.UserRole, *userInput).SetTurnID(components.NewTurnID())
	} else {
		msg = components.NewMessage(components.UserRole, schema.String(""))
	}
	a.logger.Debug("agent request",
		zap.String("agent", a.name),
		zap.String("model", a.model),
		zap.String("turn", msg.TurnID()),
		zap.Int("prompt_tokens", a.tokenCounter.Count(systemPrompt)+a.tokenCounter.Count(msg.Text())),
	)
	if a.gemini != nil {
		return a.geminiResponse(ctx, systemPrompt, msg, response, apiResponse)
	}
	switch clt := a.client.(type) {
	case *instructor.InstructorOpenAI:
		chatReq := openai.ChatCompletionRequest{
			Model:               a.model,
			Temperature:         a.temperature,
			MaxCompletionTokens: a.maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: components.SystemRole, Content: systemPrompt},
			},
		}
		v := new(openai.ChatCompletionMessage)
		msg.ToOpenAI(v)
		chatReq.Messages = append(chatReq.Messages, *v)
		res, err := clt.CreateChatCompletion(ctx, chatReq, response)
		if err != nil {
			return err
		}
		if apiResponse != nil {
			apiResponse.FromOpenAI(&res)
		}
	case *instructor.InstructorAnthropic:
		chatReq := anthropic.MessagesRequest{
			Model:       anthropic.Model(a.model),
			System:      systemPrompt,
			Temperature: &a.temperature,
			MaxTokens:   a.maxTokens,
		}
		v := new(anthropic.Message)
		msg.ToAnthropic(v)
		chatReq.Messages = append(chatReq.Messages, *v)
		res, err := clt.CreateMessages(ctx, chatReq, response)
		if err != nil {
			return err
		}
		if apiResponse != nil {
			apiResponse.FromAnthropic(&res)
		}
	case *instructor.InstructorCohere:
		if msg.Attachement().HasImages() {
			return errors.New("cohere does not accept image attachements")
		}
		temperature := float64(a.temperature)
		chatReq := cohere.ChatRequest{
			Model:       &a.model,
			Preamble:    &systemPrompt,
			Temperature: &temperature,
			MaxTokens:   &a.maxTokens,
			Message:     msg.Text(),
		}
		res, err := clt.Chat(ctx, &chatReq, response)
		if err != nil {
			return err
		}
		if apiResponse != nil {
			apiResponse.FromCohere(res)
		}
	default:
		return ErrNoClient
	}
	return nil
}

func (a *Agent[I, O]) geminiResponse(ctx context.Context, systemPrompt string, msg *components.Message, response *O, apiResponse *components.ApiResponse) error {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(a.temperature),
		ResponseMIMEType:  "application/json",
	}
	if a.maxTokens > 0 {
		cfg.MaxOutputTokens = int32(a.maxTokens)
	}
	res, err := a.gemini.Models.GenerateContent(ctx, a.model, []*genai.Content{msg.ToGemini()}, cfg)
	if err != nil {
		return err
	}
	if apiResponse != nil {
		apiResponse.FromGemini(a.model, res)
	}
	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil {
		return errors.New("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range res.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	raw := StripCodeFence(sb.String())
	if err := json.Unmarshal([]byte(raw), response); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

// Run runs the agent with the given user input synchronously.
func (a *Agent[I, O]) Run(ctx context.Context, userInput *I, output *O, apiResp *components.ApiResponse) error {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if fn := a.startHook; fn != nil {
		fn(ctx, a, userInput)
	}
	if err := a.response(ctx, userInput, output, apiResp); err != nil {
		if fn := a.errorHook; fn != nil {
			fn(ctx, a, userInput, apiResp, err)
		}
		return err
	}
	if fn := a.endHook; fn != nil {
		fn(ctx, a, userInput, output, apiResp)
	}
	return nil
}

// SystemPromptContextProvider returns agent systemPromptGenerator's context provider
func (a *Agent[I, O]) SystemPromptContextProvider(title string) (systemprompt.ContextProvider, error) {
	return a.systemPromptGenerator.ContextProvider(title)
}

// RegisterSystemPromptContextProvider registers a new context provider
func (a *Agent[I, O]) RegisterSystemPromptContextProvider(provider systemprompt.ContextProvider) {
	a.systemPromptGenerator.AddContextProviders(provider)
}

// SystemPrompt returns the system prompt
func (a *Agent[I, O]) SystemPrompt() string {
	return a.systemPromptGenerator.Generate()
}

// StripCodeFence removes ```json ... ``` wrappers models tend to add around answers.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
