package components

import (
	anthropic "github.com/liushuangls/go-anthropic/v2"
	"github.com/rs/xid"
	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/bububa/smart-shop/schema"
)

// NewTurnID returns a new turn ID.
func NewTurnID() string {
	return xid.New().String()
}

// MessageRole is the role of the message sender (e.g., 'user', 'system', 'assistant')
type MessageRole = string

const (
	SystemRole    MessageRole = "system"
	UserRole      MessageRole = "user"
	AssistantRole MessageRole = "assistant"
)

// Message Represents a message sent to a language model.
type Message struct {
	content schema.Schema
	// role is the role of the message sender
	role MessageRole
	// turnID is Unique identifier for the turn this message belongs to.
	turnID string
}

// NewMessage returns a new Message
func NewMessage(role MessageRole, content schema.Schema) *Message {
	return &Message{
		role:    role,
		content: content,
	}
}

// SetTurnID set message turnID
func (m *Message) SetTurnID(turnID string) *Message {
	m.turnID = turnID
	return m
}

// Role returns message role
func (m Message) Role() MessageRole {
	return m.role
}

// Content returns message content
func (m Message) Content() schema.Schema {
	return m.content
}

// Attachement returns message attachement
func (m Message) Attachement() *schema.Attachement {
	if m.content == nil {
		return nil
	}
	return m.content.Attachement()
}

// TurnID returns message turnID
func (m Message) TurnID() string {
	return m.turnID
}

// Text returns the stringified message content
func (m Message) Text() string {
	if m.content == nil {
		return ""
	}
	return schema.Stringify(m.content)
}

// ToOpenAI convert message to openai ChatCompletionMessage
func (m Message) ToOpenAI(dist *openai.ChatCompletionMessage) {
	dist.Role = m.role
	attachement := m.Attachement()
	if !attachement.HasImages() {
		dist.Content = m.Text()
		return
	}
	dist.MultiContent = make([]openai.ChatMessagePart, 0, len(attachement.Images)+1)
	dist.MultiContent = append(dist.MultiContent, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: m.Text(),
	})
	for _, img := range attachement.Images {
		dist.MultiContent = append(dist.MultiContent, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    img.DataURL(),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}
}

// ToAnthropic convert message to anthropic Message.
// System messages are not part of the anthropic message list, callers pass them as MessagesRequest.System
func (m Message) ToAnthropic(dist *anthropic.Message) {
	if m.role == AssistantRole {
		dist.Role = anthropic.RoleAssistant
	} else {
		dist.Role = anthropic.RoleUser
	}
	attachement := m.Attachement()
	if !attachement.HasImages() {
		dist.Content = []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Text())}
		return
	}
	dist.Content = make([]anthropic.MessageContent, 0, len(attachement.Images)+1)
	for _, img := range attachement.Images {
		dist.Content = append(dist.Content, anthropic.NewImageMessageContent(anthropic.MessageContentSource{
			Type:      "base64",
			MediaType: img.MimeType,
			Data:      img.Base64(),
		}))
	}
	dist.Content = append(dist.Content, anthropic.NewTextMessageContent(m.Text()))
}

// ToGemini convert message to gemini Content
func (m Message) ToGemini() *genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(m.Text())}
	if attachement := m.Attachement(); attachement.HasImages() {
		for _, img := range attachement.Images {
			parts = append(parts, genai.NewPartFromBytes(img.Data, img.MimeType))
		}
	}
	if m.role == AssistantRole {
		return genai.NewContentFromParts(parts, genai.RoleModel)
	}
	return genai.NewContentFromParts(parts, genai.RoleUser)
}
