package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"bioassist/models"
	"bioassist/pkg/llm"
	"bioassist/store"
)

const defaultSystemPrompt = "You are a helpful biomedical expert assistant."

// EventKind discriminates stream events.
type EventKind int

const (
	EventToken EventKind = iota
	EventTitle
	EventError
)

// Event is one item of a completion's outbound stream. Token events carry
// Content; Title events carry Title; Error events carry Err.
type Event struct {
	Kind           EventKind
	ConversationID string
	Content        string
	Title          string
	Err            string
}

// Request is one inbound chat turn.
type Request struct {
	Message        string
	ConversationID string // empty = start a new conversation
	ExpertID       string
	Model          string
	Temperature    *float64
}

// AgentSource supplies expert persona configs. *store.AgentStore satisfies it.
type AgentSource interface {
	Get(id string) (*models.Agent, error)
}

// Orchestrator drives one chat turn end to end: resolve conversation, record
// the user message, build context, stream generation (teeing fragments to the
// caller and to an accumulator), persist the assistant message, and generate
// a title on the first turn.
type Orchestrator struct {
	store         *store.ConversationStore
	agents        AgentSource
	engine        *llm.Service
	resolver      *llm.Resolver
	titles        *TitleGenerator
	historyWindow int
}

func NewOrchestrator(cs *store.ConversationStore, agents AgentSource, engine *llm.Service, resolver *llm.Resolver, titles *TitleGenerator, historyWindow int) *Orchestrator {
	if historyWindow <= 0 {
		historyWindow = 10
	}
	return &Orchestrator{
		store:         cs,
		agents:        agents,
		engine:        engine,
		resolver:      resolver,
		titles:        titles,
		historyWindow: historyWindow,
	}
}

// Stream runs the turn. It returns the resolved conversation and an event
// channel; the only error exit is conversation resolution (not found / not
// owned) or failing to record the user message — both happen before any
// streaming promise is made. The channel is closed when the turn is done.
func (o *Orchestrator) Stream(ctx context.Context, userID string, req Request) (*models.Conversation, <-chan Event, error) {
	// RESOLVE_CONVERSATION
	var (
		conv  *models.Conversation
		isNew bool
		err   error
	)
	if req.ConversationID == "" {
		isNew = true
		conv, err = o.store.Create(userID, store.CreateConversation{
			Title:      models.PlaceholderTitle,
			Model:      req.Model,
			ExpertID:   req.ExpertID,
			ExpertName: o.agentName(req.ExpertID),
		})
		if err != nil {
			return nil, nil, err
		}
	} else {
		conv, err = o.store.Get(req.ConversationID, userID)
		if err != nil {
			return nil, nil, err
		}
	}

	// History is captured before the current turn is recorded so the context
	// window is exactly [history] + current message.
	var history []models.Message
	if !isNew {
		history, err = o.store.RecentMessages(conv.ID, userID, o.historyWindow)
		if err != nil {
			log.Printf("[chat] history load failed for %s: %v", conv.ID, err)
			history = nil
		}
	}

	// RECORD_USER_MESSAGE: durable before generation starts.
	if _, err := o.store.AppendMessage(conv.ID, userID, models.RoleUser, req.Message, nil); err != nil {
		return nil, nil, err
	}

	events := make(chan Event)
	go o.run(ctx, events, conv, userID, req, history, isNew)
	return conv, events, nil
}

func (o *Orchestrator) run(ctx context.Context, events chan<- Event, conv *models.Conversation, userID string, req Request, history []models.Message, isNew bool) {
	defer close(events)

	// BUILD_CONTEXT
	systemPrompt := defaultSystemPrompt
	model := req.Model
	if model == "" {
		model = o.resolver.DefaultModel()
	}
	if req.ExpertID != "" {
		agent, err := o.agents.Get(req.ExpertID)
		if err != nil {
			log.Printf("[chat] agent lookup failed for %s: %v", req.ExpertID, err)
		} else if agent != nil {
			systemPrompt = agent.SystemPrompt
			if agent.Model != "" {
				model = agent.Model
			}
		}
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: models.RoleSystem, Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: models.RoleUser, Content: req.Message})

	temperature := 0.7
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	// STREAM_GENERATION: single producer, two consumers — every fragment is
	// forwarded as an event and appended to the accumulator; the provider is
	// invoked exactly once.
	start := time.Now()
	var full strings.Builder
	forward := true
	for fragment := range o.engine.Stream(ctx, llm.StreamRequest{
		Messages:    messages,
		Model:       model,
		Temperature: temperature,
		MaxTokens:   0,
	}) {
		full.WriteString(fragment)
		if forward {
			select {
			case events <- Event{Kind: EventToken, ConversationID: conv.ID, Content: fragment}:
			case <-ctx.Done():
				// consumer is gone; keep accumulating for persistence
				forward = false
			}
		}
	}
	latency := time.Since(start).Seconds()

	// PERSIST_ASSISTANT_MESSAGE: always, even when the text is only an error
	// explanation or the client disconnected mid-stream. A detached context
	// keeps best-effort persistence alive past cancellation.
	text := full.String()
	meta := &models.MessageMetadata{
		Model:       model,
		Temperature: &temperature,
		Latency:     &latency,
	}
	if strings.HasPrefix(text, "Error:") {
		meta.Error = text
	}
	persistCtx := context.WithoutCancel(ctx)
	if _, err := o.store.AppendMessage(conv.ID, userID, models.RoleAssistant, text, meta); err != nil {
		// data-loss risk: the client already received the content
		log.Printf("[chat] FAILED to persist assistant message for %s: %v", conv.ID, err)
	}

	// TITLE_GENERATION: first turn only; failures never fail the turn.
	if isNew && text != "" && ctx.Err() == nil {
		title := o.titles.Generate(persistCtx, req.Message, text, model)
		if _, err := o.store.Update(conv.ID, userID, store.ConversationPatch{Title: &title}); err != nil {
			log.Printf("[chat] title update failed for %s: %v", conv.ID, err)
		} else {
			select {
			case events <- Event{Kind: EventTitle, ConversationID: conv.ID, Title: title}:
			case <-ctx.Done():
			}
		}
	}
}

// Complete is the synchronous wrapper: it drains the event stream internally
// and returns the conversation id with the full assistant text. It is the
// same state machine, consumed differently.
func (o *Orchestrator) Complete(ctx context.Context, userID string, req Request) (string, string, error) {
	conv, events, err := o.Stream(ctx, userID, req)
	if err != nil {
		return "", "", err
	}
	var full strings.Builder
	for ev := range events {
		if ev.Kind == EventToken {
			full.WriteString(ev.Content)
		}
	}
	return conv.ID, full.String(), nil
}

func (o *Orchestrator) agentName(expertID string) string {
	if expertID == "" {
		return ""
	}
	agent, err := o.agents.Get(expertID)
	if err != nil || agent == nil {
		return ""
	}
	return agent.Name
}
