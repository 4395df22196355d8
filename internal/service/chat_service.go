package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"golivebuddy/internal/backend"
	"golivebuddy/internal/config"
	"golivebuddy/internal/conversation"
	"golivebuddy/internal/domain"
	"golivebuddy/internal/stream"
)

// Known tech pack namespaces
const (
	NamespaceSAP = "sap-pack"
	NamespaceCRM = "crm-pack"
)

// Transport opens streaming chat calls against the retrieval/LLM backend
type Transport interface {
	ChatStream(ctx context.Context, req *backend.ChatRequest) (<-chan string, error)
}

// QueryRecorder logs user queries for the analytics surface
type QueryRecorder interface {
	Record(techID, query string)
}

// ChatService drives one chat turn end to end: conversation store mutation,
// backend streaming, segmentation, and event relay.
type ChatService struct {
	cfg       *config.Config
	store     *conversation.Store
	transport Transport
	recorder  QueryRecorder
	logger    *zap.Logger
}

// NewChatService creates a new chat service
func NewChatService(
	cfg *config.Config,
	store *conversation.Store,
	transport Transport,
	recorder QueryRecorder,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		cfg:       cfg,
		store:     store,
		transport: transport,
		recorder:  recorder,
		logger:    logger,
	}
}

// Store returns the conversation store for session-level operations
func (s *ChatService) Store() *conversation.Store {
	return s.store
}

// SubmitTurn appends the user turn to the active session, opens the
// backend stream and returns a channel of typed events. Every event is
// applied to the placeholder assistant message, keyed by the message id
// captured here, before it is relayed.
func (s *ChatService) SubmitTurn(ctx context.Context, req *domain.TurnRequest) (<-chan stream.Event, error) {
	namespace := s.ResolveNamespace(req.Namespace, req.Message)

	placeholder, err := s.store.BeginTurn(req.Message, req.Image)
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.Record(namespace, req.Message)
	}

	chunks, err := s.transport.ChatStream(ctx, &backend.ChatRequest{
		Messages:  s.history(placeholder.ID),
		Namespace: namespace,
		Image:     req.Image,
	})
	if err != nil {
		s.store.FailTurn(placeholder.ID, "⚠️ "+err.Error())
		return nil, err
	}

	out := make(chan stream.Event, 16)
	go func() {
		defer close(out)
		seg := stream.NewSegmenter()

		apply := func(events []stream.Event) {
			for _, ev := range events {
				if ev.Type == stream.EventSources {
					s.decorateFrames(namespace, ev.Sources)
				}
				s.store.ApplyEvent(placeholder.ID, ev)
				select {
				case out <- ev:
				case <-ctx.Done():
					// receiver gone; keep applying so the session
					// still ends up with the full answer
				}
			}
		}

		for chunk := range chunks {
			apply(seg.Feed(chunk))
		}
		apply(seg.Flush())
		s.store.FinishTurn(placeholder.ID)
	}()
	return out, nil
}

// ResolveNamespace picks the tech pack for a turn: an explicit request
// value wins, then keyword routing over the query, then the configured
// default.
func (s *ChatService) ResolveNamespace(explicit, query string) string {
	if explicit != "" {
		return explicit
	}
	q := strings.ToLower(query)
	for _, kw := range []string{"sap", "fiori", "launchpad"} {
		if strings.Contains(q, kw) {
			return NamespaceSAP
		}
	}
	for _, kw := range []string{"salesforce", "crm", "opportunity", "lead"} {
		if strings.Contains(q, kw) {
			return NamespaceCRM
		}
	}
	return s.cfg.Backend.DefaultNamespace
}

// history returns the active session's messages up to, and excluding, the
// streaming placeholder.
func (s *ChatService) history(placeholderID string) []*domain.Message {
	sess := s.store.ActiveSession()
	if sess == nil {
		return nil
	}
	out := make([]*domain.Message, 0, len(sess.Messages))
	for _, msg := range sess.Messages {
		if msg.ID == placeholderID {
			break
		}
		out = append(out, msg)
	}
	return out
}

// decorateFrames attaches a servable thumbnail URL to video-frame sources
func (s *ChatService) decorateFrames(namespace string, nodes []domain.SourceNode) {
	for _, n := range nodes {
		if n.Type() != domain.SourceTypeVideoFrame {
			continue
		}
		idx, ok := n.FrameIndex()
		if !ok || idx < 0 {
			continue
		}
		if n.Metadata == nil {
			continue
		}
		n.Metadata["frame_url"] = FrameURL(s.cfg.Server.BaseURL, namespace, idx)
	}
}

// FrameURL returns the static thumbnail location for an extracted video
// frame: frames/{namespace}/{index}.jpg under the serving base URL.
func FrameURL(baseURL, namespace string, index int) string {
	return fmt.Sprintf("%s/frames/%s/%d.jpg", strings.TrimRight(baseURL, "/"), namespace, index)
}
