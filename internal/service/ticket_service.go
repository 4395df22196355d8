package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"golivebuddy/internal/conversation"
	"golivebuddy/internal/domain"
)

const subjectLimit = 80

// TicketSubmitter sends finished drafts to the backend ticketing integration
type TicketSubmitter interface {
	SubmitTicket(ctx context.Context, draft *domain.TicketDraft) error
}

// TicketService derives support ticket drafts from conversation turns
type TicketService struct {
	store     *conversation.Store
	submitter TicketSubmitter
	resolve   func(explicit, query string) string
	logger    *zap.Logger
}

// NewTicketService creates a new ticket service
func NewTicketService(
	store *conversation.Store,
	submitter TicketSubmitter,
	resolve func(explicit, query string) string,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		store:     store,
		submitter: submitter,
		resolve:   resolve,
		logger:    logger,
	}
}

// Draft builds a ticket draft from an assistant message and the user turn
// that preceded it.
func (s *TicketService) Draft(messageID string) (*domain.TicketDraft, error) {
	sess, msg, ok := s.store.FindMessage(messageID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if msg.Role != domain.RoleAssistant {
		return nil, fmt.Errorf("tickets are drafted from assistant messages: %w", domain.ErrInvalidRequest)
	}

	userText := precedingUserText(sess, msg)

	draft := &domain.TicketDraft{
		Subject:     deriveSubject(userText),
		Description: deriveDescription(userText, msg.Content),
		Priority:    domain.TicketPriorityMedium,
		System:      ticketSystem(msg),
		Namespace:   s.resolve("", userText),
	}
	return draft, nil
}

// Submit sends a draft to the backend
func (s *TicketService) Submit(ctx context.Context, draft *domain.TicketDraft) error {
	if strings.TrimSpace(draft.Subject) == "" {
		return fmt.Errorf("ticket subject is required: %w", domain.ErrInvalidRequest)
	}
	if draft.Priority == "" {
		draft.Priority = domain.TicketPriorityMedium
	}
	if err := s.submitter.SubmitTicket(ctx, draft); err != nil {
		return err
	}
	s.logger.Info("ticket submitted",
		zap.String("subject", draft.Subject),
		zap.String("namespace", draft.Namespace),
	)
	return nil
}

func precedingUserText(sess *domain.ChatSession, msg *domain.Message) string {
	var text string
	for _, m := range sess.Messages {
		if m.ID == msg.ID {
			break
		}
		if m.Role == domain.RoleUser {
			text = m.Content
		}
	}
	return text
}

func deriveSubject(userText string) string {
	trimmed := strings.TrimSpace(userText)
	if trimmed == "" {
		return "Support follow-up"
	}
	runes := []rune(trimmed)
	if len(runes) > subjectLimit {
		trimmed = string(runes[:subjectLimit]) + "..."
	}
	return trimmed
}

func deriveDescription(userText, answer string) string {
	var b strings.Builder
	if userText != "" {
		b.WriteString("User question:\n")
		b.WriteString(userText)
		b.WriteString("\n\n")
	}
	b.WriteString("Assistant answer:\n")
	b.WriteString(answer)
	return b.String()
}

// ticketSystem reads the originating system from a jira source when the
// answer cited one
func ticketSystem(msg *domain.Message) string {
	if msg.Sources == nil {
		return ""
	}
	for _, n := range *msg.Sources {
		if n.Type() == domain.SourceTypeJira {
			if sys := n.System(); sys != "" {
				return sys
			}
		}
	}
	return ""
}
