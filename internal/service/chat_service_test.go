package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"golivebuddy/internal/backend"
	"golivebuddy/internal/config"
	"golivebuddy/internal/conversation"
	"golivebuddy/internal/domain"
	"golivebuddy/internal/stream"
)

type memStorage struct {
	data map[string]string
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]string)}
}

func (m *memStorage) Get(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStorage) Set(key, value string) error {
	m.data[key] = value
	return nil
}

type fakeTransport struct {
	chunks  []string
	err     error
	lastReq *backend.ChatRequest
}

func (f *fakeTransport) ChatStream(ctx context.Context, req *backend.ChatRequest) (<-chan string, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	out := make(chan string, len(f.chunks))
	for _, c := range f.chunks {
		out <- c
	}
	close(out)
	return out, nil
}

type fakeRecorder struct {
	techID string
	query  string
	calls  int
}

func (f *fakeRecorder) Record(techID, query string) {
	f.techID = techID
	f.query = query
	f.calls++
}

func newTestChat(t *testing.T, transport Transport, recorder QueryRecorder) *ChatService {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	store, err := conversation.NewStore(newMemStorage(), cfg.Storage.SessionKey, zap.NewNop())
	require.NoError(t, err)
	return NewChatService(cfg, store, transport, recorder, zap.NewNop())
}

func drain(events <-chan stream.Event) []stream.Event {
	var out []stream.Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestResolveNamespace(t *testing.T) {
	svc := newTestChat(t, &fakeTransport{}, nil)

	tests := []struct {
		name     string
		explicit string
		query    string
		want     string
	}{
		{"explicit wins", "crm-pack", "how do I reverse an invoice in SAP?", "crm-pack"},
		{"sap keyword", "", "how do I reverse an invoice in SAP?", NamespaceSAP},
		{"fiori keyword", "", "the Fiori launchpad tile is missing", NamespaceSAP},
		{"salesforce keyword", "", "Salesforce keeps logging me out", NamespaceCRM},
		{"opportunity keyword", "", "how do I close an opportunity?", NamespaceCRM},
		{"lead keyword", "", "convert this lead please", NamespaceCRM},
		{"default fallback", "", "how do I print a report?", "sap-pack"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.ResolveNamespace(tt.explicit, tt.query))
		})
	}
}

func TestSubmitTurnEndToEnd(t *testing.T) {
	payload := `[{"text":"Reverse via FB08.","score":0.91,"metadata":{"type":"pdf_document","page_label":"12"}}]`
	transport := &fakeTransport{chunks: []string{
		"You can reverse the invoice",
		" with transaction FB08.",
		"__SOURCES__" + payload + "__END_SOURCES__",
		"__FOCUS__{\"x_pct\":10,\"y_pct\":20,\"w_pct\":30,\"h_pct\":5,\"label\":\"FB08 field\"}__END_FOCUS__",
		"DONE\n",
	}}
	recorder := &fakeRecorder{}
	svc := newTestChat(t, transport, recorder)

	events, err := svc.SubmitTurn(context.Background(), &domain.TurnRequest{
		Message: "How do I reverse an invoice in SAP?",
	})
	require.NoError(t, err)
	got := drain(events)

	var text string
	var sources, focus, done int
	for _, ev := range got {
		switch ev.Type {
		case stream.EventText:
			text += ev.Text
		case stream.EventSources:
			sources++
			require.Len(t, ev.Sources, 1)
		case stream.EventFocus:
			focus++
			assert.Equal(t, "FB08 field", ev.Focus.Label)
		case stream.EventDone:
			done++
		}
	}
	assert.Equal(t, "You can reverse the invoice with transaction FB08.", text)
	assert.Equal(t, 1, sources)
	assert.Equal(t, 1, focus)
	assert.Equal(t, 1, done)

	sess := svc.Store().ActiveSession()
	require.Len(t, sess.Messages, 2)
	answer := sess.Messages[1]
	assert.Equal(t, domain.RoleAssistant, answer.Role)
	assert.Equal(t, "You can reverse the invoice with transaction FB08.", answer.Content)
	require.NotNil(t, answer.Sources)
	require.NotNil(t, answer.FocusCoord)
	assert.False(t, svc.Store().TurnInFlight(sess.ID))

	assert.Equal(t, 1, recorder.calls)
	assert.Equal(t, NamespaceSAP, recorder.techID)

	// the backend saw the user turn but not the placeholder
	require.NotNil(t, transport.lastReq)
	require.Len(t, transport.lastReq.Messages, 1)
	assert.Equal(t, domain.RoleUser, transport.lastReq.Messages[0].Role)
}

func TestSubmitTurnTransportFailure(t *testing.T) {
	transport := &fakeTransport{err: assert.AnError}
	svc := newTestChat(t, transport, nil)

	_, err := svc.SubmitTurn(context.Background(), &domain.TurnRequest{Message: "hello sap"})
	require.Error(t, err)

	sess := svc.Store().ActiveSession()
	require.Len(t, sess.Messages, 2)
	assert.Contains(t, sess.Messages[1].Content, "⚠️")
	assert.False(t, svc.Store().TurnInFlight(sess.ID))
}

func TestSubmitTurnRejectsEmptyMessage(t *testing.T) {
	svc := newTestChat(t, &fakeTransport{}, nil)

	_, err := svc.SubmitTurn(context.Background(), &domain.TurnRequest{Message: "   "})
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestSubmitTurnDecoratesVideoFrames(t *testing.T) {
	payload := `[{"text":"Click the gear icon.","score":0.8,"metadata":{"frame_index":7}}]`
	transport := &fakeTransport{chunks: []string{
		"See the frame.__SOURCES__" + payload + "__END_SOURCES__DONE",
	}}
	svc := newTestChat(t, transport, nil)

	events, err := svc.SubmitTurn(context.Background(), &domain.TurnRequest{
		Message:   "where is the settings gear?",
		Namespace: "sap-pack",
	})
	require.NoError(t, err)

	var nodes []domain.SourceNode
	for _, ev := range drain(events) {
		if ev.Type == stream.EventSources {
			nodes = ev.Sources
		}
	}
	require.Len(t, nodes, 1)
	assert.Equal(t, "http://localhost:8080/frames/sap-pack/7.jpg", nodes[0].Metadata["frame_url"])
}

func TestFrameURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/frames/sap-pack/3.jpg",
		FrameURL("http://localhost:8080/", "sap-pack", 3))
}
