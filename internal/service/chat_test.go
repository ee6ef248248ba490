package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ecanov/bienestar-api/internal/apperror"
	"github.com/ecanov/bienestar-api/internal/gemini"
	"github.com/ecanov/bienestar-api/internal/model"
)

// fakeAI scripts the model: each Generate call pops the next reply.
type fakeAI struct {
	replies []*gemini.Content
	errs    []error
	calls   []fakeAICall
}

type fakeAICall struct {
	system   string
	contents []gemini.Content
	tools    []gemini.FunctionDeclaration
}

func (f *fakeAI) Generate(_ context.Context, system string, contents []gemini.Content, tools []gemini.FunctionDeclaration) (*gemini.Content, error) {
	f.calls = append(f.calls, fakeAICall{system: system, contents: contents, tools: tools})
	i := len(f.calls) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return &gemini.Content{Role: "model", Parts: []gemini.Part{{Text: "ok"}}}, nil
}

type fakeScheduler struct {
	created   []string
	createErr error
}

func (f *fakeScheduler) CreateEvent(_ context.Context, _ *model.User, summary, start, end, description string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, summary)
	return "https://calendar.google.com/event?eid=fake", nil
}

func textReply(text string) *gemini.Content {
	return &gemini.Content{Role: "model", Parts: []gemini.Part{{Text: text}}}
}

func toolCallReply(args map[string]any) *gemini.Content {
	return &gemini.Content{Role: "model", Parts: []gemini.Part{{
		FunctionCall: &gemini.FunctionCall{Name: "create_calendar_event", Args: args},
	}}}
}

func linkedUser() *model.User {
	return &model.User{
		ID:                 "user-1",
		Username:           "ana",
		Email:              "ana@example.com",
		GoogleAccessToken:  "access",
		GoogleRefreshToken: "refresh",
	}
}

func TestChatReply(t *testing.T) {
	ai := &fakeAI{replies: []*gemini.Content{textReply("Respira hondo, Ana.")}}
	svc := NewChatService(ai, &fakeScheduler{}, testServiceLogger())

	reply, err := svc.Reply(context.Background(), linkedUser(), "me siento agotada")
	if err != nil {
		t.Fatalf("Reply returned error: %v", err)
	}
	if reply != "Respira hondo, Ana." {
		t.Errorf("reply = %q", reply)
	}
	if len(ai.calls) != 1 {
		t.Fatalf("expected a single model call, got %d", len(ai.calls))
	}
	if !strings.Contains(ai.calls[0].system, "ana") {
		t.Error("system instruction should address the user by name")
	}
	if len(ai.calls[0].tools) != 1 || ai.calls[0].tools[0].Name != "create_calendar_event" {
		t.Error("calendar tool should be declared for a linked user")
	}
}

func TestChatReplyValidation(t *testing.T) {
	svc := NewChatService(&fakeAI{}, nil, testServiceLogger())

	if _, err := svc.Reply(context.Background(), linkedUser(), "   "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty message: expected validation error, got %v", err)
	}
	long := strings.Repeat("a", MaxChatMessageLength+1)
	if _, err := svc.Reply(context.Background(), linkedUser(), long); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("oversize message: expected validation error, got %v", err)
	}
}

func TestChatSimulatedMode(t *testing.T) {
	svc := NewChatService(nil, nil, testServiceLogger())

	reply, err := svc.Reply(context.Background(), linkedUser(), "hola")
	if err != nil {
		t.Fatalf("Reply returned error: %v", err)
	}
	if reply != simulatedReply {
		t.Errorf("expected the fixed simulated reply, got %q", reply)
	}
}

func TestChatToolNotOfferedWithoutTokens(t *testing.T) {
	ai := &fakeAI{replies: []*gemini.Content{textReply("ok")}}
	svc := NewChatService(ai, &fakeScheduler{}, testServiceLogger())
	user := &model.User{ID: "user-2", Username: "bob", Email: "bob@example.com"}

	if _, err := svc.Reply(context.Background(), user, "agenda una pausa"); err != nil {
		t.Fatalf("Reply returned error: %v", err)
	}
	if len(ai.calls[0].tools) != 0 {
		t.Error("calendar tool must not be declared for a user without google tokens")
	}
}

func TestChatCreatesCalendarEvent(t *testing.T) {
	ai := &fakeAI{replies: []*gemini.Content{
		toolCallReply(map[string]any{
			"summary":    "Pausa de respiración",
			"start_time": "2026-09-03T17:00:00Z",
			"end_time":   "2026-09-03T17:15:00Z",
		}),
		textReply("Listo, agendé tu pausa a las 17:00."),
	}}
	scheduler := &fakeScheduler{}
	svc := NewChatService(ai, scheduler, testServiceLogger())

	reply, err := svc.Reply(context.Background(), linkedUser(), "agéndame una pausa mañana a las 5")
	if err != nil {
		t.Fatalf("Reply returned error: %v", err)
	}
	if reply != "Listo, agendé tu pausa a las 17:00." {
		t.Errorf("reply = %q", reply)
	}
	if len(scheduler.created) != 1 || scheduler.created[0] != "Pausa de respiración" {
		t.Errorf("event not created: %v", scheduler.created)
	}

	// The second model call must carry the tool result back.
	if len(ai.calls) != 2 {
		t.Fatalf("expected two model calls, got %d", len(ai.calls))
	}
	last := ai.calls[1].contents[len(ai.calls[1].contents)-1]
	fr := last.Parts[0].FunctionResponse
	if fr == nil || fr.Name != "create_calendar_event" {
		t.Fatalf("last turn is not a function response: %+v", last)
	}
	if fr.Response["status"] != "created" {
		t.Errorf("tool result = %v", fr.Response)
	}
}

func TestChatToolFailureStaysConversational(t *testing.T) {
	ai := &fakeAI{replies: []*gemini.Content{
		toolCallReply(map[string]any{
			"summary":    "Pausa",
			"start_time": "2026-09-03T17:00:00Z",
			"end_time":   "2026-09-03T17:15:00Z",
		}),
		textReply("No pude agendarlo, lo siento."),
	}}
	scheduler := &fakeScheduler{createErr: errors.New("calendar: insert event returned status 403")}
	svc := NewChatService(ai, scheduler, testServiceLogger())

	reply, err := svc.Reply(context.Background(), linkedUser(), "agenda una pausa")
	if err != nil {
		t.Fatalf("a failed tool call must not surface as an error: %v", err)
	}
	if reply != "No pude agendarlo, lo siento." {
		t.Errorf("reply = %q", reply)
	}

	fr := ai.calls[1].contents[len(ai.calls[1].contents)-1].Parts[0].FunctionResponse
	if fr == nil || fr.Response["error"] == nil {
		t.Error("the model should receive the tool failure as an error result")
	}
}

func TestChatQuotaExhaustedDegrades(t *testing.T) {
	ai := &fakeAI{errs: []error{gemini.ErrQuotaExhausted}}
	svc := NewChatService(ai, nil, testServiceLogger())

	reply, err := svc.Reply(context.Background(), linkedUser(), "hola")
	if err != nil {
		t.Fatalf("quota exhaustion must not surface as an error: %v", err)
	}
	if reply != quotaReply {
		t.Errorf("expected the friendly retry message, got %q", reply)
	}
}

func TestChatModelErrorPropagates(t *testing.T) {
	ai := &fakeAI{errs: []error{errors.New("gemini: api error 500")}}
	svc := NewChatService(ai, nil, testServiceLogger())

	if _, err := svc.Reply(context.Background(), linkedUser(), "hola"); err == nil {
		t.Fatal("expected non-quota model errors to propagate")
	}
}
