package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ecanov/bienestar-api/internal/apperror"
	"github.com/ecanov/bienestar-api/internal/gemini"
	"github.com/ecanov/bienestar-api/internal/model"
)

// MaxChatMessageLength bounds a single chat message.
const MaxChatMessageLength = 4000

const quotaReply = "Estoy recibiendo muchas consultas en este momento. " +
	"Dame un minuto y vuelve a intentarlo, por favor."

const simulatedReply = "Hola, soy tu asistente de bienestar. " +
	"Ahora mismo funciono en modo de demostración, pero puedo escucharte: " +
	"¿cómo te sientes hoy?"

// EventScheduler creates calendar events for a user. Satisfied by
// calendar.Client.
type EventScheduler interface {
	CreateEvent(ctx context.Context, user *model.User, summary, start, end, description string) (string, error)
}

// AIClient is the slice of gemini.Client the chat flow uses.
type AIClient interface {
	Generate(ctx context.Context, systemInstruction string, contents []gemini.Content, tools []gemini.FunctionDeclaration) (*gemini.Content, error)
}

// ChatService runs the wellbeing assistant conversation. A nil AI client
// puts the service in simulated mode, where every message gets a fixed
// reply instead of a model call.
type ChatService struct {
	ai       AIClient
	schedule EventScheduler
	logger   *slog.Logger
	now      func() time.Time
}

func NewChatService(ai AIClient, schedule EventScheduler, logger *slog.Logger) *ChatService {
	return &ChatService{
		ai:       ai,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Reply answers one user message. When the model asks to create a
// calendar event and the user has linked Google credentials, the event
// is created and the model produces a confirmation from the result.
// Quota exhaustion degrades to a friendly retry message rather than an
// error.
func (s *ChatService) Reply(ctx context.Context, user *model.User, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperror.ValidationFailed("message", "message must not be empty")
	}
	if len(message) > MaxChatMessageLength {
		return "", apperror.ValidationFailed("message", fmt.Sprintf("message must be at most %d characters", MaxChatMessageLength))
	}

	if s.ai == nil {
		return simulatedReply, nil
	}

	contents := []gemini.Content{
		{Role: "user", Parts: []gemini.Part{{Text: message}}},
	}

	reply, err := s.ai.Generate(ctx, s.systemInstruction(user), contents, s.tools(user))
	if err != nil {
		if errors.Is(err, gemini.ErrQuotaExhausted) {
			return quotaReply, nil
		}
		return "", fmt.Errorf("generating chat reply: %w", err)
	}

	call := reply.FirstFunctionCall()
	if call == nil {
		return reply.Text(), nil
	}

	result := s.runTool(ctx, user, call)

	// Hand the tool result back so the model phrases the confirmation.
	contents = append(contents,
		*reply,
		gemini.Content{
			Role: "user",
			Parts: []gemini.Part{{
				FunctionResponse: &gemini.FunctionResponse{Name: call.Name, Response: result},
			}},
		},
	)

	followUp, err := s.ai.Generate(ctx, s.systemInstruction(user), contents, s.tools(user))
	if err != nil {
		if errors.Is(err, gemini.ErrQuotaExhausted) {
			return quotaReply, nil
		}
		return "", fmt.Errorf("generating tool follow-up: %w", err)
	}

	return followUp.Text(), nil
}

// runTool executes a model-requested function call. Failures are fed
// back to the model as tool errors so the assistant can apologize in
// its own words instead of surfacing a server error.
func (s *ChatService) runTool(ctx context.Context, user *model.User, call *gemini.FunctionCall) map[string]any {
	if call.Name != "create_calendar_event" {
		return map[string]any{"error": fmt.Sprintf("unknown tool %q", call.Name)}
	}
	if s.schedule == nil || !user.HasGoogleTokens() {
		return map[string]any{"error": "the user has not connected their Google Calendar"}
	}

	summary, _ := call.Args["summary"].(string)
	start, _ := call.Args["start_time"].(string)
	end, _ := call.Args["end_time"].(string)
	description, _ := call.Args["description"].(string)
	if summary == "" || start == "" || end == "" {
		return map[string]any{"error": "summary, start_time and end_time are required"}
	}

	link, err := s.schedule.CreateEvent(ctx, user, summary, start, end, description)
	if err != nil {
		s.logger.Error("calendar tool call failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return map[string]any{"error": "the event could not be created"}
	}

	return map[string]any{"status": "created", "link": link}
}

func (s *ChatService) systemInstruction(user *model.User) string {
	name := displayName(user)
	calendarNote := "El usuario no ha conectado su Google Calendar, así que no puedes agendar eventos por él."
	if user.HasGoogleTokens() {
		calendarNote = "El usuario ha conectado su Google Calendar: puedes agendar pausas y recordatorios con la herramienta create_calendar_event."
	}

	return fmt.Sprintf(
		"Eres un asistente de bienestar emocional para docentes. Hablas con %s. "+
			"Escuchas con empatía, sugieres pausas activas, ejercicios de respiración y hábitos saludables, "+
			"y nunca das diagnósticos médicos; ante señales de crisis recomiendas buscar ayuda profesional. "+
			"Hoy es %s. %s "+
			"Responde siempre en el idioma del usuario, con calidez y en mensajes breves.",
		name, s.now().Format("2006-01-02"), calendarNote,
	)
}

// tools declares the calendar tool only for users who can actually use
// it, so the model never offers scheduling it cannot deliver.
func (s *ChatService) tools(user *model.User) []gemini.FunctionDeclaration {
	if s.schedule == nil || !user.HasGoogleTokens() {
		return nil
	}
	return []gemini.FunctionDeclaration{{
		Name:        "create_calendar_event",
		Description: "Crea un evento en el Google Calendar del usuario, por ejemplo una pausa de bienestar o un recordatorio.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"summary": map[string]any{
					"type":        "string",
					"description": "Título corto del evento",
				},
				"start_time": map[string]any{
					"type":        "string",
					"description": "Inicio en formato RFC 3339, por ejemplo 2026-09-03T17:00:00Z",
				},
				"end_time": map[string]any{
					"type":        "string",
					"description": "Fin en formato RFC 3339",
				},
				"description": map[string]any{
					"type":        "string",
					"description": "Detalle opcional del evento",
				},
			},
			"required": []string{"summary", "start_time", "end_time"},
		},
	}}
}
