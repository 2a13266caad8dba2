package messaging

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medinow/scheduling-assistant/pkg/logging"
)

var webhookTracer = otel.Tracer("assistant.internal.messaging.webhook")

// DialogEngine is the conversational collaborator behind the webhook.
type DialogEngine interface {
	HandleMessage(ctx context.Context, sessionID, text string) ([]string, error)
}

// Handler receives Twilio WhatsApp webhooks and answers with TwiML, so the
// replies ride the webhook response instead of a second API round trip.
type Handler struct {
	engine DialogEngine
	logger *logging.Logger
}

// NewHandler creates the webhook handler.
func NewHandler(engine DialogEngine, logger *logging.Logger) *Handler {
	if engine == nil {
		panic("messaging: dialog engine cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{engine: engine, logger: logger}
}

// twimlResponse is the Twilio messaging response envelope.
type twimlResponse struct {
	XMLName  xml.Name `xml:"Response"`
	Messages []string `xml:"Message"`
}

// WhatsAppWebhook handles POST /messaging/whatsapp/webhook requests.
func (h *Handler) WhatsAppWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := webhookTracer.Start(r.Context(), "messaging.whatsapp.webhook")
	defer span.End()

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse whatsapp webhook", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}

	from := strings.TrimSpace(r.PostFormValue("From"))
	body := strings.TrimSpace(r.PostFormValue("Body"))
	span.SetAttributes(attribute.String("assistant.from", from))

	if from == "" || body == "" {
		err := errors.New("missing required twilio fields")
		h.logger.Error("invalid whatsapp payload", "error", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}

	// The WhatsApp address doubles as the session identifier.
	replies, err := h.engine.HandleMessage(ctx, from, body)
	if err != nil {
		h.logger.Error("dialog engine failed", "error", err, "session_id", from)
		span.RecordError(err)
		replies = []string{"Desculpe, tive um problema técnico. Pode tentar novamente em instantes?"}
	}

	h.writeTwiML(w, replies)
}

func (h *Handler) writeTwiML(w http.ResponseWriter, replies []string) {
	payload, err := xml.Marshal(twimlResponse{Messages: replies})
	if err != nil {
		h.logger.Error("failed to encode twiml", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(xml.Header))
	w.Write(payload)
}
