package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiExtractor is the free-text fallback layer: it asks Gemini for the
// expected fields as JSON and maps the answer back into typed values with the
// model's own confidence signal.
type GeminiExtractor struct {
	client  *genai.Client
	modelID string
	loc     *time.Location
	now     func() time.Time
}

var _ Extractor = (*GeminiExtractor)(nil)

// NewGeminiExtractor creates the Gemini-backed fallback.
func NewGeminiExtractor(ctx context.Context, apiKey, modelID string, loc *time.Location) (*GeminiExtractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("extract: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	if loc == nil {
		loc = time.UTC
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("extract: failed to create gemini client: %w", err)
	}

	return &GeminiExtractor{client: client, modelID: modelID, loc: loc, now: time.Now}, nil
}

const extractionPromptTemplate = `Você extrai dados estruturados de mensagens de pacientes de uma clínica.
Hoje é %s. Responda SOMENTE com JSON, sem comentários, no formato:
{"campo": {"value": "...", "confidence": 0.0}}

Campos esperados e formatos dos valores:
%s

Se um campo não estiver presente na mensagem, omita-o. Use confidence entre 0 e 1.

Mensagem: %q`

var fieldPromptHints = map[Field]string{
	FieldDate:         `- date: data no formato YYYY-MM-DD`,
	FieldDateRange:    `- date_range: intervalo no formato "YYYY-MM-DD/YYYY-MM-DD"`,
	FieldTime:         `- time: horário no formato HH:MM (24h)`,
	FieldSlotIndex:    `- slot_index: número inteiro da opção escolhida`,
	FieldName:         `- name: nome completo da pessoa`,
	FieldEmail:        `- email: endereço de email`,
	FieldPhone:        `- phone: telefone, somente dígitos`,
	FieldConfirmation: `- confirmation: "yes" ou "no"`,
}

func (g *GeminiExtractor) Extract(ctx context.Context, text string, fields []Field) (Result, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(0)
	model.ResponseMIMEType = "application/json"

	var hints []string
	for _, f := range fields {
		if hint, ok := fieldPromptHints[f]; ok {
			hints = append(hints, hint)
		}
	}
	if len(hints) == 0 {
		return Result{}, nil
	}

	prompt := fmt.Sprintf(extractionPromptTemplate,
		g.now().In(g.loc).Format("2006-01-02"), strings.Join(hints, "\n"), text)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("extract: gemini request failed: %w", err)
	}

	raw := responseText(resp)
	if raw == "" {
		return Result{}, nil
	}
	return g.decode(raw, fields)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}

type geminiField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

func (g *GeminiExtractor) decode(raw string, fields []Field) (Result, error) {
	raw = stripCodeFence(raw)

	var parsed map[string]geminiField
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("extract: gemini returned invalid json: %w", err)
	}

	result := make(Result)
	for _, field := range fields {
		gf, ok := parsed[string(field)]
		if !ok || strings.TrimSpace(gf.Value) == "" {
			continue
		}
		if v, ok := g.toValue(field, gf); ok {
			result[field] = v
		}
	}
	return result, nil
}

func (g *GeminiExtractor) toValue(field Field, gf geminiField) (Value, bool) {
	confidence := gf.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = 0.5
	}
	value := strings.TrimSpace(gf.Value)

	switch field {
	case FieldDate:
		d, err := time.ParseInLocation("2006-01-02", value, g.loc)
		if err != nil {
			return Value{}, false
		}
		return Value{Date: d, Confidence: confidence}, true
	case FieldDateRange:
		parts := strings.SplitN(value, "/", 2)
		if len(parts) != 2 {
			return Value{}, false
		}
		start, err1 := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[0]), g.loc)
		end, err2 := time.ParseInLocation("2006-01-02", strings.TrimSpace(parts[1]), g.loc)
		if err1 != nil || err2 != nil {
			return Value{}, false
		}
		if end.Before(start) {
			start, end = end, start
		}
		return Value{Date: start, EndDate: end, Confidence: confidence}, true
	case FieldTime:
		t, err := time.Parse("15:04", value)
		if err != nil {
			return Value{}, false
		}
		return Value{Hour: t.Hour(), Minute: t.Minute(), Confidence: confidence}, true
	case FieldSlotIndex:
		var idx int
		if _, err := fmt.Sscanf(value, "%d", &idx); err != nil || idx < 1 {
			return Value{}, false
		}
		return Value{Index: idx, Confidence: confidence}, true
	case FieldConfirmation:
		switch strings.ToLower(value) {
		case "yes", "sim", "true":
			return Value{Affirmed: true, Confidence: confidence}, true
		case "no", "não", "nao", "false":
			return Value{Affirmed: false, Confidence: confidence}, true
		}
		return Value{}, false
	default:
		return Value{Text: value, Confidence: confidence}, true
	}
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(raw, "```")
	}
	return strings.TrimSpace(raw)
}
