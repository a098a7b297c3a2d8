package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/worq1337/parcer-sub001/internal/checkerror"
	"github.com/worq1337/parcer-sub001/internal/logging"
	"github.com/worq1337/parcer-sub001/internal/textutils"
)

// GeminiClient extracts check fields with the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	logger logging.Logger
}

// NewGemini creates a Gemini-backed extraction client.
func NewGemini(ctx context.Context, apiKey, modelName string, logger logging.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key not set")
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.1)

	return &GeminiClient{
		client: client,
		model:  model,
		name:   "gemini:" + modelName,
		logger: logger,
	}, nil
}

// Name identifies this client in logs and pool listings.
func (g *GeminiClient) Name() string {
	return g.name
}

// Close releases the underlying API client.
func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Extract asks the model for a JSON extraction of the notification text.
func (g *GeminiClient) Extract(ctx context.Context, rawText string) (*RawExtraction, error) {
	prompt := buildPrompt(rawText)

	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, &checkerror.ParseError{
			Source:  g.name,
			Snippet: textutils.Snippet(rawText, 120),
			Err:     fmt.Errorf("Gemini API error: %w", err),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &checkerror.ParseError{
			Source:  g.name,
			Snippet: textutils.Snippet(rawText, 120),
			Err:     fmt.Errorf("no response from Gemini API"),
		}
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])
	cleaned := stripFences(responseText)

	var raw RawExtraction
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		g.logger.WithError(err).WithField(logging.FieldOperation, "extract").
			Debug("Model returned malformed JSON")
		return nil, &checkerror.ParseError{
			Source:  g.name,
			Snippet: textutils.Snippet(cleaned, 120),
			Err:     fmt.Errorf("model returned malformed JSON: %w", err),
		}
	}

	return &raw, nil
}

// stripFences removes a markdown code fence the model sometimes wraps the
// JSON in despite instructions.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// buildPrompt renders the extraction instructions for one notification.
func buildPrompt(text string) string {
	return fmt.Sprintf(`You are an expert at parsing bank notifications from Uzbek banks.
Extract structured data from the transaction text below and respond with ONLY valid JSON, no commentary.

Transaction text:
%s

Return JSON with exactly these fields:
{
  "datetime": "YYYY-MM-DD HH:MM:SS",
  "transactionType": "string",
  "amount": number,
  "isIncome": boolean,
  "currency": "string",
  "cardLast4": "string",
  "operator": "string",
  "balance": number
}

Rules:
1. Convert a date like "25-04-06" to "2025-04-06".
2. Convert a date like "06.04.25" to "2025-04-06".
3. Convert a date like "01-APR-2025" to "2025-04-01".
4. Extract amounts as plain numbers without spaces or thousands separators.
5. Take the card's last 4 digits from patterns like *XXXX or ***XXXX.
6. The operator is the merchant name: the text after the location marker in app notifications, or after the colon in SMS.
7. isIncome is true for top-ups ("Пополнение", "popolnenie") and false for payments ("Оплата", "Покупка", "Списание", "oplata", "pokupka", "spisanie").
8. OTMENA means a refund: isIncome = true, transactionType = "Возврат".
9. Normalize transliterated types: "Pokupka" -> "Оплата", "Popolnenie" -> "Пополнение", "Spisanie" -> "Списание", "Platezh" -> "Платеж".
10. Omit balance if the text does not state a remaining balance.
`, text)
}
