package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"

	// fallbackReply is sent when the AI service stays unavailable after all
	// retries. Low commitment on purpose.
	fallbackReply = "Oi! Já te respondo, só um minuto."

	maxGenerateAttempts = 3
)

const personaPrompt = `
Você é a Carolina, atendente real da AquaFit Brasil.
OBJETIVO: Ajudar clientes com PIX não pago.
TOM DE VOZ: Educada, clara, objetiva e acolhedora.
- A primeira mensagem deve ser primeiro cumprimentando a cliente pelo nome dela "Olá (nome), tudo bem ?", se apresentar como Carolina atendente da AquaFit Brasil e agradecer a cliente pela compra, dizer que ficamos muito felizes de ter ela como cliente, mas que percebemos que o pagamento via pix não foi realizado. Pergunte se aconteceu algum problema, forneça a nossa chave pix para pagamento direto, diga que basta ela enviar o comprovante de pagamento pelo whatsapp mesmo e pergunte se ficou alguma dúvida.

REGRAS DE SEGURANÇA:
- Nunca peça senha, token ou print de cartão.
- Explique AppMax se houver desconfiança.
- Ofereça PIX direto no CNPJ se a cliente estiver insegura.
- Nunca invente nada sobre o envio das peças, do local de produção ou de qualquer outro assunto.

DADOS PARA PIX DIRETO, para mandar na primeira mensagem, envie os dados exatamente assim:

*CNPJ:* 52757947000145
*Banco:* Itaú
*Recebedor:* JVL NEGÓCIOS DIGITAIS LTDA (Razão social da AquaFit Brasil - Conferir no rodapé da loja)
*Valor:* {VALOR_TOTAL_PEDIDO} (Substitua pelo valor exato que receber no contexto)

Depois que a cliente disser que já pagou, agradeça e diga que ela receberá a confirmação via e-mail e em breve o rastreamento.
`

// GeminiService generates assistant turns through the Gemini REST API. It
// implements Responder: Generate never fails the caller, it retries with
// doubling backoff and then degrades to fallbackReply.
type GeminiService struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	maxAttempts int
	backoffBase time.Duration
}

// NewGeminiService creates the service from GEMINI_API_KEY.
func NewGeminiService() (*GeminiService, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY in environment variables")
	}

	model := os.Getenv("GEMINI_MODEL")
	if model == "" {
		model = defaultGeminiModel
	}

	return &GeminiService{
		apiKey:      apiKey,
		model:       model,
		baseURL:     defaultGeminiBaseURL,
		client:      &http.Client{Timeout: 60 * time.Second},
		maxAttempts: maxGenerateAttempts,
		backoffBase: 2 * time.Second,
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// formatBRL renders an order amount the way the persona script expects it.
func formatBRL(v float64) string {
	return "R$ " + strings.ReplaceAll(fmt.Sprintf("%.2f", v), ".", ",")
}

// openingPrompt is the user turn sent when the history is empty: it asks for
// the scripted first message with the amount substituted in.
func openingPrompt(customer models.CustomerData) string {
	amount := formatBRL(customer.Amount)
	return fmt.Sprintf(`
Contexto PIX:
Cliente: %s
Valor Pedido: %s
Link Original: %s

Se for a primeira mensagem, gere EXATAMENTE a "Mensagem 1" do seu roteiro, substituindo a variável {VALOR_TOTAL_PEDIDO} por %s.
`, customer.Name, amount, customer.Link, amount)
}

// Generate produces the next assistant turn for the given history and order
// context. On empty history it asks for the scripted opening message.
func (g *GeminiService) Generate(history []models.Message, customer models.CustomerData) string {
	contents := make([]geminiContent, 0, len(history)+2)
	contents = append(contents, geminiContent{
		Role:  models.RoleUser,
		Parts: []geminiPart{{Text: "Instrução do Sistema: " + personaPrompt}},
	})
	for _, msg := range history {
		contents = append(contents, geminiContent{
			Role:  msg.Role,
			Parts: []geminiPart{{Text: msg.Text}},
		})
	}

	final := "Gere a próxima resposta."
	if len(history) == 0 {
		final = openingPrompt(customer)
	}
	contents = append(contents, geminiContent{
		Role:  models.RoleUser,
		Parts: []geminiPart{{Text: final}},
	})

	backoff := g.backoffBase
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		text, err := g.generateOnce(contents)
		if err == nil {
			return text
		}
		log.Printf("❌ Gemini attempt %d/%d failed: %v", attempt, g.maxAttempts, err)
		if attempt < g.maxAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	log.Printf("⚠️  Gemini unavailable, using fallback reply")
	return fallbackReply
}

func (g *GeminiService) generateOnce(contents []geminiContent) (string, error) {
	body, err := json.Marshal(geminiRequest{Contents: contents})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(g.baseURL, "/"), g.model, g.apiKey)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("gemini: bad response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty candidate")
	}

	var out strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", fmt.Errorf("gemini: empty text")
	}
	return text, nil
}
