package services

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquafit-brasil/pixbot-backend/internal/models"
)

func newTestGemini(server *httptest.Server) *GeminiService {
	return &GeminiService{
		apiKey:      "test-key",
		model:       "test-model",
		baseURL:     server.URL,
		client:      server.Client(),
		maxAttempts: 3,
		backoffBase: time.Millisecond,
	}
}

func geminiReply(text string) []byte {
	raw, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{
				"role":  "model",
				"parts": []map[string]string{{"text": text}},
			}},
		},
	})
	return raw
}

func TestGenerateReturnsModelText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(geminiReply("Olá Maria, tudo bem?"))
	}))
	defer server.Close()

	g := newTestGemini(server)
	out := g.Generate([]models.Message{{Role: models.RoleUser, Text: "oi"}}, models.CustomerData{})
	assert.Equal(t, "Olá Maria, tudo bem?", out)
}

func TestGenerateEmptyHistoryAsksForScriptedOpening(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Write(geminiReply("abertura"))
	}))
	defer server.Close()

	g := newTestGemini(server)
	g.Generate(nil, models.CustomerData{Name: "Maria", Amount: 150, Link: "https://loja/x"})

	var req geminiRequest
	require.NoError(t, json.Unmarshal(body, &req))
	// Persona turn + the opening-request turn.
	require.Len(t, req.Contents, 2)
	final := req.Contents[1].Parts[0].Text
	assert.Contains(t, final, "Maria")
	assert.Contains(t, final, "R$ 150,00")
	assert.Contains(t, final, "{VALOR_TOTAL_PEDIDO}")
}

func TestGenerateRunningHistoryAsksForNextReply(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Write(geminiReply("próxima"))
	}))
	defer server.Close()

	g := newTestGemini(server)
	history := []models.Message{
		{Role: models.RoleModel, Text: "Olá!"},
		{Role: models.RoleUser, Text: "tive um problema"},
	}
	g.Generate(history, models.CustomerData{})

	var req geminiRequest
	require.NoError(t, json.Unmarshal(body, &req))
	require.Len(t, req.Contents, 4)
	assert.Equal(t, "Gere a próxima resposta.", req.Contents[3].Parts[0].Text)
}

func TestGenerateRetriesThenFallsBack(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	g := newTestGemini(server)
	out := g.Generate(nil, models.CustomerData{Amount: 99.9})

	assert.Equal(t, 3, attempts)
	assert.Equal(t, fallbackReply, out)
}

func TestGenerateRecoversOnSecondAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "flaky", http.StatusServiceUnavailable)
			return
		}
		w.Write(geminiReply("recuperado"))
	}))
	defer server.Close()

	g := newTestGemini(server)
	out := g.Generate(nil, models.CustomerData{})
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "recuperado", out)
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 150,00", formatBRL(150))
	assert.Equal(t, "R$ 89,90", formatBRL(89.9))
	assert.Equal(t, "R$ 0,00", formatBRL(0))
}
