package dpgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"

	"qhare-bridge/internal/scrapers/qhare"
	"qhare-bridge/lib/testutil"
)

func TestInlineDocuments(t *testing.T) {
	inline := InlineDocuments([]qhare.DocumentContent{
		{Filename: "devis.pdf", Base64: "JVBERg==", Mime: "application/pdf", Bytes: 4},
		{Filename: "broken.pdf", Error: "qhare: fetch failed"},
		{Filename: "empty.pdf", Mime: "application/pdf"},
		{Filename: "plan.png", Base64: "iVBO"},
	})
	require.Equal(t, []InlineDocument{
		{Filename: "devis.pdf", Content: "JVBERg=="},
		{Filename: "plan.png", Content: "iVBO"},
	}, inline)

	require.Equal(t, []InlineDocument{}, InlineDocuments(nil))
}

func TestGenerate(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("X-API-Key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"detail":"invalid api key"}`)
			return
		}
		received = map[string]any{}
		err := json.NewDecoder(r.Body).Decode(&received)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"status":"ok","files":["dp1.pdf"]}`)
	}))
	defer server.Close()

	client := NewClient(Options{BaseUrl: server.URL}, testutil.NewTelemetry(t))
	ctx := context.Background()

	res, err := client.Generate(ctx, "key", Request{
		Payload: qhare.Payload{NomClient: "Dupont", PuissanceKwc: "6"},
		InlineDocuments: []InlineDocument{
			{Filename: "devis.pdf", Content: "JVBERg=="},
		},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, res.StatusCode)
	require.Equal(t, "ok", res.Body["status"])

	payload := received["payload"].(map[string]any)
	require.Equal(t, "Dupont", payload["nom_client"])
	require.Equal(t, "6", payload["puissance_kwc"])
	require.Contains(t, payload, "lien_odoo")
	require.Len(t, received["inline_documents"], 1)

	_, err = client.Generate(ctx, "key", Request{Payload: qhare.Payload{}})
	require.NoError(t, err)
	require.NotContains(t, received, "inline_documents")

	res, err = client.Generate(ctx, "wrong", Request{})
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Equal(t, "invalid api key", res.Body["detail"])

	_, err = client.Generate(ctx, "", Request{})
	require.ErrorIs(t, err, ErrMissingApiKey)
}

func TestGenerateBreaker(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"detail":"template missing"}`)
	}))
	defer server.Close()

	client := NewClient(Options{
		BaseUrl:             server.URL,
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
	}, testutil.NewTelemetry(t))
	ctx := context.Background()

	for range 2 {
		res, err := client.Generate(ctx, "key", Request{})
		require.NoError(t, err)
		require.Equal(t, http.StatusInternalServerError, res.StatusCode)
		require.Equal(t, "template missing", res.Body["detail"])
	}

	_, err := client.Generate(ctx, "key", Request{})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.Equal(t, int64(2), calls.Load())
}
