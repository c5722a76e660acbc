package qhare

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string {
	return &s
}

func TestExtractDocuments(t *testing.T) {
	base, err := url.Parse("https://qhare.fr/leads/123456/edit")
	require.NoError(t, err)

	documents := ExtractDocuments(parseHtml(t, leadPage).Selection, base)
	expected := []DocumentRef{
		{
			Url:      "https://qhare.fr/rails/active_storage/blobs/redirect/abc/devis%20sign%C3%A9.pdf",
			Filename: "devis signé.pdf",
			Label:    strptr("Devis"),
		},
		{
			Url:      "https://qhare.fr/rails/active_storage/blobs/redirect/def/plan.pdf",
			Filename: "plan.pdf",
			Label:    strptr("Plan"),
			Preview:  strptr("https://qhare.fr/rails/active_storage/representations/def/plan.png"),
		},
		{
			Url:      "https://qhare.fr/rails/active_storage/blobs/redirect/ghi/broken.pdf",
			Filename: "broken.pdf",
			Label:    strptr("Cassé"),
		},
	}
	if diff := cmp.Diff(expected, documents); diff != "" {
		t.Fatal(diff)
	}
}

func TestExtractDocumentsFilenameFallbacks(t *testing.T) {
	base, err := url.Parse("https://qhare.fr/leads/123456/edit")
	require.NoError(t, err)

	doc := parseHtml(t, `<html><body>
		<a href="https://storage.example.com/rails/active_storage/blobs/a/">  Attestation
			EDF </a>
		<a href="/rails/active_storage/blobs/b/"></a>
		<a href="/rails/active_storage/blobs/c/bad%zzname.pdf?disposition=inline">Mauvais</a>
		<a href="">vide</a>
	</body></html>`)

	documents := ExtractDocuments(doc.Selection, base)
	expected := []DocumentRef{
		{
			Url:      "https://storage.example.com/rails/active_storage/blobs/a/",
			Filename: "Attestation EDF",
			Label:    strptr("Attestation EDF"),
		},
		{
			Url:      "https://qhare.fr/rails/active_storage/blobs/b/",
			Filename: "fichier_2.pdf",
		},
	}
	if diff := cmp.Diff(expected, documents); diff != "" {
		t.Fatal(diff)
	}
}

func TestDownloadDocumentsIsolatesFailures(t *testing.T) {
	env := newTestEnv(t, validCredentials())
	ctx := context.Background()
	require.NoError(t, env.session.EnsureAuthenticated(ctx, false))

	blob := env.portal.server.URL + "/rails/active_storage/blobs/redirect/"
	documents := []DocumentRef{
		{Url: blob + "abc/devis.pdf", Filename: "devis.pdf"},
		{Url: blob + "ghi/broken.pdf", Filename: "broken.pdf"},
		{Url: blob + "def/plan.pdf", Filename: "plan.pdf"},
	}

	results := env.session.DownloadDocuments(ctx, documents, 5)
	require.Len(t, results, 3)

	require.True(t, results[0].Ok())
	require.Equal(t, "devis.pdf", results[0].Filename)
	require.Equal(t, "application/pdf", results[0].Mime)
	require.Equal(t, len("%PDF-devis"), results[0].Bytes)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("%PDF-devis")), results[0].Base64)

	require.False(t, results[1].Ok())
	require.Equal(t, "broken.pdf", results[1].Filename)
	require.Equal(t, documents[1].Url, results[1].Url)
	require.Contains(t, results[1].Error, "500")
	require.Empty(t, results[1].Base64)

	require.True(t, results[2].Ok())
	require.Equal(t, defaultMime, results[2].Mime)
	require.Equal(t, 4, results[2].Bytes)

	require.Equal(t, int64(1), env.tel.Counts["qhare: documents.failed"])
}

func TestDownloadDocumentsLimit(t *testing.T) {
	env := newTestEnv(t, validCredentials())
	ctx := context.Background()
	require.NoError(t, env.session.EnsureAuthenticated(ctx, false))

	documents := make([]DocumentRef, 8)
	for i := range documents {
		documents[i] = DocumentRef{
			Url:      env.portal.server.URL + "/rails/active_storage/blobs/redirect/abc/devis.pdf",
			Filename: "devis.pdf",
		}
	}

	require.Len(t, env.session.DownloadDocuments(ctx, documents, 2), 2)
	require.Len(t, env.session.DownloadDocuments(ctx, documents, 0), DefaultMaxDocuments)
	require.Len(t, env.session.DownloadDocuments(ctx, documents[:3], 10), 3)
	require.Empty(t, env.session.DownloadDocuments(ctx, nil, 5))
}

func TestDocumentContentJson(t *testing.T) {
	empty, err := json.Marshal(DocumentContent{Filename: "vide.pdf", Mime: "application/pdf", Url: "https://qhare.fr/vide.pdf"})
	require.NoError(t, err)
	require.JSONEq(t, `{"filename":"vide.pdf","mime":"application/pdf","bytes":0,"base64":"","url":"https://qhare.fr/vide.pdf"}`, string(empty))

	failed, err := json.Marshal(DocumentContent{Filename: "broken.pdf", Url: "https://qhare.fr/broken.pdf", Error: "500 Internal Server Error"})
	require.NoError(t, err)
	require.JSONEq(t, `{"filename":"broken.pdf","url":"https://qhare.fr/broken.pdf","error":"500 Internal Server Error"}`, string(failed))
}
