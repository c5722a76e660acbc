package odoo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"qhare-bridge/lib/testutil"
)

const folderPage = `<html><body>
	<a href="/documents/content/abc123">Plan de masse.pdf</a>
	<a href="/web/content/42?download=true"></a>
	<a href="https://cdn.example.com/documents/content/xyz">  Photo
		toiture.jpg </a>
	<a href="/documents/content/abc123">Plan de masse.pdf</a>
	<a href="/web/login">Connexion</a>
	<a>sans lien</a>
</body></html>`

// the folder handler records the user agent and cookie of every request
func newTestServer(t *testing.T) (*httptest.Server, *[]string) {
	cookies := []string{}
	mux := http.NewServeMux()
	mux.HandleFunc("/share/folder", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/documents/share/7", http.StatusFound)
	})
	mux.HandleFunc("/documents/share/7", func(w http.ResponseWriter, r *http.Request) {
		cookies = append(cookies, r.Header.Get("User-Agent")+" "+r.Header.Get("Cookie"))
		fmt.Fprint(w, folderPage)
	})
	mux.HandleFunc("/documents/content/abc123", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="Plan de masse.pdf"`)
		fmt.Fprint(w, "%PDF-plan")
	})
	mux.HandleFunc("/documents/content/raw", func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		fmt.Fprint(w, "raw")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &cookies
}

func TestListFolder(t *testing.T) {
	server, cookies := newTestServer(t)
	client := NewClient(Options{DefaultCookie: "session_id=default"}, testutil.NewTelemetry(t))
	ctx := context.Background()

	documents, err := client.ListFolder(ctx, server.URL+"/share/folder", "")
	require.NoError(t, err)
	require.Equal(t, []Document{
		{Filename: "Plan de masse.pdf", Url: server.URL + "/documents/content/abc123"},
		{Filename: "42?download=true", Url: server.URL + "/web/content/42?download=true"},
		{Filename: "Photo toiture.jpg", Url: "https://cdn.example.com/documents/content/xyz"},
		{Filename: "Plan de masse.pdf", Url: server.URL + "/documents/content/abc123"},
	}, documents)

	_, err = client.ListFolder(ctx, server.URL+"/share/folder", "session_id=mine")
	require.NoError(t, err)
	require.Equal(t, []string{
		DefaultUserAgent + " session_id=default",
		DefaultUserAgent + " session_id=mine",
	}, *cookies)
}

func TestListFolderErrors(t *testing.T) {
	server, _ := newTestServer(t)
	client := NewClient(Options{}, testutil.NewTelemetry(t))
	ctx := context.Background()

	for _, invalid := range []string{"", "ftp://example.com", "/documents/share/7"} {
		_, err := client.ListFolder(ctx, invalid, "")
		require.ErrorIs(t, err, ErrInvalidUrl)
	}

	_, err := client.ListFolder(ctx, server.URL+"/missing", "")
	require.EqualError(t, err, "odoo: list folder: 404 Not Found")
}

func TestDownloadFile(t *testing.T) {
	server, _ := newTestServer(t)
	client := NewClient(Options{}, testutil.NewTelemetry(t))
	ctx := context.Background()

	file, err := client.DownloadFile(ctx, server.URL+"/documents/content/abc123", "")
	require.NoError(t, err)
	require.Equal(t, File{
		Filename: "Plan de masse.pdf",
		Mime:     "application/pdf",
		Data:     []byte("%PDF-plan"),
	}, file)

	file, err = client.DownloadFile(ctx, server.URL+"/documents/content/raw", "")
	require.NoError(t, err)
	require.Equal(t, "raw", file.Filename)
	require.Equal(t, defaultMime, file.Mime)

	_, err = client.DownloadFile(ctx, server.URL+"/documents/content/missing", "")
	require.EqualError(t, err, "odoo: download file: 404 Not Found")

	_, err = client.DownloadFile(ctx, "file:///etc/passwd", "")
	require.ErrorIs(t, err, ErrInvalidUrl)
}
