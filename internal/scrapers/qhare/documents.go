package qhare

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"qhare-bridge/lib/htmlutil"
)

const (
	report_documents_download = "documents.download"
	report_documents_failed   = "documents.failed"
)

const (
	DefaultMaxDocuments = 5
	// attachments are served by rails active storage
	documentUrlMarker = "/rails/active_storage/"
)

func filenameFromUrl(link *url.URL) string {
	escaped := link.EscapedPath()
	segment := escaped[strings.LastIndex(escaped, "/")+1:]
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		decoded = segment
	}
	return strings.TrimSpace(decoded)
}

// ExtractDocuments finds the attachment links under `sel`, resolved against `base` and
// deduplicated by absolute url (the first link wins).
func ExtractDocuments(sel *goquery.Selection, base *url.URL) []DocumentRef {
	anchors := htmlutil.GetAnchors(base, sel.Find(fmt.Sprintf("a[href*='%s']", documentUrlMarker)))

	seen := map[string]struct{}{}
	documents := []DocumentRef{}
	for _, a := range anchors {
		absolute := a.Url.String()
		if _, ok := seen[absolute]; ok {
			continue
		}
		seen[absolute] = struct{}{}

		label := a.Name
		if label == "" {
			label = strings.TrimSpace(a.Node.AttrOr("title", ""))
		}

		filename := filenameFromUrl(a.Url)
		if filename == "" {
			filename = label
		}
		if filename == "" {
			filename = fmt.Sprintf("fichier_%d.pdf", len(documents)+1)
		}

		doc := DocumentRef{
			Url:      absolute,
			Filename: filename,
		}
		if label != "" {
			doc.Label = &label
		}
		src, ok := a.Node.Find("img").First().Attr("src")
		if ok && src != "" {
			preview, err := base.Parse(src)
			if err == nil {
				previewUrl := preview.String()
				doc.Preview = &previewUrl
			}
		}
		documents = append(documents, doc)
	}
	return documents
}

// DownloadDocuments fetches at most `limit` documents one after the other. A failed
// download does not stop the others, it is returned as a DocumentContent with Error set.
func (s *Session) DownloadDocuments(ctx context.Context, documents []DocumentRef, limit int) []DocumentContent {
	if limit <= 0 {
		limit = DefaultMaxDocuments
	}
	if len(documents) > limit {
		documents = documents[:limit]
	}

	failed := 0
	results := make([]DocumentContent, 0, len(documents))
	for _, doc := range documents {
		binary, err := s.FetchBinary(ctx, doc.Url)
		if err != nil {
			failed++
			s.tel.ReportWarning(report_documents_download, err, doc.Filename)
			results = append(results, DocumentContent{
				Filename: doc.Filename,
				Url:      doc.Url,
				Error:    err.Error(),
			})
			continue
		}
		results = append(results, DocumentContent{
			Filename: doc.Filename,
			Mime:     binary.Mime,
			Bytes:    len(binary.Data),
			Base64:   base64.StdEncoding.EncodeToString(binary.Data),
			Url:      doc.Url,
		})
	}
	s.tel.ReportCount(report_documents_failed, int64(failed))
	return results
}
