package service

import (
	"maps"
	"net/http"
	"strings"

	"qhare-bridge/internal/dpgen"
	"qhare-bridge/internal/scrapers/qhare"
)

const defaultGenerateDocuments = 5

func (s Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s Service) handleLead(w http.ResponseWriter, r *http.Request) {
	var req leadReference
	if !decodeBody(w, r, &req) {
		return
	}
	if req.target() == "" {
		writeError(w, http.StatusBadRequest, "Missing leadUrl or leadId")
		return
	}

	bundle, err := s.qhare.FetchBundle(r.Context(), req.target(), qhare.BundleOptions{})
	if err != nil {
		s.fail(w, report_qhare_lead, err)
		return
	}
	writeJson(w, http.StatusOK, bundle)
}

type generateRequest struct {
	leadReference
	ApiKey       string `json:"apiKey"`
	MaxDocuments int    `json:"maxDocuments"`
}

// leadDigest is the part of the bundle echoed back next to the generator's answer.
type leadDigest struct {
	LeadId    string               `json:"leadId"`
	LeadUrl   string               `json:"leadUrl"`
	Contact   qhare.Contact        `json:"contact"`
	Address   qhare.Address        `json:"address"`
	Summary   []qhare.SummaryEntry `json:"summary"`
	Documents []qhare.DocumentRef  `json:"documents"`
	Missing   []string             `json:"missing"`
}

func (s Service) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ApiKey) == "" {
		writeError(w, http.StatusBadRequest, dpgen.ErrMissingApiKey.Error())
		return
	}
	if req.target() == "" {
		writeError(w, http.StatusBadRequest, "Missing leadUrl or leadId")
		return
	}
	if req.MaxDocuments <= 0 {
		req.MaxDocuments = defaultGenerateDocuments
	}

	bundle, err := s.qhare.FetchBundle(r.Context(), req.target(), qhare.BundleOptions{
		DownloadDocuments: true,
		MaxDocuments:      req.MaxDocuments,
	})
	if err != nil {
		s.fail(w, report_qhare_generate, err)
		return
	}

	inline := dpgen.InlineDocuments(bundle.InlineDocuments)
	generated, err := s.generator.Generate(r.Context(), req.ApiKey, dpgen.Request{
		Payload:         bundle.Payload,
		InlineDocuments: inline,
	})
	if err != nil {
		s.fail(w, report_qhare_generate, err)
		return
	}

	body := make(map[string]any, len(generated.Body)+2)
	maps.Copy(body, generated.Body)
	body["qhare"] = leadDigest{
		LeadId:    bundle.LeadId,
		LeadUrl:   bundle.LeadUrl,
		Contact:   bundle.Contact,
		Address:   bundle.Address,
		Summary:   bundle.Summary,
		Documents: bundle.Documents,
		Missing:   bundle.Missing,
	}
	body["inline_documents_count"] = len(inline)
	writeJson(w, generated.StatusCode, body)
}

type previewRequest struct {
	Url string `json:"url"`
}

func (s Service) handleDocumentPreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Url) == "" {
		writeError(w, http.StatusBadRequest, "Missing url")
		return
	}

	preview, err := s.qhare.FetchDocumentPreview(r.Context(), strings.TrimSpace(req.Url))
	if err != nil {
		s.fail(w, report_qhare_document_preview, err)
		return
	}
	writeJson(w, http.StatusOK, preview)
}
