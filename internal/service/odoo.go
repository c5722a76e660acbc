package service

import (
	"encoding/base64"
	"net/http"
	"strings"
)

type odooRequest struct {
	Url           string `json:"url"`
	SessionCookie string `json:"sessionCookie"`
}

type odooFileResponse struct {
	Filename  string `json:"filename"`
	Mime      string `json:"mime"`
	SizeBytes int    `json:"size_bytes"`
	Base64    string `json:"base64"`
}

func (s Service) handleListOdooFolder(w http.ResponseWriter, r *http.Request) {
	var req odooRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Url) == "" {
		writeError(w, http.StatusBadRequest, "Missing url")
		return
	}

	documents, err := s.odoo.ListFolder(r.Context(), strings.TrimSpace(req.Url), req.SessionCookie)
	if err != nil {
		s.fail(w, report_odoo_list_folder, err)
		return
	}
	writeJson(w, http.StatusOK, documents)
}

func (s Service) handleGetOdooFile(w http.ResponseWriter, r *http.Request) {
	var req odooRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Url) == "" {
		writeError(w, http.StatusBadRequest, "Missing url")
		return
	}

	file, err := s.odoo.DownloadFile(r.Context(), strings.TrimSpace(req.Url), req.SessionCookie)
	if err != nil {
		s.fail(w, report_odoo_get_file, err)
		return
	}
	writeJson(w, http.StatusOK, odooFileResponse{
		Filename:  file.Filename,
		Mime:      file.Mime,
		SizeBytes: len(file.Data),
		Base64:    base64.StdEncoding.EncodeToString(file.Data),
	})
}
