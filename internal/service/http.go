package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"qhare-bridge/internal/scrapers/qhare"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJson(w, status, errorBody{Error: message})
}

// fail maps err to a response, missing input is the caller's fault and everything else is ours.
func (s Service) fail(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, qhare.ErrMissingInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.tel.ReportWarning(id, err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

// decodeBody reads a json body into out, an empty body leaves out untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	err := json.NewDecoder(r.Body).Decode(out)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %s", err.Error()))
	return false
}

// identifier accepts both a json string and a json number, lead ids are sent either way.
type identifier string

func (i *identifier) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = ""
		return nil
	}
	if strings.HasPrefix(string(data), `"`) {
		var s string
		err := json.Unmarshal(data, &s)
		if err != nil {
			return err
		}
		*i = identifier(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	err := json.Unmarshal(data, &n)
	if err != nil {
		return fmt.Errorf("lead identifier must be a string or a number")
	}
	*i = identifier(n.String())
	return nil
}

// leadReference is the part shared by every request that targets one lead, leadId wins
// over leadUrl.
type leadReference struct {
	LeadId  identifier `json:"leadId"`
	LeadUrl string     `json:"leadUrl"`
}

func (l leadReference) target() string {
	if l.LeadId != "" {
		return string(l.LeadId)
	}
	return strings.TrimSpace(l.LeadUrl)
}
