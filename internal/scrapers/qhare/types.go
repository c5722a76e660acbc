package qhare

import "encoding/json"

// Fields maps a form field name to its current value, as rendered on a page.
type Fields map[string]string

// DynamicAttribute is one numbered group of the lead's configurable attributes.
type DynamicAttribute struct {
	Id       string   `json:"id"`
	Label    string   `json:"label"`
	RawValue string   `json:"raw"`
	Values   []string `json:"values"`
}

type SummaryEntry struct {
	Label  string   `json:"label"`
	Values []string `json:"values"`
}

// Payload is the record handed to the document generator. The cadastre fields are left
// empty and the last three are always null, they are filled in downstream.
type Payload struct {
	NomClient               string  `json:"nom_client"`
	PrenomClient            string  `json:"prenom_client"`
	NumeroAdresse           string  `json:"numero_adresse"`
	Voie                    string  `json:"voie"`
	Ville                   string  `json:"ville"`
	CodePostal              string  `json:"code_postal"`
	PrefixeCadastre         string  `json:"prefixe_cadastre"`
	SectionCadastre         string  `json:"section_cadastre"`
	NumeroCadastre          string  `json:"numero_cadastre"`
	SuperficieCadastre      string  `json:"superficie_cadastre"`
	DescriptionInstallation string  `json:"description_installation"`
	PuissanceKwc            string  `json:"puissance_kwc"`
	LienOdoo                *string `json:"lien_odoo"`
	DateSignature           *string `json:"date_signature"`
	SessionCookie           *string `json:"session_cookie"`
}

// Get returns the value of the field with the given json name, "" for unknown or
// null fields.
func (p Payload) Get(key string) string {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}

	switch key {
	case "nom_client":
		return p.NomClient
	case "prenom_client":
		return p.PrenomClient
	case "numero_adresse":
		return p.NumeroAdresse
	case "voie":
		return p.Voie
	case "ville":
		return p.Ville
	case "code_postal":
		return p.CodePostal
	case "prefixe_cadastre":
		return p.PrefixeCadastre
	case "section_cadastre":
		return p.SectionCadastre
	case "numero_cadastre":
		return p.NumeroCadastre
	case "superficie_cadastre":
		return p.SuperficieCadastre
	case "description_installation":
		return p.DescriptionInstallation
	case "puissance_kwc":
		return p.PuissanceKwc
	case "lien_odoo":
		return deref(p.LienOdoo)
	case "date_signature":
		return deref(p.DateSignature)
	case "session_cookie":
		return deref(p.SessionCookie)
	}
	return ""
}

type Contact struct {
	Civilite string `json:"civilite"`
	Prenom   string `json:"prenom"`
	Nom      string `json:"nom"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type Address struct {
	Raw        string `json:"raw"`
	Numero     string `json:"numero"`
	Voie       string `json:"voie"`
	CodePostal string `json:"code_postal"`
	Ville      string `json:"ville"`
}

// DocumentRef is a downloadable attachment found on a lead page.
type DocumentRef struct {
	Url      string  `json:"url"`
	Filename string  `json:"filename"`
	Label    *string `json:"label"`
	Preview  *string `json:"preview"`
}

// DocumentContent is the result of downloading one DocumentRef. On failure only
// Filename, Url and Error are set.
type DocumentContent struct {
	Filename string `json:"filename"`
	Mime     string `json:"mime,omitempty"`
	Bytes    int    `json:"bytes,omitempty"`
	Base64   string `json:"base64,omitempty"`
	Url      string `json:"url"`
	Error    string `json:"error,omitempty"`
}

func (d DocumentContent) Ok() bool {
	return d.Error == ""
}

// MarshalJSON writes only the fields of the variant d is, a successful empty download
// still carries `bytes` and `base64`.
func (d DocumentContent) MarshalJSON() ([]byte, error) {
	if !d.Ok() {
		return json.Marshal(struct {
			Filename string `json:"filename"`
			Url      string `json:"url"`
			Error    string `json:"error"`
		}{d.Filename, d.Url, d.Error})
	}
	return json.Marshal(struct {
		Filename string `json:"filename"`
		Mime     string `json:"mime"`
		Bytes    int    `json:"bytes"`
		Base64   string `json:"base64"`
		Url      string `json:"url"`
	}{d.Filename, d.Mime, d.Bytes, d.Base64, d.Url})
}

// LeadBundle is everything known about one lead, it is built per request and never stored.
type LeadBundle struct {
	LeadId    string         `json:"leadId"`
	LeadUrl   string         `json:"leadUrl"`
	Contact   Contact        `json:"contact"`
	Address   Address        `json:"address"`
	Payload   Payload        `json:"dpPayload"`
	Summary   []SummaryEntry `json:"summary"`
	Documents []DocumentRef  `json:"documents"`
	Missing   []string       `json:"missing"`

	InlineDocuments []DocumentContent `json:"inlineDocuments,omitempty"`
}

type BundleOptions struct {
	DownloadDocuments bool
	// MaxDocuments caps the number of downloaded documents, values <= 0 mean DefaultMaxDocuments.
	MaxDocuments int
}

type Preview struct {
	Mime   string `json:"mime"`
	Base64 string `json:"base64"`
}
