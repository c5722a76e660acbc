package qhare

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"qhare-bridge/lib/testutil"
)

const (
	testEmail    = "agent@example.com"
	testPassword = "hunter2"
	testToken    = "csrf-token"
	testCookie   = "_qhare_session"
)

const loginPage = `<!DOCTYPE html>
<html><body>
<form class="search" action="/search"><input name="q" value="ignored"></form>
<form id="new_user" action="/users/sign_in" method="post">
	<input type="hidden" name="authenticity_token" value="csrf-token">
	<input type="email" name="user[login]" value="">
	<input type="password" name="user[password]">
	<input type="hidden" name="user[remember_me]" value="0">
	<input type="checkbox" name="user[remember_me]" value="1">
	<input type="submit" name="commit" value="Se connecter">
</form>
</body></html>`

const leadPage = `<!DOCTYPE html>
<html><body>
<form action="/leads/123456" method="post">
	<input type="hidden" name="authenticity_token" value="lead-token">
	<select name="lead[civilite]"><option value="M.">M.</option><option value="Mme" selected>Mme</option></select>
	<input name="lead[nom]" value="Dupont">
	<input name="lead[prenom]" value="Marie">
	<input name="lead[email]" value="marie@example.com">
	<input name="lead[tel]" value="0600000000">
	<input name="lead[adresse]" value="12B Rue de la Paix">
	<input name="lead[ville]" value="Paris">
	<input name="lead[codepostal]" value="75002">
	<textarea name="lead[commentaire]">Appeler le matin</textarea>

	<input type="hidden" name="lead[lead_attributs_dynamiques_attributes][0][id]" value="71">
	<input type="hidden" name="lead[lead_attributs_dynamiques_attributes][0][label]" value="Type de pose">
	<input type="hidden" name="lead[lead_attributs_dynamiques_attributes][0][values]" value="[{'value': 'Surimposition', 'selected': true}, {'value': 'Intégration', 'selected': false}]">

	<input type="hidden" name="lead[lead_attributs_dynamiques_attributes][1][label]" value="Puissance de l'installation photovoltaïque en kW">
	<input type="hidden" name="lead[lead_attributs_dynamiques_attributes][1][values]" value="6">

	<input type="hidden" name="lead[lead_attributs_dynamiques_attributes][2][label]" value="  Type   de projets ">
	<input type="hidden" name="lead[lead_attributs_dynamiques_attributes][2][values]" value="[{'value': ' Photovoltaïque ', 'selected': '1'}]">
</form>

<div class="documents">
	<a href="/rails/active_storage/blobs/redirect/abc/devis%20sign%C3%A9.pdf">Devis</a>
	<a href="/rails/active_storage/blobs/redirect/def/plan.pdf" title="Plan"><img src="/rails/active_storage/representations/def/plan.png"></a>
	<a href="/rails/active_storage/blobs/redirect/abc/devis%20sign%C3%A9.pdf">Devis (copie)</a>
	<a href="/rails/active_storage/blobs/redirect/ghi/broken.pdf">Cassé</a>
	<a href="/leads/123456/notes">Notes</a>
</div>
</body></html>`

// fakePortal mimics the parts of the portal the scraper talks to, attachments redirect
// to a separate storage server like active storage does.
type fakePortal struct {
	server  *httptest.Server
	storage *httptest.Server

	logins     atomic.Int64
	loginDelay time.Duration
}

func newFakePortal(t *testing.T) *fakePortal {
	p := &fakePortal{}

	p.storage = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/blob/abc":
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, "%PDF-devis")
		case "/blob/def":
			// no content type at all
			w.Header()["Content-Type"] = nil
			fmt.Fprint(w, "plan")
		default:
			http.Error(w, "gone", http.StatusInternalServerError)
		}
	}))
	t.Cleanup(p.storage.Close)

	mux := http.NewServeMux()
	mux.HandleFunc("/users/sign_in", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, loginPage)
			return
		}

		p.logins.Add(1)
		time.Sleep(p.loginDelay)

		err := r.ParseForm()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		ok := r.PostForm.Get("authenticity_token") == testToken &&
			r.PostForm.Get("user[login]") == testEmail &&
			r.PostForm.Get("user[email]") == testEmail &&
			r.PostForm.Get("user[password]") == testPassword &&
			r.PostForm.Get("user[remember_me]") == "0" &&
			r.PostForm.Get("q") == "" &&
			r.Header.Get("Origin") == p.server.URL
		if !ok {
			http.Redirect(w, r, "/users/sign_in", http.StatusFound)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: testCookie, Value: "ok", Path: "/"})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})
	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>tableau de bord</body></html>")
	})
	mux.HandleFunc("/leads/", func(w http.ResponseWriter, r *http.Request) {
		if !p.authenticated(r) {
			http.Redirect(w, r, "/users/sign_in", http.StatusFound)
			return
		}
		if r.URL.Path == "/leads/500000/edit" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		if r.URL.Path != "/leads/123456/edit" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, leadPage)
	})
	mux.HandleFunc("/rails/active_storage/blobs/redirect/", func(w http.ResponseWriter, r *http.Request) {
		if !p.authenticated(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		key := strings.Split(strings.TrimPrefix(r.URL.Path, "/rails/active_storage/blobs/redirect/"), "/")[0]
		http.Redirect(w, r, p.storage.URL+"/blob/"+key, http.StatusFound)
	})

	p.server = httptest.NewServer(mux)
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakePortal) authenticated(r *http.Request) bool {
	cookie, err := r.Cookie(testCookie)
	return err == nil && cookie.Value == "ok"
}

type testEnv struct {
	portal  *fakePortal
	clock   *testutil.Clock
	tel     *testutil.Telemetry
	session *Session
}

func newTestEnv(t *testing.T, creds Credentials) testEnv {
	portal := newFakePortal(t)
	clock := testutil.NewClock(time.Date(2024, time.May, 2, 9, 0, 0, 0, time.UTC))
	tel := testutil.NewTelemetry(t)

	session, err := NewSession(SessionOptions{
		BaseUrl:     portal.server.URL,
		Credentials: creds,
		Timeout:     time.Second * 5,
	}, clock, tel)
	require.NoError(t, err)

	return testEnv{
		portal:  portal,
		clock:   clock,
		tel:     tel,
		session: session,
	}
}

func validCredentials() Credentials {
	return Credentials{Identifier: testEmail, Secret: testPassword}
}
