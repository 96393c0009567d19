package handlers

import (
	"crypto/subtle"
	"net/http"
)

// Authorizer decides whether a request may read the display API
type Authorizer interface {
	IsAuthorized(r *http.Request) bool

	// Challenge adds the headers telling the client how to authenticate.
	Challenge(w http.ResponseWriter)
}

// AllowAll is the disabled credential check
type AllowAll struct{}

// IsAuthorized always returns true
func (AllowAll) IsAuthorized(*http.Request) bool { return true }

// Challenge does nothing
func (AllowAll) Challenge(http.ResponseWriter) {}

// BasicAuth checks HTTP basic credentials
type BasicAuth struct {
	Username string
	Password string
	Realm    string
}

// IsAuthorized compares the request credentials in constant time
func (a BasicAuth) IsAuthorized(r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) == 1
	return userMatch && passMatch
}

// Challenge asks the client for basic credentials
func (a BasicAuth) Challenge(w http.ResponseWriter) {
	realm := a.Realm
	if realm == "" {
		realm = "webdisplay"
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
}
