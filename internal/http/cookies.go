package httpx

import (
	"net/http"
	"time"
)

// cookieSpec describes an HttpOnly cookie set by the auth and admin handlers.
type cookieSpec struct {
	Name   string
	Value  string
	Domain string
	MaxAge time.Duration
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || isForwardedHTTPS(r)
}

func setHTTPOnlyCookie(w http.ResponseWriter, r *http.Request, c cookieSpec) {
	maxAge := int(c.MaxAge.Seconds())
	if maxAge <= 0 {
		// A zero MaxAge would turn this into a browser-session cookie.
		maxAge = -1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// clearHTTPOnlyCookie expires a cookie, mirroring the attributes used to set it
// so browsers match and delete it.
func clearHTTPOnlyCookie(w http.ResponseWriter, r *http.Request, name, domain string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}
