package httpx

import "net/http"

// SessionCookie builds an httponly, SameSite=Strict cookie for the short
// lived ceremony/session identifiers. Every secret-bearing cookie in this
// service uses these attributes; only name, value, lifetime, path and the
// secure flag vary.
func SessionCookie(name, value, path string, maxAge int, secure bool) *http.Cookie {
	if path == "" {
		path = "/"
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// DeleteCookie expires the named cookie immediately.
func DeleteCookie(w http.ResponseWriter, name, path string, secure bool) {
	c := SessionCookie(name, "", path, -1, secure)
	http.SetCookie(w, c)
}
