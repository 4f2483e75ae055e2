package handler

import (
	"net/http"
	"time"
)

// EmailCookieName is the cookie remembering the visitor's Notion email across
// gated subdomains.
const EmailCookieName = "notion_email"

const emailCookieTTL = 5 * 365 * 24 * time.Hour

// setEmailCookie stores the visitor's email scoped to the parent domain so
// every gated subdomain sees it.
func setEmailCookie(w http.ResponseWriter, cookieDomain, email string) {
	http.SetCookie(w, &http.Cookie{
		Name:     EmailCookieName,
		Value:    email,
		Domain:   cookieDomain,
		Path:     "/",
		Expires:  time.Now().Add(emailCookieTTL),
		Secure:   true,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
}

// readEmailCookie returns the remembered email, or "" when absent
func readEmailCookie(r *http.Request) string {
	c, err := r.Cookie(EmailCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
