package webui

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"runsettings/internal/session"
)

const (
	SessionCookieName = "runsettings_session"
	hexDigits         = "0123456789ABCDEF"
)

// ModelCookie reads and writes the persisted model selection.
type ModelCookie struct {
	Name   string
	MaxAge time.Duration
}

// Read returns the decoded cookie value, or "" when it is absent or malformed.
func (m ModelCookie) Read(r *http.Request) string {
	cookie, err := r.Cookie(m.Name)
	if err != nil {
		return ""
	}
	value, err := url.PathUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

// Cookie builds the Set-Cookie value for id. Secure is set only when the
// request arrived over TLS, directly or through a proxy.
func (m ModelCookie) Cookie(r *http.Request, id string) *http.Cookie {
	return &http.Cookie{
		Name:     m.Name,
		Value:    encodeCookieValue(id),
		Path:     "/",
		MaxAge:   int(m.MaxAge / time.Second),
		Expires:  time.Now().Add(m.MaxAge),
		SameSite: http.SameSiteStrictMode,
		Secure:   isSecure(r),
	}
}

// FlushPending writes the session's pending selection, if any, into h.
func (m ModelCookie) FlushPending(h http.Header, r *http.Request, s *session.Session) {
	if id, pending := s.TakePendingModel(); pending {
		if cookie := m.Cookie(r, id); cookie.Valid() == nil {
			h.Add("Set-Cookie", cookie.String())
		}
	}
}

func isSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

// encodeCookieValue percent-encodes like encodeURIComponent but leaves the
// punctuation browsers accept in cookie values, so ids such as
// "anthropic/claude-sonnet-4" stay readable.
func encodeCookieValue(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		c := value[i]
		if cookieSafe(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0x0F])
	}
	return b.String()
}

func cookieSafe(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()#$&+/:<=>?@[]^`{|}", c) >= 0
}

func sessionCookie(r *http.Request, id string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   isSecure(r),
	}
}

// cookieWriter emits pending Set-Cookie headers right before the first byte
// of the response is written.
type cookieWriter struct {
	gin.ResponseWriter
	flush func()
}

func (w *cookieWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *cookieWriter) Write(data []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(data)
}

func (w *cookieWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}
