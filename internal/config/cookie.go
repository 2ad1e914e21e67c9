package config

import "net/http"

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "none"
	CookieSameSiteLax    CookieSameSite = "lax"
	CookieSameSiteStrict CookieSameSite = "strict"
)

// CookieTemplate describes the fixed attributes of one of the cookies the
// service issues; the value and max-age are filled in per request.
type CookieTemplate struct {
	Name     string         `yaml:"name"`
	MaxAge   int            `yaml:"maxAge"`
	Path     string         `yaml:"path" default:"/"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure" default:"true"`
	HTTPOnly bool           `yaml:"httpOnly"`
	SameSite CookieSameSite `yaml:"sameSite" default:"lax"`
}

func (ct *CookieTemplate) ToCookie(value string) *http.Cookie {
	var sameSite http.SameSite
	switch ct.SameSite {
	case CookieSameSiteNone:
		sameSite = http.SameSiteNoneMode
	case CookieSameSiteLax:
		sameSite = http.SameSiteLaxMode
	case CookieSameSiteStrict:
		sameSite = http.SameSiteStrictMode
	}

	return &http.Cookie{
		Name:     ct.Name,
		Value:    value,
		MaxAge:   ct.MaxAge,
		Path:     ct.Path,
		Domain:   ct.Domain,
		Secure:   ct.Secure,
		HttpOnly: ct.HTTPOnly,
		SameSite: sameSite,
	}
}

// ToClearingCookie returns a cookie that instructs the client to drop
// whatever value it currently holds under this template's name.
func (ct *CookieTemplate) ToClearingCookie() *http.Cookie {
	c := ct.ToCookie("")
	c.MaxAge = -1

	return c
}
