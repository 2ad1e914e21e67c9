package config

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToCookie(t *testing.T) {
	tests := []struct {
		name     string
		template CookieTemplate
		value    string
		want     *http.Cookie
	}{
		{
			name: "defaults",
			template: CookieTemplate{
				Name: "foo",
			},
			want: &http.Cookie{
				Name:     "foo",
				MaxAge:   0,
				Path:     "",
				Domain:   "",
				Secure:   false,
				SameSite: 0,
				HttpOnly: false,
			},
		}, {
			name: "credential",
			template: CookieTemplate{
				Name:     "__Host-Http-Session",
				Path:     "/",
				Secure:   true,
				SameSite: CookieSameSiteLax,
				HTTPOnly: true,
			},
			value: "credential-value",
			want: &http.Cookie{
				Name:     "__Host-Http-Session",
				Value:    "credential-value",
				MaxAge:   0,
				Path:     "/",
				Domain:   "",
				Secure:   true,
				SameSite: http.SameSiteLaxMode,
				HttpOnly: true,
			},
		}, {
			name: "role hint",
			template: CookieTemplate{
				Name:     "role",
				Path:     "/",
				Secure:   true,
				SameSite: CookieSameSiteStrict,
			},
			value: "doctor",
			want: &http.Cookie{
				Name:     "role",
				Value:    "doctor",
				MaxAge:   0,
				Path:     "/",
				Domain:   "",
				Secure:   true,
				SameSite: http.SameSiteStrictMode,
				HttpOnly: false,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.template.ToCookie(tt.value)
			t.Logf("Got cookie: %+v", c)
			assert.Equal(t, tt.want.Name, c.Name)
			assert.Equal(t, tt.want.Value, c.Value)
			assert.Equal(t, tt.want.MaxAge, c.MaxAge)
			assert.Equal(t, tt.want.Path, c.Path)
			assert.Equal(t, tt.want.Domain, c.Domain)
			assert.Equal(t, tt.want.Secure, c.Secure)
			assert.Equal(t, tt.want.SameSite, c.SameSite)
			assert.Equal(t, tt.want.HttpOnly, c.HttpOnly)
		})
	}
}

func TestToClearingCookie(t *testing.T) {
	template := CookieTemplate{
		Name:     "__Host-Http-Session",
		Path:     "/",
		Secure:   true,
		SameSite: CookieSameSiteLax,
		HTTPOnly: true,
	}

	c := template.ToClearingCookie()

	assert.Equal(t, "__Host-Http-Session", c.Name)
	assert.Empty(t, c.Value)
	assert.Equal(t, -1, c.MaxAge)
	assert.Equal(t, "/", c.Path)
	assert.True(t, c.Secure)

	// A second call yields the same clearing instructions.
	assert.Equal(t, c, template.ToClearingCookie())
}
