package transport

import (
	"net/http"
	neturl "net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileJar_Persistence(t *testing.T) {
	location := filepath.Join(t.TempDir(), "cookies", "jar.json")
	origin, _ := neturl.Parse("https://example.com/")

	first, err := NewFileJar(location)
	require.NoError(t, err)
	first.SetCookies(origin, []*http.Cookie{
		{Name: "AMP_TOKEN", Value: "token-1", Path: "/", Expires: time.Now().Add(time.Hour), Secure: true},
		{Name: "stale", Value: "x", Path: "/", Expires: time.Now().Add(-time.Hour)},
	})
	assert.Equal(t, map[string]string{"AMP_TOKEN": "token-1"}, cookieValues(first.Cookies(origin)))

	second, err := NewFileJar(location)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"AMP_TOKEN": "token-1"}, cookieValues(second.Cookies(origin)))

	// a write through one instance is visible to the other on its next read
	first.SetCookies(origin, []*http.Cookie{{Name: "AMP_TOKEN", Value: "$RETRIEVING", Path: "/", Expires: time.Now().Add(time.Minute), Secure: true}})
	assert.Equal(t, map[string]string{"AMP_TOKEN": "$RETRIEVING"}, cookieValues(second.Cookies(origin)))

	second.SetCookies(origin, []*http.Cookie{{Name: "AMP_TOKEN", Value: "gone", Path: "/", MaxAge: -1}})
	assert.Empty(t, first.Cookies(origin))
}

func TestFileJar_HostOnly(t *testing.T) {
	location := filepath.Join(t.TempDir(), "jar.json")
	origin, _ := neturl.Parse("http://localhost:8080/page")
	other, _ := neturl.Parse("http://sub.localhost:8080/")

	jar, err := NewFileJar(location)
	require.NoError(t, err)
	jar.SetCookies(origin, []*http.Cookie{{Name: "sid", Value: "1"}})

	reloaded, err := NewFileJar(location)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"sid": "1"}, cookieValues(reloaded.Cookies(origin)))
	assert.Empty(t, reloaded.Cookies(other))
}

func cookieValues(cookies []*http.Cookie) map[string]string {
	ret := map[string]string{}
	for _, c := range cookies {
		ret[c.Name] = c.Value
	}
	return ret
}
