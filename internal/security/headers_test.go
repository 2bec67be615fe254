package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func serveHeaders(h Headers, req *http.Request) http.Header {
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr.Result().Header
}

func TestHeadersOverTLS(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "https://unitprice.example/api/v1/calculate", nil)
	req.TLS = &tls.ConnectionState{}

	headers := serveHeaders(Headers{Enable: true, EnableHSTS: true, HSTSIncludeSubdomains: true}, req)
	require.Equal(t, "nosniff", headers.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", headers.Get("X-Frame-Options"))
	require.Equal(t, "no-store", headers.Get("Cache-Control"))
	require.Contains(t, headers.Get("Permissions-Policy"), "geolocation=()")
	require.Equal(t, "max-age=31536000; includeSubDomains", headers.Get("Strict-Transport-Security"))
}

func TestHeadersHSTSRequiresSecureRequest(t *testing.T) {
	h := Headers{Enable: true, EnableHSTS: true, HSTSMaxAge: 600}

	plain := httptest.NewRequest(http.MethodGet, "http://unitprice.example/api/v1/units", nil)
	require.Empty(t, serveHeaders(h, plain).Get("Strict-Transport-Security"))

	proxied := httptest.NewRequest(http.MethodGet, "http://unitprice.example/api/v1/units", nil)
	proxied.Header.Set("X-Forwarded-Proto", "HTTPS")
	require.Empty(t, serveHeaders(h, proxied).Get("Strict-Transport-Security"))

	h.TrustForwardedProto = true
	require.Equal(t, "max-age=600", serveHeaders(h, proxied).Get("Strict-Transport-Security"))
}

func TestHeadersHandlerMayRelaxCaching(t *testing.T) {
	handler := Headers{Enable: true}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/units", nil))
	require.Equal(t, "public, max-age=300", rr.Header().Get("Cache-Control"))
}

func TestHeadersDisabled(t *testing.T) {
	headers := serveHeaders(Headers{Enable: false, EnableHSTS: true}, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Empty(t, headers.Get("X-Content-Type-Options"))
}
