package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// fakeProvider serves discovery, keys and a token endpoint that answers
// the code "good-code" with an ID token carrying claims.
func fakeProvider(t *testing.T, clientID string, claims map[string]any) *httptest.Server {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                srv.URL,
			"authorization_endpoint":                srv.URL + "/authorize",
			"token_endpoint":                        srv.URL + "/token",
			"jwks_uri":                              srv.URL + "/keys",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test",
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		now := time.Now()
		c := jwt.MapClaims{
			"iss": srv.URL,
			"aud": clientID,
			"sub": "user-42",
			"iat": now.Unix(),
			"exp": now.Add(5 * time.Minute).Unix(),
		}
		for k, v := range claims {
			c[k] = v
		}
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
		tok.Header["kid"] = "test"
		signed, err := tok.SignedString(key)
		if err != nil {
			t.Errorf("sign id token: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   300,
			"id_token":     signed,
		})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestSSO(t *testing.T, claims map[string]any) *SSO {
	t.Helper()
	provider := fakeProvider(t, "lifequest", claims)
	sso, err := NewSSO(context.Background(), OIDCConfig{
		Issuer:      provider.URL,
		ClientID:    "lifequest",
		RedirectURL: "http://localhost/auth/sso/callback",
	})
	if err != nil {
		t.Fatalf("new sso: %v", err)
	}
	return sso
}

func TestSSOExchange(t *testing.T) {
	sso := newTestSSO(t, map[string]any{"email": "Me@Example.com", "email_verified": true})

	email, err := sso.Exchange(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if email != "me@example.com" {
		t.Errorf("email = %q, want me@example.com", email)
	}

	if _, err := sso.Exchange(context.Background(), "bad-code"); err == nil {
		t.Error("expected error for rejected code")
	}
}

func TestSSOExchangeUnverifiedEmail(t *testing.T) {
	sso := newTestSSO(t, map[string]any{"email": "me@example.com", "email_verified": false})

	if _, err := sso.Exchange(context.Background(), "good-code"); !errors.Is(err, ErrEmailUnverified) {
		t.Errorf("err = %v, want ErrEmailUnverified", err)
	}
}

func TestSSOExchangeMissingEmail(t *testing.T) {
	sso := newTestSSO(t, nil)

	if _, err := sso.Exchange(context.Background(), "good-code"); err == nil {
		t.Error("expected error without email claim")
	}
}

func TestSSOAuthCodeURL(t *testing.T) {
	sso := newTestSSO(t, nil)

	u, err := url.Parse(sso.AuthCodeURL("xyz"))
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	q := u.Query()
	if q.Get("state") != "xyz" {
		t.Errorf("state = %q, want xyz", q.Get("state"))
	}
	if q.Get("client_id") != "lifequest" {
		t.Errorf("client_id = %q, want lifequest", q.Get("client_id"))
	}
	if q.Get("scope") != "openid email" {
		t.Errorf("scope = %q, want %q", q.Get("scope"), "openid email")
	}
}

func TestNewStateIsRandom(t *testing.T) {
	a, err := NewState()
	if err != nil {
		t.Fatalf("new state: %v", err)
	}
	b, _ := NewState()
	if a == b || a == "" {
		t.Errorf("states %q and %q should differ", a, b)
	}
}
