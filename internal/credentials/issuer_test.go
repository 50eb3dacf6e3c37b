package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kccFor(t *testing.T, did string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "did:dht:issuer",
		"sub": did,
		"vc": map[string]any{
			"type":              []any{"VerifiableCredential", "KnownCustomerCredential"},
			"credentialSubject": map[string]any{"id": did, "countryOfResidence": "US"},
		},
	})
	s, err := token.SignedString([]byte("test"))
	require.NoError(t, err)
	return s
}

func TestIssuer_Issue(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kcc", r.URL.Path)
		q := r.URL.Query()
		query = map[string]string{"name": q.Get("name"), "country": q.Get("country"), "did": q.Get("did")}
		_, _ = w.Write([]byte(kccFor(t, q.Get("did")) + "\n"))
	}))
	defer srv.Close()

	issuer := NewIssuer(srv.URL+"/", time.Second)
	cred, err := issuer.Issue(context.Background(), Subject{Name: "Alice Doe", Country: "us", DID: "did:key:zAlice"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"name": "Alice Doe", "country": "US", "did": "did:key:zAlice"}, query)
	assert.NoError(t, Satisfies([]string{cred}, kccDefinition()))
}

func TestIssuer_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		subject Subject
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { http.Error(w, "down", http.StatusBadGateway) },
			subject: Subject{Name: "A", Country: "US", DID: "did:key:zA"},
		},
		{
			name:    "not a jwt",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("hello")) },
			subject: Subject{Name: "A", Country: "US", DID: "did:key:zA"},
		},
		{
			name: "issued to someone else",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(kccFor(t, "did:key:zMallory")))
			},
			subject: Subject{Name: "A", Country: "US", DID: "did:key:zA"},
		},
		{
			name:    "bad country",
			handler: func(w http.ResponseWriter, r *http.Request) { t.Error("issuer should not be called") },
			subject: Subject{Name: "A", Country: "USA", DID: "did:key:zA"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewIssuer(srv.URL, time.Second).Issue(context.Background(), tt.subject)
			assert.ErrorIs(t, err, ErrIssuance)
		})
	}
}
