package imagegen

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testClientEmail = "imagegen@quiz-project.iam.gserviceaccount.com"

type keyFile struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri,omitempty"`
}

// writeKeyFile writes a service account key for a fresh RSA key and
// returns its path.
func writeKeyFile(t *testing.T, tokenURI string, edit func(*keyFile)) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	kf := keyFile{
		Type:         "service_account",
		ProjectID:    "quiz-project",
		PrivateKeyID: "key-1",
		PrivateKey:   string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		ClientEmail:  testClientEmail,
		TokenURI:     tokenURI,
	}
	if edit != nil {
		edit(&kf)
	}
	data, err := json.Marshal(kf)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path, key
}

func TestGoogleTokenSource_ExchangesAndCaches(t *testing.T) {
	var key *rsa.PrivateKey
	var hits atomic.Int32
	var gotGrant string
	var claims jwt.MapClaims

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.NoError(t, r.ParseForm())
		gotGrant = r.PostForm.Get("grant_type")

		tok, err := jwt.Parse(r.PostForm.Get("assertion"), func(tok *jwt.Token) (any, error) {
			return &key.PublicKey, nil
		}, jwt.WithValidMethods([]string{"RS256"}))
		if assert.NoError(t, err) {
			claims = tok.Claims.(jwt.MapClaims)
			assert.Equal(t, "key-1", tok.Header["kid"])
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"access_token": "ya29.test", "expires_in": 3599, "token_type": "Bearer"})
	}))
	defer srv.Close()

	path, k := writeKeyFile(t, srv.URL, nil)
	key = k
	ts, err := NewGoogleTokenSource(path, srv.Client())
	require.NoError(t, err)

	for range 2 {
		token, err := ts.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ya29.test", token)
	}
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", gotGrant)

	require.NotNil(t, claims)
	assert.Equal(t, testClientEmail, claims["iss"])
	assert.Equal(t, srv.URL, claims["aud"])
	assert.Equal(t, cloudPlatformScope, claims["scope"])

	project, err := ts.ProjectID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "quiz-project", project)
}

func TestGoogleTokenSource_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid JWT Signature."}`))
	}))
	defer srv.Close()

	path, _ := writeKeyFile(t, srv.URL, nil)
	ts, err := NewGoogleTokenSource(path, srv.Client())
	require.NoError(t, err)

	_, err = ts.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestGoogleTokenSource_BadKeyFailsAtToken(t *testing.T) {
	path, _ := writeKeyFile(t, "http://127.0.0.1:0/token", func(kf *keyFile) {
		kf.PrivateKey = "not a key"
	})
	ts, err := NewGoogleTokenSource(path, nil)
	require.NoError(t, err)

	_, err = ts.Token(context.Background())
	assert.Error(t, err)
}

func TestNewGoogleTokenSource_BadFile(t *testing.T) {
	_, err := NewGoogleTokenSource(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)

	path, _ := writeKeyFile(t, "", func(kf *keyFile) { kf.Type = "mystery_account" })
	_, err = NewGoogleTokenSource(path, nil)
	assert.Error(t, err)
}

func TestNewImagenServiceFromConfig_ProjectFromKeyFile(t *testing.T) {
	path, _ := writeKeyFile(t, "", nil)

	cfg := DefaultConfig().Imagen
	cfg.CredentialsFile = path
	svc, err := NewImagenServiceFromConfig(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "quiz-project", svc.projectID)
	assert.IsType(t, &GoogleTokenSource{}, svc.tokens)
	assert.Contains(t, svc.endpoint("m"), "https://us-central1-aiplatform.googleapis.com/v1/projects/quiz-project/")
}

func TestNewImagenServiceFromConfig_AccessToken(t *testing.T) {
	stub := &imagenStub{responses: map[string]struct {
		status int
		body   string
	}{}}
	srv := httptest.NewServer(http.HandlerFunc(stub.handle))
	defer srv.Close()
	stub.set("primary", http.StatusOK, `{"predictions":[{"bytesBase64Encoded":"aW1n"}]}`)

	cfg := ImagenConfig{
		AccessToken:     "ya29.fixed",
		CredentialsFile: "/does/not/exist.json",
		ProjectID:       "quiz-project",
		Model:           "primary",
		BaseURL:         srv.URL,
	}
	svc, err := NewImagenServiceFromConfig(context.Background(), cfg, srv.Client(), nil)
	require.NoError(t, err)

	res := svc.GenerateImage(context.Background(), "p", KindQuestion)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Bearer ya29.fixed", stub.lastAuth)
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = StaticToken("").Token(context.Background())
	assert.Error(t, err)
}
