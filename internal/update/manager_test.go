package update

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/logging"
)

func TestManager_CheckAndApplyInstallsAndHealthChecksNewerRelease(t *testing.T) {
	binaryBody := []byte("new capturectl binary")
	digest := sha256.Sum256(binaryBody)

	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	signature := hex.EncodeToString(ed25519.Sign(priv, digest[:]))

	var releaseURL, healthURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/capturectl/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"tag_name":"v1.3.0","draft":false,"prerelease":false,"assets":[
			{"name":"capturectl","size":%d,"browser_download_url":"%s/assets/capturectl"},
			{"name":"capturectl.sig","size":%d,"browser_download_url":"%s/assets/capturectl.sig"}
		]}`, len(binaryBody), releaseURL, len(signature), releaseURL)
	})
	mux.HandleFunc("/assets/capturectl", func(w http.ResponseWriter, r *http.Request) {
		w.Write(binaryBody)
	})
	mux.HandleFunc("/assets/capturectl.sig", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(signature))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"version":"v1.3.0"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	releaseURL = srv.URL
	healthURL = srv.URL + "/healthz"

	cfg := config.UpdateConfig{
		Repository:     "acme/capturectl",
		CurrentVersion: "v1.2.0",
		PublicKeyHex:   hex.EncodeToString(pub),
		HealthURL:      healthURL,
		BinaryName:     "capturectl",
		InstallDir:     t.TempDir(),
	}

	mgr, err := NewManager(cfg, logging.GetLogger("update-test"))
	require.NoError(t, err)
	mgr.checker = NewReleaseChecker(defaultHTTPTimeout, srv.URL)
	mgr.health = NewHealthGate(defaultHTTPTimeout, 1, 0, logging.GetLogger("update-test"))

	applied, err := mgr.CheckAndApply(context.Background(), StrategyInPlace)
	require.NoError(t, err)
	assert.True(t, applied)
}

func TestManager_CheckAndApplyReportsAlreadyUpToDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name":"v1.2.0","draft":false,"prerelease":false}`)
	}))
	defer srv.Close()

	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	cfg := config.UpdateConfig{
		Repository:     "acme/capturectl",
		CurrentVersion: "v1.2.0",
		PublicKeyHex:   hex.EncodeToString(pub),
		BinaryName:     "capturectl",
		InstallDir:     t.TempDir(),
	}

	mgr, err := NewManager(cfg, logging.GetLogger("update-test"))
	require.NoError(t, err)
	mgr.checker = NewReleaseChecker(defaultHTTPTimeout, srv.URL)

	applied, err := mgr.CheckAndApply(context.Background(), StrategyInPlace)
	require.NoError(t, err)
	assert.False(t, applied)
}
