package update

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sentryhub/capturectl/internal/apperrors"
	"github.com/sentryhub/capturectl/internal/config"
	"github.com/sentryhub/capturectl/internal/logging"
)

// Manager wires the release checker, version comparer, downloader,
// verifier, applier, and health gate into a single check-and-apply flow.
type Manager struct {
	cfg      config.UpdateConfig
	checker  *ReleaseChecker
	versions *VersionComparer
	download *AssetDownloader
	verifier *SignatureVerifier
	applier  *Applier
	health   *HealthGate
	logger   *logging.Logger
}

// NewManager constructs a Manager from cfg. cfg.PublicKeyHex must decode
// to a valid Ed25519 public key.
func NewManager(cfg config.UpdateConfig, logger *logging.Logger) (*Manager, error) {
	verifier, err := NewSignatureVerifier(cfg.PublicKeyHex)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:      cfg,
		checker:  NewReleaseChecker(defaultHTTPTimeout, ""),
		versions: NewVersionComparer(),
		download: NewAssetDownloader(defaultHTTPTimeout, logger),
		verifier: verifier,
		applier:  NewApplier(cfg.InstallDir, cfg.BinaryName),
		health:   NewHealthGate(defaultHTTPTimeout, defaultHealthRetries, defaultHealthDelay, logger),
		logger:   logger,
	}, nil
}

// CheckAndApply fetches the latest release, and if it's newer than
// cfg.CurrentVersion, downloads the binary asset, verifies its signature
// asset, applies it under strategy, and awaits the health gate. It
// returns (false, nil) when already up to date.
func (m *Manager) CheckAndApply(ctx context.Context, strategy Strategy) (applied bool, err error) {
	const op = "Manager.CheckAndApply"

	release, err := m.checker.Latest(ctx, m.cfg.Repository)
	if err != nil {
		return false, err
	}
	if release.Prerelease {
		m.logger.WithField("tag", release.TagName).Info("latest release is a prerelease")
	}
	if !m.versions.IsNewer(m.cfg.CurrentVersion, release.TagName) {
		return false, nil
	}

	binaryAsset, sigAsset, err := findAssets(release.Assets, m.cfg.BinaryName)
	if err != nil {
		return false, err
	}

	tmpDir := filepath.Join(m.cfg.InstallDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return false, apperrors.Storage(op, "failed to create download staging directory", err)
	}
	binaryPath := filepath.Join(tmpDir, binaryAsset.Name)
	sigPath := filepath.Join(tmpDir, sigAsset.Name)

	if _, err := m.download.Download(ctx, binaryAsset, binaryPath); err != nil {
		return false, err
	}
	if _, err := m.download.Download(ctx, sigAsset, sigPath); err != nil {
		return false, err
	}

	data, err := readSignedPair(binaryPath, sigPath)
	if err != nil {
		return false, err
	}
	if err := m.verifier.Verify(data.binary, data.signatureHex); err != nil {
		return false, err
	}

	if _, err := m.applier.Apply(strategy, binaryPath, release.TagName); err != nil {
		return false, err
	}

	if err := m.health.Await(ctx, m.cfg.HealthURL, release.TagName); err != nil {
		return false, apperrors.External(op, "new version failed health gate", err)
	}
	return true, nil
}

// findAssets locates the binary and its detached signature (binaryName
// plus a ".sig" suffix) among release assets.
func findAssets(assets []ReleaseAsset, binaryName string) (binary, signature ReleaseAsset, err error) {
	const op = "Manager.findAssets"

	var foundBinary, foundSig bool
	for _, asset := range assets {
		switch asset.Name {
		case binaryName:
			binary, foundBinary = asset, true
		case binaryName + ".sig":
			signature, foundSig = asset, true
		}
	}
	if !foundBinary || !foundSig {
		return ReleaseAsset{}, ReleaseAsset{}, apperrors.Validation(op, fmt.Sprintf("release is missing %q or its .sig asset", binaryName))
	}
	return binary, signature, nil
}
