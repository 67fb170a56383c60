package report

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"

	"raizes/internal/domain"
)

// Assets are the bundled, read-only inputs of a render.
type Assets struct {
	Watermark     []byte
	WatermarkType string // "PNG" or "JPG"
	FontRegular   []byte
	FontBold      []byte
}

// HasFonts reports whether an embedded font pair is available.
func (a *Assets) HasFonts() bool {
	return len(a.FontRegular) > 0 && len(a.FontBold) > 0
}

// AssetStore loads assets on first use and keeps them in memory. Failed loads
// are not cached, so fixing the deployment heals the next render.
type AssetStore struct {
	WatermarkPath   string
	FontRegularPath string
	FontBoldPath    string

	mu     sync.Mutex
	loaded *Assets
}

// NewAssetStore resolves relative asset names against dir.
func NewAssetStore(dir, watermark, fontRegular, fontBold string) *AssetStore {
	join := func(name string) string {
		if name == "" || filepath.IsAbs(name) {
			return name
		}
		return filepath.Join(dir, name)
	}
	return &AssetStore{
		WatermarkPath:   join(watermark),
		FontRegularPath: join(fontRegular),
		FontBoldPath:    join(fontBold),
	}
}

// ResolveAssetsDir picks the configured directory, then the XDG data dirs
// (raizes/assets), then ./assets.
func ResolveAssetsDir(configured, watermark string) string {
	if configured != "" {
		return configured
	}
	if p, err := xdg.SearchDataFile(filepath.Join("raizes", "assets", watermark)); err == nil {
		return filepath.Dir(p)
	}
	return "assets"
}

// Load returns the cached assets, reading them from disk the first time.
func (s *AssetStore) Load() (*Assets, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded != nil {
		return s.loaded, nil
	}

	a := &Assets{}
	var err error
	if a.Watermark, err = readAsset(s.WatermarkPath); err != nil {
		return nil, err
	}
	if a.WatermarkType, err = imageType(s.WatermarkPath, a.Watermark); err != nil {
		return nil, err
	}
	if s.FontRegularPath != "" || s.FontBoldPath != "" {
		if a.FontRegular, err = readAsset(s.FontRegularPath); err != nil {
			return nil, err
		}
		if a.FontBold, err = readAsset(s.FontBoldPath); err != nil {
			return nil, err
		}
	}

	s.loaded = a
	return a, nil
}

func readAsset(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path not configured", domain.ErrAssetMissing)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAssetMissing, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrAssetMissing, path)
	}
	return data, nil
}

func imageType(path string, data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrAssetMissing, path, err)
	}
	switch strings.ToLower(format) {
	case "png":
		return "PNG", nil
	case "jpeg":
		return "JPG", nil
	}
	return "", fmt.Errorf("%w: %s: unsupported image format %q", domain.ErrAssetMissing, path, format)
}
