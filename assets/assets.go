// Package assets loads the images a CV refers to: the profile photo and company logos.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "golang.org/x/image/webp"
)

// ErrNotLocal is returned for references that do not denote a locally hosted image.
var ErrNotLocal = errors.New("assets: not a locally hosted image path")

// ErrBlockedAddress is returned when a remote image resolves to a loopback, private or
// link-local address.
var ErrBlockedAddress = errors.New("assets: refusing to fetch from a non-public address")

const defaultMaxBytes = 8 << 20

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// IsLocalImage reports whether ref is a site-relative image path such as
// "/logos/acme.png". Emoji and other glyph placeholders are not.
func IsLocalImage(ref string) bool {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "//") {
		return false
	}
	return imageExts[strings.ToLower(path.Ext(ref))]
}

// Fetcher retrieves and decodes an image.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (image.Image, error)
}

// Loader fetches http(s) URLs over the network and everything else from BaseDir.
type Loader struct {
	BaseDir  string
	Client   *http.Client
	MaxBytes int64
}

// LoaderOption configures NewLoader.
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	allowPrivate bool
}

// AllowPrivateNetworks lets remote fetches reach loopback, private and link-local
// addresses. Only for trusted callers such as the CLI.
func AllowPrivateNetworks(allow bool) LoaderOption {
	return func(c *loaderConfig) { c.allowPrivate = allow }
}

// NewLoader returns a Loader rooted at baseDir whose HTTP requests time out after timeout.
// Remote fetches only connect to public addresses unless AllowPrivateNetworks is set.
func NewLoader(baseDir string, timeout time.Duration, opts ...LoaderOption) *Loader {
	var cfg loaderConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	dialer := &net.Dialer{Timeout: timeout}
	if !cfg.allowPrivate {
		dialer.Control = publicOnly
	}
	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: timeout,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Loader{
		BaseDir:  baseDir,
		Client:   &http.Client{Timeout: timeout, Transport: transport},
		MaxBytes: defaultMaxBytes,
	}
}

// publicOnly runs after name resolution, so it sees the address actually dialed,
// including after redirects.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !IsPublicAddr(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	return nil
}

// IsPublicAddr reports whether addr is a globally routable unicast address.
func IsPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsValid() &&
		addr.IsGlobalUnicast() &&
		!addr.IsPrivate() &&
		!addr.IsLoopback() &&
		!addr.IsLinkLocalUnicast() &&
		!sharedAddressSpace.Contains(addr)
}

// 100.64.0.0/10 (carrier-grade NAT) is not covered by netip's IsPrivate.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Fetch implements Fetcher.
func (l *Loader) Fetch(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("assets: empty image reference")
	}
	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return l.fetchRemote(ctx, u.String())
	}
	return l.Open(ref)
}

func (l *Loader) fetchRemote(ctx context.Context, u string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("assets: build request for %s: %w", u, err)
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assets: fetch %s: %w", u, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assets: fetch %s: unexpected status %s", u, resp.Status)
	}
	return l.decode(u, resp.Body)
}

// Open decodes an image below BaseDir. A leading "/" is taken relative to BaseDir.
func (l *Loader) Open(ref string) (image.Image, error) {
	p, err := l.Resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("assets: open %s: %w", ref, err)
	}
	defer f.Close()
	return l.decode(ref, f)
}

// Resolve maps ref to a file path inside BaseDir, refusing paths that escape it.
func (l *Loader) Resolve(ref string) (string, error) {
	if l.BaseDir == "" {
		return "", fmt.Errorf("assets: no assets directory configured for %s", ref)
	}
	clean := path.Clean("/" + strings.TrimSpace(ref))
	return filepath.Join(l.BaseDir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (l *Loader) decode(name string, r io.Reader) (image.Image, error) {
	limit := l.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	img, _, err := image.Decode(io.LimitReader(r, limit))
	if err != nil {
		return nil, fmt.Errorf("assets: decode %s: %w", name, err)
	}
	return img, nil
}

// CheckLocal returns ErrNotLocal unless ref satisfies IsLocalImage.
func CheckLocal(ref string) error {
	if !IsLocalImage(ref) {
		return fmt.Errorf("%w: %q", ErrNotLocal, ref)
	}
	return nil
}
