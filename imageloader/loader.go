// Package imageloader fetches and decodes background images from data URIs,
// http(s) URLs and local files.
package imageloader

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedSource is returned for sources with an unknown scheme.
var ErrUnsupportedSource = errors.New("imageloader: unsupported source")

// Loader decodes the image at src. crossOrigin follows the HTML attribute:
// "anonymous" omits credentials, any other value sends them.
type Loader interface {
	Load(ctx context.Context, src, crossOrigin string) (image.Image, error)
}

type headerTransport struct {
	Transport http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "goripples (+https://github.com/richinsley/goripples)")
	return t.Transport.RoundTrip(req)
}

// Fetcher is the default Loader.
type Fetcher struct {
	// Client is used for anonymous requests; CredentialedClient, when set,
	// for requests that may carry cookies and auth.
	Client             *http.Client
	CredentialedClient *http.Client
	// CacheDir holds downloaded images; empty disables caching.
	CacheDir string
	// BaseDir resolves relative file paths.
	BaseDir string
}

// New creates a Fetcher. With useCache set, downloads are kept in the user
// cache directory.
func New(useCache bool) (*Fetcher, error) {
	f := &Fetcher{
		Client: &http.Client{Transport: &headerTransport{Transport: http.DefaultTransport}},
	}
	if useCache {
		dir, err := getCacheDir("images")
		if err != nil {
			return nil, err
		}
		f.CacheDir = dir
	}
	return f, nil
}

func (f *Fetcher) Load(ctx context.Context, src, crossOrigin string) (image.Image, error) {
	switch {
	case src == "":
		return nil, fmt.Errorf("%w: empty source", ErrUnsupportedSource)
	case strings.HasPrefix(src, "data:"):
		data, err := decodeDataURI(src)
		if err != nil {
			return nil, err
		}
		return decode(bytes.NewReader(data))
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		return f.loadHTTP(ctx, src, crossOrigin != "anonymous")
	case strings.HasPrefix(src, "file://"):
		u, err := url.Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", src, err)
		}
		return f.loadFile(u.Path)
	case strings.Contains(src, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, src)
	}
	return f.loadFile(src)
}

func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

func (f *Fetcher) loadFile(path string) (image.Image, error) {
	if !filepath.IsAbs(path) && f.BaseDir != "" {
		path = filepath.Join(f.BaseDir, path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer file.Close()
	return decode(file)
}

func (f *Fetcher) cachePath(src string) string {
	sum := sha256.Sum256([]byte(src))
	return filepath.Join(f.CacheDir, hex.EncodeToString(sum[:16]))
}

func (f *Fetcher) loadHTTP(ctx context.Context, src string, credentials bool) (image.Image, error) {
	if f.CacheDir != "" {
		if file, err := os.Open(f.cachePath(src)); err == nil {
			img, derr := decode(file)
			file.Close()
			if derr == nil {
				return img, nil
			}
			log.Printf("Warning: discarding unreadable cache entry for %s: %v", src, derr)
		}
	}

	client := f.Client
	if credentials && f.CredentialedClient != nil {
		client = f.CredentialedClient
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %s", src, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if f.CacheDir != "" {
		if err := os.WriteFile(f.cachePath(src), data, 0644); err != nil {
			log.Printf("Warning: could not cache %s: %v", src, err)
		}
	}
	return img, nil
}

// decodeDataURI returns the payload of data:[<mediatype>][;base64],<data>.
func decodeDataURI(src string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI: missing comma")
	}
	if strings.HasSuffix(header, ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 data URI: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("unescaping data URI: %w", err)
	}
	return []byte(s), nil
}

// Result is the outcome of an asynchronous load.
type Result struct {
	Src   string
	Image image.Image
	Err   error
}

// LoadAsync runs Load on its own goroutine. The channel yields exactly one
// Result and is then closed.
func LoadAsync(ctx context.Context, l Loader, src, crossOrigin string) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		img, err := l.Load(ctx, src, crossOrigin)
		ch <- Result{Src: src, Image: img, Err: err}
	}()
	return ch
}

// getCacheDir determines the appropriate OS-specific cache directory.
func getCacheDir(subdir string) (string, error) {
	var baseCacheDir string
	var err error

	switch runtime.GOOS {
	case "windows":
		baseCacheDir = os.Getenv("LOCALAPPDATA")
		if baseCacheDir == "" {
			err = fmt.Errorf("LOCALAPPDATA environment variable not set")
		}
	case "darwin":
		homeDir := os.Getenv("HOME")
		if homeDir == "" {
			err = fmt.Errorf("HOME environment variable not set")
		} else {
			baseCacheDir = filepath.Join(homeDir, "Library", "Caches")
		}
	default:
		baseCacheDir = os.Getenv("XDG_CACHE_HOME")
		if baseCacheDir == "" {
			homeDir := os.Getenv("HOME")
			if homeDir == "" {
				err = fmt.Errorf("HOME environment variable not set")
			} else {
				baseCacheDir = filepath.Join(homeDir, ".cache")
			}
		}
	}
	if err != nil {
		return "", err
	}

	cacheDir := filepath.Join(baseCacheDir, "goripples", subdir)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", fmt.Errorf("creating cache directory: %w", err)
	}
	return cacheDir, nil
}
