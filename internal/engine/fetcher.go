package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// VCardFetcher defines the contract for retrieving remote vCard data.
type VCardFetcher interface {
	Fetch(ctx context.Context, url, user, pass string) (io.ReadCloser, error)
}

// HTTPFetcher implements VCardFetcher using the standard net/http library.
type HTTPFetcher struct {
	Client *http.Client
}

// NewHTTPFetcher creates a new instance of HTTPFetcher with configured timeouts.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// OpenVCardSource opens an import source: an http(s) URL goes through the
// fetcher, a directory yields its .vcf files in name order (one card per
// file, as vdir contact syncers store them), anything else is opened as a
// local file.
func OpenVCardSource(ctx context.Context, location, user, pass string, fetcher VCardFetcher) (io.ReadCloser, error) {
	if strings.HasPrefix(location, config.SchemeHTTP+"://") || strings.HasPrefix(location, config.SchemeHTTPS+"://") {
		return fetcher.Fetch(ctx, location, user, pass)
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrVCardRead, err)
	}
	if info.IsDir() {
		return openVCardDir(ctx, location)
	}
	return os.Open(location)
}

func openVCardDir(ctx context.Context, dir string) (io.ReadCloser, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrVCardRead, err)
	}

	var buf bytes.Buffer
	files := 0
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), config.ExtVCF) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrVCardRead, err)
		}
		if buf.Len()+len(data) > config.MaxHTTPResponseSize {
			return nil, fmt.Errorf("%s: %s exceeds %d bytes", config.ErrVCardRead, dir, config.MaxHTTPResponseSize)
		}
		buf.Write(data)
		// Files often lack a final newline; keep END:VCARD on its own line.
		buf.WriteString("\r\n")
		files++
	}
	if files == 0 {
		return nil, fmt.Errorf("%s: %s", config.ErrVCardDir, dir)
	}

	slog.Debug(config.MsgVCardDirRead,
		config.LogKeyComponent, config.CompEngine,
		config.LogKeyPath, dir,
		config.LogKeyCount, files,
	)
	return io.NopCloser(&buf), nil
}

// Fetch retrieves vCard data from a remote URL (CardDAV export, WebDAV file).
// Query parameters are stripped from logs since they often carry tokens, and
// the body is capped at config.MaxHTTPResponseSize.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL, user, pass string) (io.ReadCloser, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	if u.Scheme != config.SchemeHTTP && u.Scheme != config.SchemeHTTPS {
		return nil, fmt.Errorf("%s: %s", config.ErrProtocol, u.Scheme)
	}

	log := slog.With(
		slog.String(config.LogKeyComponent, config.CompFetcher),
		slog.String(config.LogKeyURL, u.Scheme+"://"+u.Host+u.Path),
	)
	log.Debug(config.MsgFetchStart)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrInvalidURL, err)
	}
	req.Header.Set(config.HeaderUserAgent, config.UserAgent)
	if user != "" || pass != "" {
		req.SetBasicAuth(user, pass)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		log.Warn(config.MsgFetchBadStatus, slog.Int(config.LogKeyStatus, resp.StatusCode))
		return nil, fmt.Errorf("%s: %d %s", config.ErrUnexpectedStatus, resp.StatusCode, resp.Status)
	}

	return &limitedReadCloser{
		Reader: io.LimitReader(resp.Body, config.MaxHTTPResponseSize),
		Closer: resp.Body,
	}, nil
}

// limitedReadCloser pairs a size-limited reader with the original body closer.
type limitedReadCloser struct {
	io.Reader
	io.Closer
}
