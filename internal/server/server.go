// Package server publishes the birthday calendar feed over local HTTP so
// calendar apps can subscribe to it.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-birthday-bot/internal/config"
)

// Source renders the current feed body.
type Source func(ctx context.Context) ([]byte, error)

// snapshot is one rendered feed plus the validators sent to clients.
type snapshot struct {
	body     []byte
	etag     string
	modified time.Time
}

// FeedServer serves the latest snapshot. Readers never block on a refresh:
// the snapshot pointer is swapped atomically.
type FeedServer struct {
	current atomic.Pointer[snapshot]
	source  Source
	port    string
}

// NewFeedServer returns a server that renders feeds from source and listens
// on port (localhost only).
func NewFeedServer(port string, source Source) *FeedServer {
	return &FeedServer{port: port, source: source}
}

// Refresh re-renders the feed. On error the previous snapshot keeps being served.
func (s *FeedServer) Refresh(ctx context.Context) error {
	body, err := s.source(ctx)
	if err != nil {
		slog.Warn(config.MsgFeedRefreshFail,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
		return err
	}
	s.Publish(body)
	return nil
}

// Publish replaces the served body.
func (s *FeedServer) Publish(body []byte) {
	sum := sha256.Sum256(body)
	snap := &snapshot{
		body:     body,
		etag:     fmt.Sprintf(config.FormatETag, hex.EncodeToString(sum[:])),
		modified: time.Now().UTC().Truncate(time.Second),
	}

	// Keep Last-Modified stable when nothing changed so conditional requests keep hitting.
	if prev := s.current.Load(); prev != nil && prev.etag == snap.etag {
		snap.modified = prev.modified
	}
	s.current.Store(snap)

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(body),
		config.LogKeyETag, snap.etag,
	)
}

// Handler returns the HTTP handler for the feed.
func (s *FeedServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.serveFeed)
	return mux
}

// Start listens on the configured port and serves until ctx is cancelled.
func (s *FeedServer) Start(ctx context.Context) error {
	if s.port == "" {
		return errors.New(config.ErrPortRequired)
	}
	ln, err := net.Listen("tcp", net.JoinHostPort(config.LocalhostBindAddr, s.port))
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *FeedServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serveErr := make(chan error, config.ChannelBufferSize)
	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, ln.Addr().String(),
		)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil
	case err := <-serveErr:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

func (s *FeedServer) serveFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	snap := s.current.Load()
	if snap == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set(config.HeaderContentType, config.MimeTextCalendar)
	h.Set(config.HeaderXContentType, config.MimeNoSniff)
	h.Set(config.HeaderCacheControl, config.CacheControlPrivate)
	h.Set(config.HeaderETag, snap.etag)
	h.Set(config.HeaderLastModified, snap.modified.Format(http.TimeFormat))

	if notModified(r, snap) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(snap.body); err != nil {
		slog.Error(config.ErrWriteResp,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyError, err,
		)
	}
}

// notModified applies If-None-Match, then If-Modified-Since.
func notModified(r *http.Request, snap *snapshot) bool {
	if match := r.Header.Get(config.HeaderIfNoneMatch); match != "" {
		return match == snap.etag
	}
	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if t, err := http.ParseTime(since); err == nil {
			return !snap.modified.After(t)
		}
	}
	return false
}
