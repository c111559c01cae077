package media

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Clark-Hu/movie-importer/internal/domain"
)

// Recorder persists a downloaded image as an entity's primary attachment.
type Recorder interface {
	SetPrimary(ctx context.Context, attachment domain.MediaAttachment) (domain.MediaAttachment, error)
}

// Downloader fetches images into a local directory and records them.
type Downloader struct {
	client   *grab.Client
	dir      string
	recorder Recorder
	logger   zerolog.Logger
}

// Option customises a Downloader.
type Option func(*Downloader)

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// WithGrabClient overrides the download client.
func WithGrabClient(client *grab.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// New builds a Downloader writing into dir.
func New(dir string, recorder Recorder, timeout time.Duration, opts ...Option) *Downloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	d := &Downloader{
		client: &grab.Client{
			UserAgent: "movie-importer",
			HTTPClient: &http.Client{
				Timeout: timeout,
				Transport: &http.Transport{
					Proxy:               http.ProxyFromEnvironment,
					MaxIdleConns:        10,
					IdleConnTimeout:     90 * time.Second,
					TLSHandshakeTimeout: 10 * time.Second,
				},
			},
		},
		dir:      dir,
		recorder: recorder,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AttachPrimaryImage downloads sourceURL and records it as the primary image
// of entityID. It reports false with an error when either step fails; a
// partially written file is removed.
func (d *Downloader) AttachPrimaryImage(ctx context.Context, entityID int64, sourceURL, altText string) (bool, error) {
	if entityID <= 0 || strings.TrimSpace(sourceURL) == "" {
		return false, fmt.Errorf("media: entity id and source url are required")
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return false, fmt.Errorf("media: create dir: %w", err)
	}

	dst := filepath.Join(d.dir, uuid.NewString()+extension(sourceURL))
	req, err := grab.NewRequest(dst, sourceURL)
	if err != nil {
		return false, fmt.Errorf("media: build request: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true

	resp := d.client.Do(req)
	if err := resp.Err(); err != nil {
		_ = os.Remove(dst)
		return false, fmt.Errorf("media: download %s: %w", sourceURL, err)
	}

	attachment, err := d.recorder.SetPrimary(ctx, domain.MediaAttachment{
		EntityID:  entityID,
		SourceURL: sourceURL,
		AltText:   altText,
		LocalPath: resp.Filename,
		Primary:   true,
	})
	if err != nil {
		_ = os.Remove(resp.Filename)
		return false, fmt.Errorf("media: record attachment: %w", err)
	}

	d.logger.Info().
		Int64("entity_id", entityID).
		Int64("attachment_id", attachment.ID).
		Int64("bytes", resp.BytesComplete()).
		Str("path", resp.Filename).
		Msg("media: primary image attached")
	return true, nil
}

func extension(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp", ".gif", ".svg":
		return ext
	}
	return ".jpg"
}
