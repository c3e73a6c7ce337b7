package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"

	coreconfig "github.com/m3rciful/invitebot/core/config"
	"github.com/m3rciful/invitebot/core/logger"
)

// BlobMirror copies accepted photo binaries from the messaging provider's
// file hosting into a Supabase storage bucket so invitation pages do not
// depend on provider-hosted URLs.
type BlobMirror struct {
	client  *storage_go.Client
	baseURL string
	bucket  string
	http    *http.Client
}

// NewBlobMirror returns nil when mirroring is not configured.
func NewBlobMirror(cfg coreconfig.BlobConfig) *BlobMirror {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil
	}
	base := strings.TrimRight(cfg.URL, "/")
	return &BlobMirror{
		client:  storage_go.NewClient(base+"/storage/v1", cfg.Key, nil),
		baseURL: base,
		bucket:  cfg.Bucket,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Mirror downloads the file at srcURL and uploads it into the bucket under
// a per-user prefix. It returns the public URL of the mirrored object.
func (m *BlobMirror) Mirror(ctx context.Context, srcURL string, userID int64, fileName, mimeType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", fmt.Errorf("blob: build fetch request: %w", err)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob: fetch source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("blob: fetch source: status %s", resp.Status)
	}

	objectPath := m.objectPath(userID, fileName)
	contentType := mimeType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}
	upsert := true

	start := time.Now()
	_, err = m.client.UploadFile(m.bucket, objectPath, resp.Body, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("blob: upload %s: %w", objectPath, err)
	}

	logger.SVCPhotos.LogAttrs(ctx, slog.LevelInfo, "photo.mirrored",
		slog.String("event", "photo.mirrored"),
		slog.String("object", objectPath),
		slog.Int64("user_id", userID),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", m.baseURL, m.bucket, objectPath), nil
}

func (m *BlobMirror) objectPath(userID int64, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%d/%s%s", userID, uuid.NewString(), ext)
}
