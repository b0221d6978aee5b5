package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"campaignforge/internal/domain"
	"campaignforge/pkg/zip"
)

const maxArtifactDownload = 32 << 20 // 32 MiB per artifact

// ArtifactsZip streams the post's validated artifacts as a ZIP archive.
// Bytes are served from the local cache when present; cache misses are
// fetched from the artifact URLs with bounded concurrency and cached for the
// next download. Artifacts that cannot be fetched are skipped rather than
// failing the whole archive.
func (a *App) ArtifactsZip(w http.ResponseWriter, r *http.Request) {
	postID, ok := a.postIDParam(w, r)
	if !ok {
		return
	}
	post, err := a.Store.Get(r.Context(), postID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "post not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load post")
		return
	}
	if len(post.Images) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "post has no artifacts")
		return
	}

	assets := make([]zip.Asset, len(post.Images))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i, artifact := range post.Images {
		i, artifact := i, artifact
		g.Go(func() error {
			data, err := a.artifactBytes(ctx, postID, i, artifact.URL)
			if err != nil {
				a.Logger.Warn().Err(err).Int64("post_id", postID).Str("url", artifact.URL).Msg("zip: fetch artifact failed")
				return nil
			}
			assets[i] = zip.Asset{
				Filename: fmt.Sprintf("post-%d-image-%02d", postID, i+1),
				MIME:     "image/png",
				Data:     data,
			}
			return nil
		})
	}
	_ = g.Wait()

	var nonEmpty []zip.Asset
	for _, asset := range assets {
		if len(asset.Data) > 0 {
			nonEmpty = append(nonEmpty, asset)
		}
	}
	if len(nonEmpty) == 0 {
		a.error(w, http.StatusBadGateway, "fetch_failed", "no artifact could be downloaded")
		return
	}

	archive := zip.ArchiveAssets(nonEmpty)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=post-%d-artifacts.zip", postID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func (a *App) artifactBytes(ctx context.Context, postID int64, index int, url string) ([]byte, error) {
	cacheKey := fmt.Sprintf("artifacts/%d/image-%02d", postID, index+1)
	if a.Cache != nil {
		if data, err := a.Cache.Read(ctx, cacheKey); err == nil && len(data) > 0 {
			return data, nil
		}
	}

	client := a.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxArtifactDownload))
	if err != nil {
		return nil, err
	}

	if a.Cache != nil {
		if _, err := a.Cache.Write(ctx, cacheKey, data); err != nil {
			a.Logger.Warn().Err(err).Str("key", cacheKey).Msg("zip: cache write failed")
		}
	}
	return data, nil
}
