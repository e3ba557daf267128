package harvest

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"path"

	"go.uber.org/zap"

	"github.com/JakeFAU/trademark-harvester/internal/batch"
	collyfetcher "github.com/JakeFAU/trademark-harvester/internal/fetcher/colly"
	"github.com/JakeFAU/trademark-harvester/internal/metrics"
	"github.com/JakeFAU/trademark-harvester/internal/storage"
)

// Asset is the result of one download unit.
type Asset struct {
	Key     string
	URI     string
	Bytes   int
	Skipped bool
}

// AssetDownloader stores referenced documents in a blob store, at most once.
type AssetDownloader struct {
	client Getter
	store  storage.BlobStore
	logger *zap.Logger
}

// NewAssetDownloader returns an AssetDownloader.
func NewAssetDownloader(client Getter, store storage.BlobStore, logger *zap.Logger) (*AssetDownloader, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetDownloader{client: client, store: store, logger: logger}, nil
}

// Download skips refs already present in the store; otherwise it fetches the
// URL and writes the body under ref.Key().
func (d *AssetDownloader) Download(ctx context.Context, ref AssetRef) batch.Outcome[Asset] {
	key := ref.Key()
	exists, err := d.store.Exists(ctx, key)
	if err != nil {
		return batch.Failure[Asset](key, fmt.Errorf("%w: %v", batch.ErrStorage, err))
	}
	if exists {
		metrics.ObserveAssetSkipped()
		d.logger.Debug("asset already stored", zap.String("key", key))
		return batch.Success(key, Asset{Key: key, Skipped: true})
	}

	resp, err := d.client.Get(ctx, ref.URL)
	if err != nil {
		return batch.Failure[Asset](key, fmt.Errorf("%w: %v", batch.ErrTransport, err))
	}
	if !resp.OK() {
		return batch.Failure[Asset](key, fmt.Errorf("%w: %d", batch.ErrStatus, resp.StatusCode))
	}
	uri, err := d.store.PutObject(ctx, key, contentType(resp, ref.FileName), bytes.NewReader(resp.Body))
	if err != nil {
		return batch.Failure[Asset](key, fmt.Errorf("%w: %v", batch.ErrStorage, err))
	}
	d.logger.Debug("asset stored", zap.String("key", key), zap.String("uri", uri), zap.Int("bytes", len(resp.Body)))
	return batch.Success(key, Asset{Key: key, URI: uri, Bytes: len(resp.Body)})
}

func contentType(resp collyfetcher.Response, fileName string) string {
	if ct := resp.Headers.Get("Content-Type"); ct != "" {
		return ct
	}
	if ct := mime.TypeByExtension(path.Ext(fileName)); ct != "" {
		return ct
	}
	return http.DetectContentType(resp.Body)
}
