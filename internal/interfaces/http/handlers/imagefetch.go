// Package handlers implements the client-facing HTTP handlers for both
// provider families (C9), wiring the protocol adapters (C8) to the
// translator (C7) and the token/log managers (C5/C6).
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ngoclaw/upstreamgw/internal/domain/entity"
)

// maxFetchedImageBytes bounds how much of a remote image body a handler
// will read before giving up, independent of the upstream wire framing's
// own 4 MiB limit (§6) which applies only to the upstream protocol.
const maxFetchedImageBytes = 8 * 1024 * 1024

// fetchRemoteImages resolves every content block across req's messages
// that still carries a bare URL (no bytes yet, set by the adapter's
// parseImageBlock), fetching and classifying each one via classify.
func fetchRemoteImages(ctx context.Context, client *http.Client, req *entity.NormalizedRequest, classify func(*entity.ContentBlock, []byte) error) error {
	for mi := range req.Messages {
		for bi := range req.Messages[mi].Content {
			block := &req.Messages[mi].Content[bi]
			if block.Kind != entity.ContentImage || block.ImageURL == "" || len(block.ImageBytes) > 0 {
				continue
			}
			data, err := fetchImage(ctx, client, block.ImageURL)
			if err != nil {
				return entity.NewKindError(entity.ErrUnsupportedImageFormat, err.Error())
			}
			if err := classify(block, data); err != nil {
				return err
			}
		}
	}
	return nil
}

func fetchImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFetchedImageBytes))
}
