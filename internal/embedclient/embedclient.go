// Package embedclient implements the optional semantic-embedding
// EmbeddingClient used by internal/fingerprint. It is an HTTP client against
// a configurable embedding service, following the baseURL/retryCount/timeout
// shape of the teacher's internal/clients/mageagent_client.go.
package embedclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"

	"github.com/adverant/nexus/videochain/internal/corerr"
	"github.com/adverant/nexus/videochain/internal/hashutil"
	"github.com/adverant/nexus/videochain/internal/types"
)

// Client calls a remote embedding service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retryCount int
}

// New constructs a Client targeting baseURL, with the given per-call timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryCount: 3,
	}
}

type embedRequest struct {
	Image string `json:"image_base64"`
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
}

// Embed requests the embedding for f's JPEG encoding and returns it
// L2-normalized. Failures surface as ErrEmbeddingUnavailable; callers treat
// this as a soft error and leave the embedding nil (spec §7).
func (c *Client) Embed(ctx context.Context, f *types.Frame) (*types.Embedding, error) {
	payload, err := encodeFrame(f)
	if err != nil {
		return nil, corerr.Wrap(corerr.ErrEmbeddingUnavailable, "failed to encode frame", err)
	}

	var resp embedResponse
	var lastErr error
	for attempt := 0; attempt < c.retryCount; attempt++ {
		lastErr = c.doRequest(ctx, payload, &resp)
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return nil, corerr.Wrap(corerr.ErrEmbeddingUnavailable, "embedding service request failed", lastErr)
	}

	hashutil.L2Normalize(resp.Vector)
	return &types.Embedding{Vector: resp.Vector}, nil
}

func (c *Client) doRequest(ctx context.Context, payload embedRequest, out *embedResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/embed", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("embedding service returned %d: %s", resp.StatusCode, string(data))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func encodeFrame(f *types.Frame) (embedRequest, error) {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.At(x, y)
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, 255
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return embedRequest{}, err
	}
	return embedRequest{Image: base64.StdEncoding.EncodeToString(buf.Bytes())}, nil
}
