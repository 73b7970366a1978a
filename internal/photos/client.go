// Package photos is the HTTP client for the remote photo library service:
// resumable upload sessions, chunked transfer, media item creation and album
// creation. Authentication is an opaque bearer capability supplied through
// an oauth2.TokenSource; obtaining and refreshing it is the caller's
// problem.
package photos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/dkhalperin/flickrmigrate/internal/common"
	"github.com/dkhalperin/flickrmigrate/internal/photos/api"
)

// DefaultBaseURL is the production endpoint of the photo library API.
const DefaultBaseURL = "https://photoslibrary.googleapis.com/v1"

// defaultChunkSize is used when the service does not advertise a chunk
// granularity on session start.
const defaultChunkSize = 8 * 1024 * 1024

// UploadSession is an open resumable upload: the session URL to send chunks
// to and the chunk size the service dictated.
type UploadSession struct {
	URL       string
	ChunkSize int64
}

// Client calls the remote photo library over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     oauth2.TokenSource
}

// New returns a Client for the API at baseURL (DefaultBaseURL in
// production, an httptest server in tests).
func New(baseURL string, httpClient *http.Client, tokens oauth2.TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, httpClient: httpClient, tokens: tokens}
}

// do sends the request with a bearer token attached and maps the rate-limit
// status to common.ErrRateLimited before the caller sees the response.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("acquire token: %w", err)
		}
		token.SetAuthHeader(req)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, common.ErrRateLimited
	}
	return resp, nil
}

func httpError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var apiErr api.Error
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Details.Message != "" {
		return fmt.Errorf("%s: %w", resp.Status, &apiErr)
	}
	return fmt.Errorf("%s: %s", resp.Status, string(body))
}

// StartUpload opens a resumable upload session declaring the file name and
// total payload size.
func (c *Client) StartUpload(ctx context.Context, fileName string, size int64) (*UploadSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-File-Name", fileName)
	req.Header.Set("X-Goog-Upload-Raw-Size", strconv.FormatInt(size, 10))

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("start upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("start upload: %w", httpError(resp))
	}

	session := &UploadSession{
		URL:       resp.Header.Get("X-Goog-Upload-URL"),
		ChunkSize: defaultChunkSize,
	}
	if session.URL == "" {
		return nil, fmt.Errorf("start upload: service returned no upload URL")
	}
	if g := resp.Header.Get("X-Goog-Upload-Chunk-Granularity"); g != "" {
		granularity, err := strconv.ParseInt(g, 10, 64)
		if err == nil && granularity > 0 {
			session.ChunkSize = granularity
		}
	}
	return session, nil
}

// UploadChunk sends one chunk at the given byte offset. The final chunk
// carries the finalize directive and its response yields the upload token;
// non-final chunks return an empty token.
func (c *Client) UploadChunk(ctx context.Context, session *UploadSession, offset int64, data []byte, final bool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, session.URL, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	command := "upload"
	if final {
		command = "upload, finalize"
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Goog-Upload-Command", command)
	req.Header.Set("X-Goog-Upload-Offset", strconv.FormatInt(offset, 10))

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("upload chunk at %d: %w", offset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload chunk at %d: %w", offset, httpError(resp))
	}
	if !final {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", nil
	}

	token, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upload token: %w", err)
	}
	if len(token) == 0 {
		return "", fmt.Errorf("finalize returned an empty upload token")
	}
	return string(token), nil
}

// CreateMediaItem exchanges an upload token for a permanent remote media id,
// optionally placing it into the remote album.
func (c *Client) CreateMediaItem(ctx context.Context, uploadToken, description, remoteAlbumID string) (string, error) {
	request := api.BatchCreateRequest{
		AlbumID: remoteAlbumID,
		NewMediaItems: []api.NewMediaItem{{
			Description:     description,
			SimpleMediaItem: api.SimpleMediaItem{UploadToken: uploadToken},
		}},
	}

	var response api.BatchCreateResponse
	if err := c.postJSON(ctx, "/mediaItems:batchCreate", request, &response); err != nil {
		return "", fmt.Errorf("create media item: %w", err)
	}

	if len(response.NewMediaItemResults) != 1 {
		return "", fmt.Errorf("create media item: expected 1 result, got %d", len(response.NewMediaItemResults))
	}
	result := response.NewMediaItemResults[0]
	if result.Status.Code != 0 {
		return "", fmt.Errorf("create media item: %s (%d)", result.Status.Message, result.Status.Code)
	}
	if result.MediaItem.ID == "" {
		return "", fmt.Errorf("create media item: service returned no media id")
	}
	return result.MediaItem.ID, nil
}

// CreateAlbum creates a remote album and returns its id.
func (c *Client) CreateAlbum(ctx context.Context, title string) (string, error) {
	request := api.CreateAlbumRequest{Album: &api.Album{Title: title}}

	var album api.Album
	if err := c.postJSON(ctx, "/albums", request, &album); err != nil {
		return "", fmt.Errorf("create album: %w", err)
	}
	if album.ID == "" {
		return "", fmt.Errorf("create album: service returned no album id")
	}
	return album.ID, nil
}

func (c *Client) postJSON(ctx context.Context, path string, request, response any) error {
	body, err := json.Marshal(request)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(response)
}
