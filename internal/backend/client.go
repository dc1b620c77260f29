// Package backend talks to the external PDF processing service: multipart
// upload, page-selection processing, cache clearing and artifact download.
package backend

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "mime"
    "mime/multipart"
    "net/http"
    "net/http/cookiejar"
    "net/url"
    "path"
    "strings"
    "time"

    "github.com/rs/zerolog/log"

    "github.com/local/pagepicker/internal/metrics"
)

// Endpoint names used in errors, logs and metrics.
const (
    EndpointUpload     = "upload"
    EndpointProcess    = "process"
    EndpointClearCache = "clear_cache"
    EndpointDownload   = "download"
)

// UploadField is the multipart form field carrying the PDF.
const UploadField = "pdf"

const maxErrorBody = 512

// Config configures a Client.
type Config struct {
    BaseURL        string
    UploadPath     string
    ProcessPath    string
    ClearCachePath string
    // Timeout bounds each request. Zero means no deadline.
    Timeout    time.Duration
    UserAgent  string
    HTTPClient *http.Client
}

// Client is a thin JSON/multipart client for the processing backend. It keeps
// a cookie jar because the backend ties uploads to its session cookie.
type Client struct {
    base       *url.URL
    cfg        Config
    httpClient *http.Client
}

type UploadResponse struct {
    Success      bool     `json:"success"`
    Thumbnails   []string `json:"thumbnails"`
    TotalPages   int      `json:"totalPages"`
    FileID       string   `json:"file_id,omitempty"`
    OriginalName string   `json:"original_name,omitempty"`
    Error        string   `json:"error,omitempty"`
}

type ProcessRequest struct {
    SelectedPages []int  `json:"selectedPages"`
    FileID        string `json:"file_id,omitempty"`
}

type ProcessResponse struct {
    Success     bool   `json:"success"`
    DownloadURL string `json:"downloadUrl"`
    Message     string `json:"message,omitempty"`
    Error       string `json:"error,omitempty"`
}

type CacheResponse struct {
    Success bool   `json:"success"`
    Message string `json:"message"`
}

// Artifact is a downloaded result. The caller must close Body.
type Artifact struct {
    URL         string
    Name        string
    ContentType string
    Size        int64
    Body        io.ReadCloser
}

func New(cfg Config) (*Client, error) {
    if strings.TrimSpace(cfg.BaseURL) == "" {
        return nil, fmt.Errorf("backend: base url is required")
    }
    base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
    if err != nil {
        return nil, fmt.Errorf("backend: parse base url: %w", err)
    }
    if base.Scheme != "http" && base.Scheme != "https" {
        return nil, fmt.Errorf("backend: unsupported scheme %q", base.Scheme)
    }
    if cfg.UploadPath == "" { cfg.UploadPath = "/upload" }
    if cfg.ProcessPath == "" { cfg.ProcessPath = "/process" }
    if cfg.ClearCachePath == "" { cfg.ClearCachePath = "/clear_cache" }
    if cfg.UserAgent == "" { cfg.UserAgent = "pagepicker" }
    hc := cfg.HTTPClient
    if hc == nil {
        jar, err := cookiejar.New(nil)
        if err != nil { return nil, err }
        hc = &http.Client{Jar: jar}
    }
    return &Client{base: base, cfg: cfg, httpClient: hc}, nil
}

// Resolve turns a server-relative reference (such as a downloadUrl) into an
// absolute URL against the base URL.
func (c *Client) Resolve(ref string) (string, error) {
    u, err := url.Parse(ref)
    if err != nil { return "", fmt.Errorf("backend: parse reference %q: %w", ref, err) }
    if u.IsAbs() || u.Host != "" { return u.String(), nil }
    if strings.HasPrefix(u.Path, "/") {
        // absolute paths hang off the base path, not the host root
        u.Path = strings.TrimSuffix(c.base.Path, "/") + u.Path
        u.RawPath = ""
    }
    return c.base.ResolveReference(u).String(), nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
    if c.cfg.Timeout > 0 { return context.WithTimeout(ctx, c.cfg.Timeout) }
    return context.WithCancel(ctx)
}

// Upload sends the document as multipart field "pdf". A response with
// success=false is returned together with a *RemoteError.
func (c *Client) Upload(ctx context.Context, filename string, body io.Reader) (*UploadResponse, error) {
    var b bytes.Buffer
    mw := multipart.NewWriter(&b)
    fw, err := mw.CreateFormFile(UploadField, filename)
    if err != nil { return nil, fmt.Errorf("build upload form: %w", err) }
    if _, err := io.Copy(fw, body); err != nil { return nil, fmt.Errorf("read upload body: %w", err) }
    if err := mw.Close(); err != nil { return nil, fmt.Errorf("build upload form: %w", err) }

    var out UploadResponse
    if err := c.postForJSON(ctx, EndpointUpload, c.cfg.UploadPath, mw.FormDataContentType(), &b, &out); err != nil {
        return nil, err
    }
    if !out.Success {
        return &out, &RemoteError{Endpoint: EndpointUpload, Message: out.Error}
    }
    log.Debug().Str("file", filename).Int("total_pages", out.TotalPages).Str("file_id", out.FileID).Msg("upload accepted")
    return &out, nil
}

// Process submits the selected page indices (0-based).
func (c *Client) Process(ctx context.Context, req ProcessRequest) (*ProcessResponse, error) {
    if req.SelectedPages == nil { req.SelectedPages = []int{} }
    data, err := json.Marshal(req)
    if err != nil { return nil, err }
    var out ProcessResponse
    if err := c.postForJSON(ctx, EndpointProcess, c.cfg.ProcessPath, "application/json", bytes.NewReader(data), &out); err != nil {
        return nil, err
    }
    if !out.Success {
        return &out, &RemoteError{Endpoint: EndpointProcess, Message: out.Error}
    }
    if out.DownloadURL == "" {
        return &out, &RemoteError{Endpoint: EndpointProcess, Message: "response carries no downloadUrl"}
    }
    return &out, nil
}

// ClearCache asks the backend to drop its uploads, thumbnails and outputs.
func (c *Client) ClearCache(ctx context.Context) (*CacheResponse, error) {
    var out CacheResponse
    if err := c.postForJSON(ctx, EndpointClearCache, c.cfg.ClearCachePath, "application/json", http.NoBody, &out); err != nil {
        return nil, err
    }
    if !out.Success {
        return &out, &RemoteError{Endpoint: EndpointClearCache, Message: out.Message}
    }
    return &out, nil
}

// Fetch downloads exactly the given reference. The request timeout covers
// reading the body too; closing the body releases it.
func (c *Client) Fetch(ctx context.Context, ref string) (*Artifact, error) {
    target, err := c.Resolve(ref)
    if err != nil { return nil, err }
    ctx, cancel := c.withTimeout(ctx)
    start := time.Now()
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
    if err != nil {
        cancel()
        return nil, err
    }
    req.Header.Set("User-Agent", c.cfg.UserAgent)
    resp, err := c.httpClient.Do(req)
    if err != nil {
        cancel()
        metrics.ObserveRequest(EndpointDownload, "error", time.Since(start))
        return nil, fmt.Errorf("%s request: %w", EndpointDownload, err)
    }
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        defer cancel()
        defer resp.Body.Close()
        metrics.ObserveRequest(EndpointDownload, "http_error", time.Since(start))
        return nil, &HTTPError{Endpoint: EndpointDownload, StatusCode: resp.StatusCode, Body: readExcerpt(resp.Body)}
    }
    metrics.ObserveRequest(EndpointDownload, "ok", time.Since(start))
    return &Artifact{
        URL:         target,
        Name:        artifactName(resp.Header.Get("Content-Disposition"), resp.Request.URL.Path),
        ContentType: resp.Header.Get("Content-Type"),
        Size:        resp.ContentLength,
        Body:        &cancelOnClose{ReadCloser: resp.Body, cancel: cancel},
    }, nil
}

type cancelOnClose struct {
    io.ReadCloser
    cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
    err := b.ReadCloser.Close()
    b.cancel()
    return err
}

func (c *Client) postForJSON(ctx context.Context, endpoint, p, contentType string, body io.Reader, out any) error {
    ctx, cancel := c.withTimeout(ctx)
    defer cancel()
    target, err := c.Resolve(p)
    if err != nil { return err }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
    if err != nil { return err }
    req.Header.Set("Content-Type", contentType)
    req.Header.Set("Accept", "application/json")
    req.Header.Set("User-Agent", c.cfg.UserAgent)

    start := time.Now()
    resp, err := c.httpClient.Do(req)
    if err != nil {
        metrics.ObserveRequest(endpoint, "error", time.Since(start))
        return fmt.Errorf("%s request: %w", endpoint, err)
    }
    defer resp.Body.Close()
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        metrics.ObserveRequest(endpoint, "http_error", time.Since(start))
        return &HTTPError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: readExcerpt(resp.Body)}
    }
    if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
        metrics.ObserveRequest(endpoint, "decode_error", time.Since(start))
        return fmt.Errorf("decode %s response: %w", endpoint, err)
    }
    metrics.ObserveRequest(endpoint, "ok", time.Since(start))
    return nil
}

func readExcerpt(r io.Reader) string {
    b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
    return strings.TrimSpace(string(b))
}

// DefaultArtifactName names a download whose URL and headers carry no file name.
const DefaultArtifactName = "processed_pdf.pdf"

// artifactName prefers the Content-Disposition filename and falls back to the
// last path segment of the download URL.
func artifactName(disposition, urlPath string) string {
    if disposition != "" {
        if _, params, err := mime.ParseMediaType(disposition); err == nil {
            if name := path.Base(strings.ReplaceAll(params["filename"], "\\", "/")); name != "" && name != "." && name != "/" {
                return name
            }
        }
    }
    name := path.Base(urlPath)
    if name == "" || name == "." || name == "/" {
        return DefaultArtifactName
    }
    if unescaped, err := url.PathUnescape(name); err == nil { return unescaped }
    return name
}
