package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/storage"
)

const maxAttachmentSize = 10 << 20 // 10 MB

var (
	extByMime = map[string]string{
		"image/png":       ".png",
		"image/jpeg":      ".jpg",
		"image/gif":       ".gif",
		"image/webp":      ".webp",
		"image/svg+xml":   ".svg",
		"application/pdf": ".pdf",
	}

	mimeByExt = map[string]string{
		".png":  "image/png",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".gif":  "image/gif",
		".webp": "image/webp",
		".svg":  "image/svg+xml",
		".pdf":  "application/pdf",
	}
)

// fetched is a downloaded or decoded attachment payload.
type fetched struct {
	data []byte
	mime string
}

func (s *Server) addAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var f fetched
	if strings.HasPrefix(rawURL, "data:") {
		f, err = decodeDataURI(rawURL)
	} else {
		f, err = fetchHTTP(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := req.GetString("filename", "")
	if name == "" {
		name = filenameFromURL(rawURL, extByMime[f.mime])
	}
	name = storage.SanitizeName(name)

	ext := strings.ToLower(filepath.Ext(name))
	mt, ok := mimeByExt[ext]
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unsupported file extension %q (allowed: png, jpg, jpeg, gif, webp, svg, pdf)", ext)), nil
	}
	if err := checkContent(f.data, mt); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	kind := "file"
	if strings.HasPrefix(mt, "image/") {
		kind = "image"
	}
	att, err := s.svc.AddAttachment(ctx, id, noteservice.AttachmentInput{
		Type:     kind,
		FileName: name,
		MimeType: mt,
		Data:     f.data,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(att)
}

// decodeDataURI parses data:<mime>;base64,<payload>.
func decodeDataURI(uri string) (fetched, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return fetched{}, errors.New("invalid data URI: missing comma")
	}
	mt, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return fetched{}, errors.New("only base64 data URIs are supported")
	}
	mt, _, _ = strings.Cut(mt, ";")
	if _, ok := extByMime[mt]; !ok {
		return fetched{}, fmt.Errorf("unsupported MIME type in data URI: %s", mt)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(payload); err != nil {
			return fetched{}, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	if len(data) > maxAttachmentSize {
		return fetched{}, fmt.Errorf("file too large: %d bytes (max %d)", len(data), maxAttachmentSize)
	}
	return fetched{data: data, mime: mt}, nil
}

// fetchHTTP downloads an attachment, refusing loopback and cloud metadata hosts.
func fetchHTTP(ctx context.Context, rawURL string) (fetched, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fetched{}, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fetched{}, fmt.Errorf("unsupported scheme %q (only http/https)", u.Scheme)
	}
	if err := checkBlockedHost(u.Hostname()); err != nil {
		return fetched{}, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(r *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("too many redirects (max 5)")
			}
			return checkBlockedHost(r.URL.Hostname())
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fetched{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fetched{}, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fetched{}, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAttachmentSize+1))
	if err != nil {
		return fetched{}, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxAttachmentSize {
		return fetched{}, fmt.Errorf("file too large: exceeds %d bytes", maxAttachmentSize)
	}
	mt, _, _ := strings.Cut(resp.Header.Get("Content-Type"), ";")
	return fetched{data: data, mime: strings.TrimSpace(mt)}, nil
}

func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil //nolint:nilerr // the client reports DNS failures
		}
		ip = ips[0]
	}
	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}

// filenameFromURL uses the last path segment when it has an extension and a
// random name otherwise.
func filenameFromURL(rawURL, ext string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		if u, err := url.Parse(rawURL); err == nil {
			base := path.Base(u.Path)
			if strings.Contains(base, ".") && base != "." {
				return base
			}
		}
	}
	if ext == "" {
		ext = ".bin"
	}
	return uuid.NewString() + ext
}

// checkContent verifies the payload matches the MIME type implied by its name.
func checkContent(data []byte, want string) error {
	if want == "image/svg+xml" {
		head := data[:min(len(data), 1024)]
		if !bytes.Contains(head, []byte("<svg")) {
			return errors.New("content does not look like SVG (missing <svg tag)")
		}
		return nil
	}
	got, _, _ := strings.Cut(http.DetectContentType(data), ";")
	if got != want {
		return fmt.Errorf("content does not match %s (detected %s)", want, got)
	}
	return nil
}
