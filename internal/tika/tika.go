// Package tika provides the client for the external text and metadata
// extraction service.
package tika

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jonesrussell/siteindex/internal/domain"
	sierrors "github.com/jonesrussell/siteindex/internal/errors"
	"github.com/jonesrussell/siteindex/internal/logger"
	"github.com/jonesrussell/siteindex/internal/metadata"
)

// Converter is the contract the extraction engine depends on. The
// production implementation is Client; tests substitute fakes.
type Converter interface {
	// ExtractMetadata returns the document's normalized metadata mapping.
	ExtractMetadata(ctx context.Context, res *domain.ResourceInfo) (metadata.Metadata, error)
	// ExtractText returns the document's plain text.
	ExtractText(ctx context.Context, res *domain.ResourceInfo) (string, error)
}

// Client talks to a Tika JAXRS server.
type Client struct {
	base   string
	client *http.Client
	log    logger.Interface
}

// Ensure Client implements Converter.
var _ Converter = (*Client)(nil)

// NewClient creates a converter client for the given base URL.
func NewClient(base string, client *http.Client, log logger.Interface) *Client {
	return &Client{
		base:   strings.TrimRight(base, "/"),
		client: client,
		log:    log.WithComponent("tika"),
	}
}

// ExtractMetadata PUTs the resource's file to the /meta endpoint and
// parses the CSV response into a metadata mapping. Multiple values for
// the same key are joined with a single space. The mapping is passed
// through the metadata normalizer before being returned.
func (c *Client) ExtractMetadata(ctx context.Context, res *domain.ResourceInfo) (metadata.Metadata, error) {
	c.log.Info("extracting metadata", "file", res.Filename, "content_type", res.ContentType)

	body, err := c.put(ctx, "meta", res, "")
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(string(body)))
	reader.FieldsPerRecord = -1

	meta := metadata.Metadata{}
	for {
		record, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, fmt.Errorf("parse metadata CSV: %w", readErr)
		}
		if len(record) < 2 {
			continue
		}
		key := record[0]
		value := strings.Join(record[1:], " ")
		if existing, ok := meta[key]; ok {
			value = existing + " " + value
		}
		meta[key] = value
	}

	return metadata.Normalize(meta), nil
}

// ExtractText PUTs the resource's file to the /tika endpoint and
// returns the plain-text response. The body is decoded as UTF-8
// regardless of the response's declared charset.
func (c *Client) ExtractText(ctx context.Context, res *domain.ResourceInfo) (string, error) {
	c.log.Info("extracting plain text", "file", res.Filename, "content_type", res.ContentType)

	body, err := c.put(ctx, "tika", res, "text/plain")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// put streams the resource's file to a converter endpoint and returns
// the response body. Network failures and non-2xx responses surface as
// extraction errors.
func (c *Client) put(ctx context.Context, endpoint string, res *domain.ResourceInfo, accept string) ([]byte, error) {
	f, err := os.Open(res.Filename)
	if err != nil {
		return nil, sierrors.Wrap(sierrors.KindExtraction, res.URLInfo.Loc, err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.base+"/"+endpoint, f)
	if err != nil {
		return nil, sierrors.Wrap(sierrors.KindExtraction, res.URLInfo.Loc, err)
	}
	req.Header.Set("Content-Type", res.ContentType)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, sierrors.Wrap(sierrors.KindExtraction, res.URLInfo.Loc, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sierrors.Wrap(sierrors.KindExtraction, res.URLInfo.Loc, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, sierrors.NewURL(sierrors.KindExtraction, res.URLInfo.Loc,
			"converter %s returned status %d", endpoint, resp.StatusCode)
	}

	return body, nil
}
