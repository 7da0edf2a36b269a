// Package notify delivers crawl error notifications to a chat service
// via an incoming webhook. Notification failures are logged and never
// propagate into the crawl.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/jonesrussell/siteindex/internal/domain"
	sierrors "github.com/jonesrussell/siteindex/internal/errors"
	"github.com/jonesrussell/siteindex/internal/logger"
)

// Notifier receives crawl errors for a site.
type Notifier interface {
	// Error reports an error encountered while crawling a site.
	Error(ctx context.Context, site *domain.Site, err error)
}

// NoOp is a Notifier that discards everything.
type NoOp struct{}

// Error implements Notifier.
func (NoOp) Error(context.Context, *domain.Site, error) {}

// Slack posts error notifications to a Slack incoming webhook.
type Slack struct {
	webhookURL string
	client     *http.Client
	log        logger.Interface
}

// Ensure both implementations satisfy Notifier.
var (
	_ Notifier = NoOp{}
	_ Notifier = (*Slack)(nil)
)

// NewSlack creates a Slack webhook notifier.
func NewSlack(webhookURL string, client *http.Client, log logger.Interface) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		client:     client,
		log:        log.WithComponent("notify"),
	}
}

// attachmentField is one titled value inside a Slack attachment.
type attachmentField struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// attachment is the Slack message attachment payload.
type attachment struct {
	Color  string            `json:"color"`
	Fields []attachmentField `json:"fields"`
}

// message is the webhook payload.
type message struct {
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments"`
}

// Error posts the site URL, error kind and message to the webhook.
func (s *Slack) Error(ctx context.Context, site *domain.Site, crawlErr error) {
	kind := string(sierrors.KindOf(crawlErr))
	if kind == "" {
		kind = "error"
	}

	payload := message{
		Text: "Error while crawling site indexes",
		Attachments: []attachment{{
			Color: "danger",
			Fields: []attachmentField{
				{Title: "Site", Value: site.URL},
				{Title: "Error Kind", Value: kind},
				{Title: "Error Message", Value: crawlErr.Error()},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal notification failed", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		s.log.Error("create notification request failed", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("deliver notification failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		s.log.Error("notification rejected", "status", resp.StatusCode)
	}
}
