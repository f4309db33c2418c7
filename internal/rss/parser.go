// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package rss fetches and decodes anime RSS feeds into SubscriptionItem
// values. Only the "mikan" variant is implemented; other rss_type values
// are rejected with domain.ErrUnsupportedParser.
package rss

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog"

	"github.com/bangumi-sync/bangumi-sync/internal/domain"
)

// fetchRetryAttempts bounds the total number of feed-fetch attempts.
const fetchRetryAttempts = 3

// FetchTimeout bounds the HTTP GET used to retrieve a feed's XML body.
const FetchTimeout = 10 * time.Second

// Parser decodes one subscription's feed body into items.
type Parser interface {
	Parse(sub domain.Subscription, body []byte) ([]domain.SubscriptionItem, error)
}

// channel is the minimal RSS 2.0 envelope this pipeline understands.
type channel struct {
	XMLName xml.Name   `xml:"channel"`
	Title   string     `xml:"title"`
	Link    string     `xml:"link"`
	Items   []feedItem `xml:"item"`
}

type rssDoc struct {
	XMLName xml.Name `xml:"rss"`
	Channel channel  `xml:"channel"`
}

type feedItem struct {
	Title     string    `xml:"title"`
	Link      string    `xml:"link"`
	PubDate   string    `xml:"pubDate"`
	Enclosure enclosure `xml:"enclosure"`
}

type enclosure struct {
	URL string `xml:"url,attr"`
}

// ByVariant resolves the Parser for a subscription's parser variant.
func ByVariant(log zerolog.Logger, variant domain.ParserVariant) (Parser, error) {
	switch variant {
	case domain.ParserMikan, "":
		return MikanParser{log: log}, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedParser, variant)
	}
}

// Fetcher retrieves a feed's raw XML body over HTTP.
type Fetcher struct {
	Client *http.Client
}

// NewFetcher builds a Fetcher with FetchTimeout applied per request.
func NewFetcher() *Fetcher {
	return &Fetcher{Client: &http.Client{Timeout: FetchTimeout}}
}

// Fetch performs the bounded HTTP GET for url, retrying any failed attempt
// (network error, non-200 status, unreadable body) up to
// fetchRetryAttempts attempts in total before giving up.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	var body []byte
	err := retry.Do(
		func() error {
			if ctx.Err() != nil {
				return retry.Unrecoverable(ctx.Err())
			}
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("%w: build request for %s: %v", domain.ErrDownloadFailed, url, err))
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", domain.ErrDownloadFailed, url, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("%w: %s: status %s", domain.ErrDownloadFailed, url, resp.Status)
			}
			b, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("%w: read body of %s: %v", domain.ErrDownloadFailed, url, err)
			}
			body = b
			return nil
		},
		retry.Attempts(fetchRetryAttempts),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// decodeChannel unmarshals the RSS envelope, reporting domain.ErrInvalidRSS
// for malformed XML or an unsupported shape.
func decodeChannel(body []byte) (channel, error) {
	var doc rssDoc
	if err := xml.Unmarshal(body, &doc); err != nil {
		return channel{}, fmt.Errorf("%w: %v", domain.ErrInvalidRSS, err)
	}
	if doc.Channel.Title == "" && len(doc.Channel.Items) == 0 {
		return channel{}, fmt.Errorf("%w: empty or unsupported channel shape", domain.ErrInvalidRSS)
	}
	return doc.Channel, nil
}
