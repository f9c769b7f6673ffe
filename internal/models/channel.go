package models

import (
	"fmt"
	"net/url"
	"strings"
)

// Channel is a content source identified by a base URL. Two channels are
// equal iff their normalized base URLs are equal.
type Channel struct {
	baseURL  string
	location string
	name     string
}

// NewChannel parses and normalizes a channel base URL. Aggregate channels
// without a concrete base URL are rejected; callers must expand them first.
func NewChannel(raw string) (Channel, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Channel{}, fmt.Errorf("invalid channel URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Channel{}, fmt.Errorf("channel %q must have a base URL", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""

	return Channel{
		baseURL:  u.String(),
		location: u.Host,
		name:     strings.Trim(u.Path, "/"),
	}, nil
}

// ParseChannels converts raw URLs into unique channels, preserving order.
func ParseChannels(raws ...string) ([]Channel, error) {
	seen := make(map[string]struct{}, len(raws))
	channels := make([]Channel, 0, len(raws))
	for _, raw := range raws {
		channel, err := NewChannel(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[channel.baseURL]; ok {
			continue
		}
		seen[channel.baseURL] = struct{}{}
		channels = append(channels, channel)
	}
	return channels, nil
}

// BaseURL returns the normalized base URL.
func (c Channel) BaseURL() string { return c.baseURL }

// Location returns the network authority part of the channel.
func (c Channel) Location() string { return c.location }

// Name returns the path part of the channel, without surrounding slashes.
func (c Channel) Name() string { return c.name }

func (c Channel) Equal(other Channel) bool { return c.baseURL == other.baseURL }

func (c Channel) IsZero() bool { return c.baseURL == "" }

func (c Channel) String() string { return c.baseURL }
