package models

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gookit/validate"
)

// Timestamp is a point in time that accepts both RFC 3339 strings and
// numeric epoch seconds on the wire. It always marshals as RFC 3339 UTC.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05Z07:00", "2006-01-02T15:04:05"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				t.Time = parsed.UTC()
				return nil
			}
		}
		return fmt.Errorf("unrecognized timestamp %q", s)
	}

	var epoch float64
	if err := json.Unmarshal(data, &epoch); err != nil {
		return fmt.Errorf("unrecognized timestamp %s", data)
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * float64(time.Second))
	t.Time = time.Unix(sec, nsec).UTC()
	return nil
}

// Epoch returns the timestamp as whole epoch seconds, the form used for
// version file names.
func (t Timestamp) Epoch() int64 { return t.Unix() }

// RemoteMetadata is the immutable Terms of Service document published by a
// channel. Version is a publication timestamp, not a semantic version.
// Unknown endpoint fields are preserved in extra so newer payloads survive a
// cache round trip.
type RemoteMetadata struct {
	Version Timestamp `json:"version"`
	Text    string    `json:"text" validate:"required"`
	Support string    `json:"support" validate:"required"`

	extra map[string]json.RawMessage
}

var remoteKnownFields = map[string]struct{}{
	"version": {},
	"text":    {},
	"support": {},
}

func (m *RemoteMetadata) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	type alias RemoteMetadata
	if err := json.Unmarshal(data, (*alias)(m)); err != nil {
		return err
	}
	m.extra = extraFields(fields, remoteKnownFields)
	return nil
}

func (m RemoteMetadata) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(m.extra)+3)
	for k, v := range m.extra {
		fields[k] = v
	}
	if err := setField(fields, "version", m.Version); err != nil {
		return nil, err
	}
	if err := setField(fields, "text", m.Text); err != nil {
		return nil, err
	}
	if err := setField(fields, "support", m.Support); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// Validate reports whether the document satisfies the endpoint schema.
func (m *RemoteMetadata) Validate() error {
	if m.Version.IsZero() {
		return fmt.Errorf("metadata version is required")
	}
	v := validate.Struct(m)
	if !v.Validate() {
		return v.Errors
	}
	return nil
}

// NewerThan reports whether this document is strictly newer than other.
func (m *RemoteMetadata) NewerThan(other *RemoteMetadata) bool {
	return m.Version.After(other.Version.Time)
}

// Extra returns a preserved unknown field by name.
func (m *RemoteMetadata) Extra(key string) (json.RawMessage, bool) {
	v, ok := m.extra[key]
	return v, ok
}

// LocalMetadata is a persisted acceptance record: the remote document plus
// the channel it was decided for, the decision, and when it was recorded.
// A new decision produces a new record; existing records are never mutated.
type LocalMetadata struct {
	RemoteMetadata

	BaseURL             string    `json:"base_url" validate:"required"`
	ToSAccepted         bool      `json:"tos_accepted"`
	AcceptanceTimestamp Timestamp `json:"acceptance_timestamp"`
}

var localKnownFields = map[string]struct{}{
	"version":              {},
	"text":                 {},
	"support":              {},
	"base_url":             {},
	"tos_accepted":         {},
	"acceptance_timestamp": {},
}

func (m *LocalMetadata) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	type alias struct {
		Version             Timestamp `json:"version"`
		Text                string    `json:"text"`
		Support             string    `json:"support"`
		BaseURL             string    `json:"base_url"`
		ToSAccepted         bool      `json:"tos_accepted"`
		AcceptanceTimestamp Timestamp `json:"acceptance_timestamp"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	m.Version = a.Version
	m.Text = a.Text
	m.Support = a.Support
	m.BaseURL = a.BaseURL
	m.ToSAccepted = a.ToSAccepted
	m.AcceptanceTimestamp = a.AcceptanceTimestamp
	m.extra = extraFields(fields, localKnownFields)
	return nil
}

func (m LocalMetadata) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(m.extra)+6)
	for k, v := range m.extra {
		fields[k] = v
	}
	for key, value := range map[string]interface{}{
		"version":              m.Version,
		"text":                 m.Text,
		"support":              m.Support,
		"base_url":             m.BaseURL,
		"tos_accepted":         m.ToSAccepted,
		"acceptance_timestamp": m.AcceptanceTimestamp,
	} {
		if err := setField(fields, key, value); err != nil {
			return nil, err
		}
	}
	return json.Marshal(fields)
}

func (m *LocalMetadata) Validate() error {
	if err := m.RemoteMetadata.Validate(); err != nil {
		return err
	}
	if m.BaseURL == "" {
		return fmt.Errorf("metadata base_url is required")
	}
	if m.AcceptanceTimestamp.IsZero() {
		return fmt.Errorf("metadata acceptance_timestamp is required")
	}
	return nil
}

// Pair is the reconciled view of a channel's Terms of Service. Exactly one
// of the following shapes is produced:
//
//   - remote only: Local is nil, Remote holds the fetched document
//     (no decision exists yet)
//   - local only: Remote is nil, the stored decision is current
//   - outdated: both set, a strictly newer remote document supersedes the
//     stored decision, which stays in force until re-decided
type Pair struct {
	Local  *LocalMetadata
	Path   string
	Remote *RemoteMetadata
}

func NewRemotePair(remote *RemoteMetadata) *Pair {
	return &Pair{Remote: remote}
}

func NewLocalPair(local *LocalMetadata, path string) *Pair {
	return &Pair{Local: local, Path: path}
}

// Outdated reports whether a stored decision exists but a newer remote
// document has been published.
func (p *Pair) Outdated() bool { return p.Local != nil && p.Remote != nil }

// Decided reports whether any acceptance record exists.
func (p *Pair) Decided() bool { return p.Local != nil }

// Accepted reports whether the stored decision (if any) is an acceptance.
func (p *Pair) Accepted() bool { return p.Local != nil && p.Local.ToSAccepted }

// Latest returns the newest known document: the remote one when present,
// otherwise the document embedded in the local record.
func (p *Pair) Latest() *RemoteMetadata {
	if p.Remote != nil {
		return p.Remote
	}
	return &p.Local.RemoteMetadata
}

// LatestText returns the newest known Terms of Service text.
func (p *Pair) LatestText() string { return p.Latest().Text }

// Version returns the version of the authoritative record: the local one
// when a decision exists, otherwise the remote document's version.
func (p *Pair) Version() Timestamp {
	if p.Local != nil {
		return p.Local.Version
	}
	return p.Remote.Version
}

func extraFields(fields map[string]json.RawMessage, known map[string]struct{}) map[string]json.RawMessage {
	var extra map[string]json.RawMessage
	for k, v := range fields {
		if _, ok := known[k]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]json.RawMessage)
		}
		extra[k] = v
	}
	return extra
}

func setField(fields map[string]json.RawMessage, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	fields[key] = raw
	return nil
}
