package tos

import (
	"errors"
	"fmt"
	"strings"

	"tosctl/internal/models"
)

// Sentinel errors for classification with errors.Is. ErrInvalid wraps
// ErrMissing: schema-invalid metadata is treated as missing by callers that
// do not care about the distinction.
var (
	ErrMissing = errors.New("no Terms of Service metadata")
	ErrInvalid = fmt.Errorf("invalid Terms of Service metadata: %w", ErrMissing)
)

// MissingError reports that no Terms of Service metadata exists for a
// channel. It is recoverable; the channel is treated as exempt.
type MissingError struct {
	Channel models.Channel
	kind    error
}

func NewMissingError(channel models.Channel) *MissingError {
	return &MissingError{Channel: channel, kind: ErrMissing}
}

// NewInvalidError reports metadata that exists but violates the schema.
// It matches both ErrInvalid and ErrMissing so it can be logged distinctly
// while remaining recoverable the same way.
func NewInvalidError(channel models.Channel) *MissingError {
	return &MissingError{Channel: channel, kind: ErrInvalid}
}

func (e *MissingError) Error() string {
	if errors.Is(e.kind, ErrInvalid) {
		return fmt.Sprintf("invalid Terms of Service for %s", e.Channel)
	}
	return fmt.Sprintf("no Terms of Service for %s", e.Channel)
}

func (e *MissingError) Unwrap() error { return e.kind }

// PermissionError reports a denied read or write on a metadata or cache
// path. It is not recoverable automatically.
type PermissionError struct {
	Path    string
	Channel models.Channel
	Err     error
}

func NewPermissionError(path string, channel models.Channel, err error) *PermissionError {
	return &PermissionError{Path: path, Channel: channel, Err: err}
}

func (e *PermissionError) Error() string {
	addendum := ""
	if !e.Channel.IsZero() {
		addendum = fmt.Sprintf(" for %s", e.Channel)
	}
	return fmt.Sprintf("unable to read/write path (%s)%s, please check permissions", e.Path, addendum)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// RejectedError reports channels with a standing Terms of Service
// rejection. Every affected channel is enumerated in one error so callers
// can present the complete remediation list at once.
type RejectedError struct {
	Channels []models.Channel
}

func NewRejectedError(channels ...models.Channel) *RejectedError {
	return &RejectedError{Channels: channels}
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf(
		"Terms of Service have been rejected for the following channels. "+
			"Please remove or accept them before proceeding:\n%s\n\n"+
			"To accept these channels' Terms of Service, run the following commands:\n%s",
		bullet(channelURLs(e.Channels), "    - "),
		bullet(acceptCommands(e.Channels), "    "),
	)
}

// NonInteractiveError reports channels that need a decision in an execution
// context that cannot prompt. The message carries the exact commands to run
// to accept explicitly.
type NonInteractiveError struct {
	Channels []models.Channel
}

func NewNonInteractiveError(channels ...models.Channel) *NonInteractiveError {
	return &NonInteractiveError{Channels: channels}
}

func (e *NonInteractiveError) Error() string {
	return fmt.Sprintf(
		"Terms of Service have not been accepted for the following channels. "+
			"Please accept or remove them before proceeding:\n%s\n\n"+
			"To accept these channels' Terms of Service, run the following commands:\n%s",
		bullet(channelURLs(e.Channels), "    - "),
		bullet(acceptCommands(e.Channels), "    "),
	)
}

func channelURLs(channels []models.Channel) []string {
	urls := make([]string, len(channels))
	for i, channel := range channels {
		urls[i] = channel.BaseURL()
	}
	return urls
}

func acceptCommands(channels []models.Channel) []string {
	commands := make([]string, len(channels))
	for i, channel := range channels {
		commands[i] = fmt.Sprintf("tosctl accept --channel %s", channel.BaseURL())
	}
	return commands
}

func bullet(lines []string, prefix string) string {
	return prefix + strings.Join(lines, "\n"+prefix)
}
