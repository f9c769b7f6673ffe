package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"tosctl/internal/models"
	"tosctl/internal/providers"
	"tosctl/internal/tos"
)

// ChannelPair couples a channel with its reconciled Terms of Service view.
type ChannelPair struct {
	Channel models.Channel
	Pair    *models.Pair
}

// ChannelListing is one row of the full listing; Pair is nil when the
// channel has no metadata anywhere.
type ChannelListing struct {
	Channel models.Channel
	Pair    *models.Pair
}

// GatherResult partitions channels by their current acceptance state.
type GatherResult struct {
	// Accepted holds current, accepted decisions keyed by base URL.
	Accepted map[string]*models.LocalMetadata
	// Rejected holds channels with a current, standing rejection.
	Rejected []models.Channel
	// Pending holds channels that are undecided or outdated.
	Pending []ChannelPair
}

type ToSServiceInterface interface {
	Reconcile(ctx context.Context, channel models.Channel, tosRoot string, cacheTimeout time.Duration) (*models.Pair, error)
	Gather(ctx context.Context, channels []models.Channel, tosRoot string, cacheTimeout time.Duration) (*GatherResult, error)
	Accept(ctx context.Context, channel models.Channel, tosRoot string, cacheTimeout time.Duration) (*models.Pair, error)
	Reject(ctx context.Context, channel models.Channel, tosRoot string, cacheTimeout time.Duration) (*models.Pair, error)
	ListAll(ctx context.Context, channels []models.Channel, tosRoot string, cacheTimeout time.Duration) ([]ChannelListing, error)
	CleanCache() []string
	CleanToS(tosRoot string) []string
	AcceptanceHeader(channels []models.Channel, tosRoot string, ci bool) string
	SearchPath() []string
	CacheDir() string
}

// ToSService merges remote Terms of Service documents with local acceptance
// records into decision-ready pairs.
type ToSService struct {
	fetcher  tos.RemoteFetcherInterface
	store    tos.LocalStoreInterface
	resolver *tos.PathResolver
	logger   providers.Logger
}

func NewToSService(
	fetcher tos.RemoteFetcherInterface,
	store tos.LocalStoreInterface,
	resolver *tos.PathResolver,
	logger providers.Logger,
) ToSServiceInterface {
	return &ToSService{
		fetcher:  fetcher,
		store:    store,
		resolver: resolver,
		logger:   logger,
	}
}

// Reconcile merges the channel's local record and remote document.
//
// With no local record the result carries only the remote document. With a
// local record at least as new as the remote (or no remote at all) the
// local decision stands unchanged; the remote document is discarded so
// downstream consumers never see a stale re-prompt signal. Only a strictly
// newer remote marks the pair outdated, carrying both the old decision and
// the new document. A channel missing on both sides yields the remote
// MissingError.
func (s *ToSService) Reconcile(ctx context.Context, channel models.Channel, tosRoot string, cacheTimeout time.Duration) (*models.Pair, error) {
	remote, remoteErr := s.fetcher.Fetch(ctx, channel, cacheTimeout)
	if remoteErr != nil && !errors.Is(remoteErr, tos.ErrMissing) {
		return nil, remoteErr
	}

	local, localErr := s.store.Read(channel, tosRoot)
	if localErr != nil {
		if !errors.Is(localErr, tos.ErrMissing) {
			return nil, localErr
		}
		if remoteErr != nil {
			return nil, remoteErr
		}
		return models.NewRemotePair(remote), nil
	}

	if remote == nil || !remote.NewerThan(&local.Local.RemoteMetadata) {
		return local, nil
	}
	return &models.Pair{
		Local:  local.Local,
		Path:   local.Path,
		Remote: remote,
	}, nil
}

// Gather reconciles every channel and partitions the results. Channels with
// no metadata anywhere are silently excluded.
func (s *ToSService) Gather(ctx context.Context, channels []models.Channel, tosRoot string, cacheTimeout time.Duration) (*GatherResult, error) {
	result := &GatherResult{Accepted: make(map[string]*models.LocalMetadata)}
	for _, channel := range channels {
		pair, err := s.Reconcile(ctx, channel, tosRoot, cacheTimeout)
		if err != nil {
			if errors.Is(err, tos.ErrMissing) {
				continue
			}
			return nil, err
		}

		switch {
		case pair.Outdated() || !pair.Decided():
			result.Pending = append(result.Pending, ChannelPair{Channel: channel, Pair: pair})
		case pair.Accepted():
			result.Accepted[channel.BaseURL()] = pair.Local
		default:
			result.Rejected = append(result.Rejected, channel)
		}
	}
	return result, nil
}

// Accept records an acceptance of the latest available document.
func (s *ToSService) Accept(ctx context.Context, channel models.Channel, tosRoot string, cacheTimeout time.Duration) (*models.Pair, error) {
	return s.decide(ctx, channel, tosRoot, cacheTimeout, true)
}

// Reject records a rejection of the latest available document.
func (s *ToSService) Reject(ctx context.Context, channel models.Channel, tosRoot string, cacheTimeout time.Duration) (*models.Pair, error) {
	return s.decide(ctx, channel, tosRoot, cacheTimeout, false)
}

func (s *ToSService) decide(ctx context.Context, channel models.Channel, tosRoot string, cacheTimeout time.Duration, accepted bool) (*models.Pair, error) {
	pair, err := s.Reconcile(ctx, channel, tosRoot, cacheTimeout)
	if err != nil {
		return nil, err
	}
	return s.store.Write(tosRoot, channel, pair.Latest(), accepted)
}

// ListAll reports the given channels plus every other channel with a stored
// record. Stored-only channels are included when their document is still
// published; the newest view wins as in Reconcile.
func (s *ToSService) ListAll(ctx context.Context, channels []models.Channel, tosRoot string, cacheTimeout time.Duration) ([]ChannelListing, error) {
	seen := make(map[string]struct{}, len(channels))
	listings := make([]ChannelListing, 0, len(channels))

	for _, channel := range channels {
		seen[channel.BaseURL()] = struct{}{}
		pair, err := s.Reconcile(ctx, channel, tosRoot, cacheTimeout)
		if err != nil {
			if errors.Is(err, tos.ErrMissing) {
				listings = append(listings, ChannelListing{Channel: channel})
				continue
			}
			return nil, err
		}
		listings = append(listings, ChannelListing{Channel: channel, Pair: pair})
	}

	records, err := s.store.ListAll(tosRoot)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if _, ok := seen[record.Channel.BaseURL()]; ok {
			continue
		}
		seen[record.Channel.BaseURL()] = struct{}{}

		remote, err := s.fetcher.Fetch(ctx, record.Channel, cacheTimeout)
		if err != nil {
			if errors.Is(err, tos.ErrMissing) {
				continue
			}
			return nil, err
		}
		pair := record.Pair
		if remote.NewerThan(&pair.Local.RemoteMetadata) {
			pair = &models.Pair{Local: pair.Local, Path: pair.Path, Remote: remote}
		}
		listings = append(listings, ChannelListing{Channel: record.Channel, Pair: pair})
	}
	return listings, nil
}

// CleanCache removes every endpoint cache file, best effort, and returns
// the removed paths.
func (s *ToSService) CleanCache() []string {
	return unlinkAll(s.resolver.CachePaths())
}

// CleanToS removes every acceptance record on the search path, best
// effort, and returns the removed paths.
func (s *ToSService) CleanToS(tosRoot string) []string {
	return unlinkAll(s.resolver.AllChannelPaths(tosRoot))
}

// AcceptanceHeader builds the acceptance report value hosts attach to
// repository requests: one field per locally decided channel, formatted as
// url=versionEpoch=decision=decisionEpoch, joined with semicolons.
func (s *ToSService) AcceptanceHeader(channels []models.Channel, tosRoot string, ci bool) string {
	var fields []string
	for _, channel := range channels {
		pair, err := s.store.Read(channel, tosRoot)
		if err != nil {
			continue
		}
		decision := "rejected"
		if pair.Local.ToSAccepted {
			decision = "accepted"
		}
		fields = append(fields, strings.Join([]string{
			channel.BaseURL(),
			fmt.Sprintf("%d", pair.Local.Version.Epoch()),
			decision,
			fmt.Sprintf("%d", pair.Local.AcceptanceTimestamp.Epoch()),
		}, "="))
	}
	if ci {
		fields = append(fields, "CI=true")
	}
	return strings.Join(fields, ";")
}

func (s *ToSService) SearchPath() []string { return s.resolver.SearchPath() }

func (s *ToSService) CacheDir() string { return s.resolver.CacheDir() }

func unlinkAll(paths []string) []string {
	var removed []string
	for _, path := range paths {
		if err := os.Remove(path); err != nil {
			continue
		}
		removed = append(removed, path)
	}
	return removed
}
