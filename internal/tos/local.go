package tos

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	json "github.com/goccy/go-json"

	"tosctl/internal/models"
	"tosctl/internal/providers"
)

// ChannelRecord pairs a channel with its newest acceptance record.
type ChannelRecord struct {
	Channel models.Channel
	Pair    *models.Pair
}

// LocalStoreInterface is the acceptance record capability the
// reconciliation engine requires.
type LocalStoreInterface interface {
	Write(root string, channel models.Channel, metadata *models.RemoteMetadata, accepted bool) (*models.Pair, error)
	Read(channel models.Channel, extendSearchPath ...string) (*models.Pair, error)
	ListAll(extendSearchPath ...string) ([]ChannelRecord, error)
}

// LocalStore reads and writes acceptance records on the layered search
// path. One channel may hold one record per decided version; the newest
// version across all roots combined is authoritative, regardless of which
// root holds it. Root priority only breaks version ties.
type LocalStore struct {
	resolver *PathResolver
	metrics  providers.MetricsProviderInterface
	logger   providers.Logger
}

func NewLocalStore(resolver *PathResolver, metrics providers.MetricsProviderInterface, logger providers.Logger) *LocalStore {
	return &LocalStore{resolver: resolver, metrics: metrics, logger: logger}
}

// Write records a decision: a new LocalMetadata stamped with the current
// UTC time and the channel's base URL, stored under root at the document's
// version. Repeated decisions for the same version overwrite.
func (s *LocalStore) Write(root string, channel models.Channel, metadata *models.RemoteMetadata, accepted bool) (*models.Pair, error) {
	if channel.IsZero() {
		return nil, fmt.Errorf("channel must have a base URL")
	}
	if metadata == nil {
		return nil, fmt.Errorf("metadata is required")
	}

	record := &models.LocalMetadata{
		RemoteMetadata:      *metadata,
		BaseURL:             channel.BaseURL(),
		ToSAccepted:         accepted,
		AcceptanceTimestamp: models.NewTimestamp(time.Now()),
	}

	path, err := s.resolver.MetadataPath(root, channel, record.Version)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	dir, err := s.resolver.ChannelDir(root, channel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, NewPermissionError(path, channel, err)
		}
		return nil, err
	}
	if err := atomicWrite(path, payload, 0o644); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, NewPermissionError(path, channel, err)
		}
		return nil, err
	}

	s.metrics.IncDecisions(accepted)
	s.logger.Infof(providers.TypeLocal, "Recorded decision accepted=%t for %s at %s", accepted, channel, path)
	return models.NewLocalPair(record, path), nil
}

// Read returns the newest acceptance record for the channel across every
// root in the search path, or a MissingError when none exists. Corrupt or
// schema-invalid files are skipped.
func (s *LocalStore) Read(channel models.Channel, extendSearchPath ...string) (*models.Pair, error) {
	var best *models.LocalMetadata
	var bestPath string
	for _, path := range s.resolver.ChannelPaths(channel, extendSearchPath...) {
		record, err := s.readRecord(path, channel)
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		// strictly-after keeps the earlier (higher priority) record on ties
		if best == nil || record.Version.After(best.Version.Time) {
			best, bestPath = record, path
		}
	}
	if best == nil {
		return nil, NewMissingError(channel)
	}
	return models.NewLocalPair(best, bestPath), nil
}

// ListAll enumerates every channel with at least one acceptance record
// anywhere in the search path, applying the same newest-wins rule per
// channel. Results are ordered by base URL.
func (s *LocalStore) ListAll(extendSearchPath ...string) ([]ChannelRecord, error) {
	type entry struct {
		record *models.LocalMetadata
		path   string
	}
	newest := make(map[string]entry)
	for _, path := range s.resolver.AllChannelPaths(extendSearchPath...) {
		record, err := s.readRecord(path, models.Channel{})
		if err != nil {
			return nil, err
		}
		if record == nil {
			continue
		}
		current, ok := newest[record.BaseURL]
		if !ok || record.Version.After(current.record.Version.Time) {
			newest[record.BaseURL] = entry{record: record, path: path}
		}
	}

	urls := make([]string, 0, len(newest))
	for baseURL := range newest {
		urls = append(urls, baseURL)
	}
	sort.Strings(urls)

	records := make([]ChannelRecord, 0, len(urls))
	for _, baseURL := range urls {
		channel, err := models.NewChannel(baseURL)
		if err != nil {
			s.logger.Warnf(providers.TypeLocal, "Skipping record with invalid base URL %q", baseURL)
			continue
		}
		e := newest[baseURL]
		records = append(records, ChannelRecord{
			Channel: channel,
			Pair:    models.NewLocalPair(e.record, e.path),
		})
	}
	return records, nil
}

// readRecord loads one acceptance record. Missing and invalid files resolve
// to nil; permission failures surface as PermissionError.
func (s *LocalStore) readRecord(path string, channel models.Channel) (*models.LocalMetadata, error) {
	payload, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil, nil
	case errors.Is(err, fs.ErrPermission):
		return nil, NewPermissionError(path, channel, err)
	case err != nil:
		return nil, err
	}

	var record models.LocalMetadata
	if err := json.Unmarshal(payload, &record); err != nil {
		s.logger.Warnf(providers.TypeLocal, "Skipping corrupt record %s: %s", path, err)
		return nil, nil
	}
	if err := record.Validate(); err != nil {
		s.logger.Warnf(providers.TypeLocal, "Skipping invalid record %s: %s", path, err)
		return nil, nil
	}
	return &record, nil
}

// atomicWrite writes data through a temp file and rename so a reader never
// observes a half-written file.
func atomicWrite(path string, data []byte, mode os.FileMode) error {
	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err = file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err = file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
