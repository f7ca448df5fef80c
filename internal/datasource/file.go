package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// FileSourceName is the name reported by FileSource
const FileSourceName = "file"

// FileSource reads a JSON snapshot from disk on every Load, so an
// externally refreshed file is picked up by the next scan.
type FileSource struct {
	path      string
	validator *FeedValidator
	logger    *logrus.Logger
	now       func() time.Time
}

// NewFileSource creates a file-backed data source
func NewFileSource(path string, logger *logrus.Logger) *FileSource {
	return &FileSource{
		path:      path,
		validator: NewFeedValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// Name returns the data source name
func (s *FileSource) Name() string {
	return FileSourceName
}

// Load reads, decodes and validates the snapshot
func (s *FileSource) Load(ctx context.Context) (*Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewDataSourceError(s.Name(), ErrCodeNotFound, s.path, err)
		}
		return nil, NewDataSourceError(s.Name(), ErrCodeUnknown, s.path, err)
	}

	var feed Feed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, NewDataSourceError(s.Name(), ErrCodeInvalidData, "decode "+s.path, err)
	}
	feed.LoadedAt = s.now().UTC()

	if problems := s.validator.Validate(&feed); len(problems) > 0 {
		return nil, NewDataSourceError(s.Name(), ErrCodeInvalidData,
			fmt.Sprintf("%d problems: %s", len(problems), strings.Join(problems, "; ")), nil)
	}

	s.logger.WithFields(logrus.Fields{
		"path":     s.path,
		"teams":    len(feed.Teams),
		"results":  len(feed.Results),
		"fixtures": len(feed.Fixtures),
		"quotes":   len(feed.Quotes),
		"external": len(feed.External),
	}).Info("Snapshot loaded")

	return &feed, nil
}
