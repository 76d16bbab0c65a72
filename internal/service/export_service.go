package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/breakthrough-cafe/cafe-cms/internal/models"
	"github.com/breakthrough-cafe/cafe-cms/internal/repository"
	"github.com/rs/zerolog"
)

// Export formats
const (
	FormatNDJSON = "ndjson"
	FormatJSON   = "json"
)

// flushEvery is how many records are written between flushes
const flushEvery = 100

// exportService is the concrete implementation of ExportService
type exportService struct {
	repo repository.ArticleRepository
	log  zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repo repository.ArticleRepository, log zerolog.Logger) *exportService {
	return &exportService{
		repo: repo,
		log:  log.With().Str("service", "export").Logger(),
	}
}

type flusher interface {
	Flush()
}

// StreamArticles streams articles in the specified format
func (s *exportService) StreamArticles(ctx context.Context, w io.Writer, format string, filter models.ArticleFilter) (int, error) {
	s.log.Info().Str("format", format).Msg("Starting articles export")

	var (
		count int
		err   error
	)
	switch format {
	case FormatNDJSON:
		count, err = s.streamNDJSON(ctx, w, filter)
	case FormatJSON:
		count, err = s.streamJSON(ctx, w, filter)
	default:
		return 0, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		s.log.Error().Err(err).Int("count", count).Msg("Articles export failed")
		return count, err
	}

	s.log.Info().Int("count", count).Msg("Articles export completed")
	return count, nil
}

func (s *exportService) streamNDJSON(ctx context.Context, w io.Writer, filter models.ArticleFilter) (int, error) {
	f, _ := w.(flusher)
	count := 0

	err := s.repo.StreamAll(ctx, filter, func(article *models.Article) error {
		data, err := json.Marshal(article)
		if err != nil {
			return err
		}
		if _, err := w.Write(append(data, '\n')); err != nil {
			return err
		}
		count++

		if count%flushEvery == 0 && f != nil {
			f.Flush()
		}
		return nil
	})
	return count, err
}

func (s *exportService) streamJSON(ctx context.Context, w io.Writer, filter models.ArticleFilter) (int, error) {
	f, _ := w.(flusher)
	count := 0

	if _, err := w.Write([]byte("[")); err != nil {
		return 0, err
	}

	err := s.repo.StreamAll(ctx, filter, func(article *models.Article) error {
		if count > 0 {
			if _, err := w.Write([]byte(",")); err != nil {
				return err
			}
		}

		data, err := json.Marshal(article)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		count++

		if count%flushEvery == 0 && f != nil {
			f.Flush()
		}
		return nil
	})
	if err != nil {
		return count, err
	}

	_, err = w.Write([]byte("]"))
	return count, err
}
