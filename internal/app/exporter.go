package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"

	"github.com/tallyops/clickerd/internal/domain/subtitle"
	"github.com/tallyops/clickerd/pkg/logger"
)

// ExportOptions selects what goes into a details archive.
type ExportOptions struct {
	TXT     bool   `json:"txt"`
	SRT     bool   `json:"srt"`
	SRTMode string `json:"srt_mode"`
}

// WithCaptionTiming overrides the caption merge timing used by
// exports.
func WithCaptionTiming(burstThreshold, hold int) Option {
	return func(s *Service) {
		if burstThreshold > 0 {
			s.burstThresholdMS = burstThreshold
		}
		if hold > 0 {
			s.captionHoldMS = hold
		}
	}
}

// ExportDetails assembles a zip archive of a group's per-judge stream
// artifacts: tab-separated event logs and caption files. Contestants
// without data are skipped; an archive with nothing in it is an error.
func (s *Service) ExportDetails(ctx context.Context, group string, players []string, opts ExportOptions) ([]byte, error) {
	if !opts.TXT && !opts.SRT {
		return nil, fmt.Errorf("%w: nothing selected", ErrInvalidSetup)
	}

	srtMode := subtitle.ModeTotal
	if opts.SRT {
		mode, err := subtitle.ParseMode(opts.SRTMode)
		if err != nil && opts.SRTMode != "" {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSetup, err)
		}
		if err == nil {
			srtMode = mode
		}
	}

	streams, err := s.store.ListStreams(ctx, group)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(players))
	for _, p := range players {
		wanted[p] = true
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	written := 0

	merger := subtitle.NewMerger(
		subtitle.WithBurstThreshold(msToDuration(s.burstThresholdMS)),
		subtitle.WithHoldDuration(msToDuration(s.captionHoldMS)),
	)

	for _, stream := range streams {
		if len(players) > 0 && !wanted[stream.Contestant] {
			continue
		}

		events, err := s.store.LoadStream(ctx, group, stream.Contestant, stream.Judge)
		if err != nil {
			s.logger.Warn(ctx, "skipping unreadable stream",
				logger.String("contestant", stream.Contestant),
				logger.Int("judge", stream.Judge),
				logger.Error(err),
			)
			continue
		}
		if len(events) == 0 {
			continue
		}

		if opts.TXT {
			name := fmt.Sprintf("%s/%s/Ref%d_Log.txt", group, stream.Contestant, stream.Judge)
			if err := writeZipEntry(zw, name, subtitle.RenderTXT(events)); err != nil {
				return nil, err
			}
			written++
		}
		if opts.SRT {
			entries, err := merger.Merge(srtMode, events)
			if err != nil {
				return nil, err
			}
			name := fmt.Sprintf("%s/%s/Ref%d_%s.srt", group, stream.Contestant, stream.Judge, srtMode)
			if err := writeZipEntry(zw, name, subtitle.RenderSRT(entries)); err != nil {
				return nil, err
			}
			written++
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	if written == 0 {
		return nil, fmt.Errorf("%w: group %q", ErrNoExportData, group)
	}

	s.logger.Info(ctx, "details exported",
		logger.String("group", group),
		logger.Int("files", written),
	)
	return buf.Bytes(), nil
}

func writeZipEntry(zw *zip.Writer, name, content string) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create archive entry %s: %w", name, err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		return fmt.Errorf("write archive entry %s: %w", name, err)
	}
	return nil
}
