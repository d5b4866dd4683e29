package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/up-zero/gotool/imageutil"

	"defect-segmentation/coco"
	"defect-segmentation/db"
	"defect-segmentation/models"
	"defect-segmentation/remote"
	"defect-segmentation/segmask"
	"defect-segmentation/utils"
)

type annotateConfig struct {
	Annotations string
	DataDir     string
	OutDir      string
	ServiceURL  string
	DBPath      string
	Confidence  float64
	Alpha       float64
}

// runAnnotate asks the remote inference service for polygon predictions per
// image and rasterizes them exactly as locally annotated polygons would be.
// A failed image is skipped, not fatal for the run.
func runAnnotate(cfg annotateConfig) error {
	logger := utils.GetLogger()
	ctx := context.Background()

	doc, err := coco.Load(cfg.Annotations)
	if err != nil {
		return err
	}

	labels := doc.Labels()
	idByName := make(map[string]int32, len(labels))
	ids := []int32{segmask.BackgroundID}
	for id, name := range labels {
		idByName[name] = int32(id)
		ids = append(ids, int32(id))
	}

	client := remote.NewClient(cfg.ServiceURL)
	if err := client.HealthCheck(); err != nil {
		return err
	}

	store, err := db.NewSQLiteClient(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.CreateRun("annotate", cfg.ServiceURL, cfg.Confidence)
	if err != nil {
		return err
	}

	exp, err := newExporter(cfg.OutDir, segmask.DefaultColorTable(ids), cfg.Alpha, func(id int32) (string, bool) {
		name, ok := labels[int(id)]
		return name, ok
	})
	if err != nil {
		return err
	}
	defer exp.close()

	exported := 0
	for i, rec := range doc.Images {
		log.Printf("[%d/%d] %s", i+1, len(doc.Images), rec.FileName)

		imagePath := filepath.Join(cfg.DataDir, rec.FileName)
		start := time.Now()
		regions, err := client.Predict(ctx, imagePath, cfg.Confidence)
		if err != nil {
			var retryable *remote.RetryableError
			if errors.As(err, &retryable) {
				logger.ErrorContext(ctx, "remote inference still failing after retries",
					slog.String("image", rec.FileName), slog.Any("error", xerrors.New(err)))
				continue
			}
			return fmt.Errorf("remote inference rejected %s: %w", rec.FileName, err)
		}
		latency := time.Since(start)

		canvas := segmask.NewMask(rec.Width, rec.Height)
		for _, region := range regions {
			id, ok := idByName[region.Class]
			if !ok {
				// Classes outside the label set are tolerated, not fatal.
				logger.WarnContext(ctx, "remote prediction uses unknown class",
					slog.String("class", region.Class), slog.String("image", rec.FileName))
				continue
			}
			canvas = segmask.FillPolygon(canvas, segmask.PointsFromFlat(region.Points), id)
		}

		img, err := imageutil.Open(imagePath)
		if err != nil {
			return fmt.Errorf("failed to load image %s: %w", imagePath, err)
		}

		maskPath, blendPath, err := exp.export(rec.FileName, img, canvas)
		if err != nil {
			return err
		}

		record := models.MaskRecord{
			RunID:     runID,
			Image:     rec.FileName,
			MaskPath:  maskPath,
			BlendPath: blendPath,
			Threshold: cfg.Confidence,
			LatencyMs: float64(latency.Milliseconds()),
			ClassPixels: classPixelCounts(canvas, func(id int32) (string, bool) {
				name, ok := labels[int(id)]
				return name, ok
			}),
		}
		if err := store.StoreMaskRecord(&record); err != nil {
			logger.ErrorContext(ctx, "failed to store mask record",
				slog.String("image", rec.FileName), slog.Any("error", xerrors.New(err)))
			continue
		}
		exported++
	}

	log.Printf("Run %d complete: %d/%d images annotated to %s", runID, exported, len(doc.Images), cfg.OutDir)
	if total, err := store.TotalMaskRecords(); err == nil {
		log.Printf("Database now holds %d mask records", total)
	}
	return nil
}
