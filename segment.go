package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/mdobak/go-xerrors"

	"defect-segmentation/coco"
	"defect-segmentation/db"
	"defect-segmentation/inference"
	"defect-segmentation/models"
	"defect-segmentation/segmask"
	"defect-segmentation/utils"
)

type segmentConfig struct {
	Annotations string
	DataDir     string
	OutDir      string
	ModelPath   string
	OnnxLib     string
	DBPath      string
	Threshold   float64
	Alpha       float64
}

// runSegment compiles the dataset, runs the local model over every sample and
// exports the confidence-gated masks, one record per image.
func runSegment(cfg segmentConfig) error {
	logger := utils.GetLogger()
	ctx := context.Background()

	doc, err := coco.Load(cfg.Annotations)
	if err != nil {
		return err
	}

	log.Printf("Compiling dataset from %s (%d images, %d annotations)...",
		cfg.Annotations, len(doc.Images), len(doc.Annotations))
	dataset, err := segmask.BuildDataset(doc, cfg.DataDir, nil)
	if err != nil {
		return err
	}

	classes := dataset.ClassCount() - 1
	if classes == 0 {
		return fmt.Errorf("annotation file %s has no usable categories", cfg.Annotations)
	}

	model, err := inference.NewONNXModel(inference.ONNXConfig{
		ModelPath:   cfg.ModelPath,
		LibraryPath: cfg.OnnxLib,
		Classes:     classes,
	})
	if err != nil {
		return err
	}
	defer model.Destroy()

	client, err := db.NewSQLiteClient(cfg.DBPath)
	if err != nil {
		return err
	}
	defer client.Close()

	runID, err := client.CreateRun("segment", cfg.ModelPath, cfg.Threshold)
	if err != nil {
		return err
	}

	exp, err := newExporter(cfg.OutDir, segmask.DefaultColorTable(dataset.ClassIDs()), cfg.Alpha, dataset.ClassName)
	if err != nil {
		return err
	}
	defer exp.close()

	exported := 0
	for i := 0; i < dataset.Len(); i++ {
		sample, err := dataset.Get(i)
		if err != nil {
			return err
		}

		log.Printf("[%d/%d] %s", i+1, dataset.Len(), sample.Name)

		start := time.Now()
		probs, err := model.Infer(sample.Image)
		if err != nil {
			return fmt.Errorf("inference failed for %s: %w", sample.Name, err)
		}

		mask, err := segmask.GateMask(probs, float32(cfg.Threshold))
		if err != nil {
			return err
		}
		latency := time.Since(start)

		maskPath, blendPath, err := exp.export(sample.Name, sample.Image, mask)
		if err != nil {
			return err
		}

		record := models.MaskRecord{
			RunID:       runID,
			Image:       sample.Name,
			MaskPath:    maskPath,
			BlendPath:   blendPath,
			Threshold:   cfg.Threshold,
			LatencyMs:   float64(latency.Milliseconds()),
			ClassPixels: classPixelCounts(mask, dataset.ClassName),
		}
		if err := client.StoreMaskRecord(&record); err != nil {
			logger.ErrorContext(ctx, "failed to store mask record",
				slog.String("image", sample.Name), slog.Any("error", xerrors.New(err)))
			continue
		}
		exported++
	}

	log.Printf("Run %d complete: %d/%d images exported to %s", runID, exported, dataset.Len(), cfg.OutDir)
	if total, err := client.TotalMaskRecords(); err == nil {
		log.Printf("Database now holds %d mask records", total)
	}
	return nil
}
