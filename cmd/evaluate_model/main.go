package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"defect-segmentation/coco"
	"defect-segmentation/inference"
	"defect-segmentation/segmask"
)

// EvaluationConfig holds evaluation parameters
type EvaluationConfig struct {
	AnnotationsPath string
	DataDir         string
	ModelPath       string
	OnnxLib         string
	Threshold       float64
	ReportPath      string
	Verbose         bool
}

// ClassReport tracks per-class agreement with the ground-truth masks
type ClassReport struct {
	ClassID int32   `json:"classId"`
	Name    string  `json:"name"`
	IoU     float64 `json:"iou"`
}

// EvaluationReport contains the full evaluation results
type EvaluationReport struct {
	Timestamp     time.Time     `json:"timestamp"`
	ModelPath     string        `json:"modelPath"`
	Threshold     float64       `json:"threshold"`
	Samples       int           `json:"samples"`
	PixelAccuracy float64       `json:"pixelAccuracy"`
	MeanIoU       float64       `json:"meanIoU"`
	Classes       []ClassReport `json:"classes"`
	ProcessingSec float64       `json:"processingSec"`
}

func main() {
	config := parseFlags()

	log.SetFlags(log.Ldate | log.Ltime)
	log.Println("=== Model Evaluation Pipeline ===")
	log.Printf("Model: %s\n", config.ModelPath)
	log.Printf("Annotations: %s\n", config.AnnotationsPath)
	log.Printf("Confidence threshold: %.2f\n", config.Threshold)
	log.Println()

	startTime := time.Now()

	// Load the ground-truth dataset
	log.Println("Compiling ground-truth dataset...")
	doc, err := coco.Load(config.AnnotationsPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to parse annotations: %v", err)
	}
	dataset, err := segmask.BuildDataset(doc, config.DataDir, nil)
	if err != nil {
		log.Fatalf("ERROR: Failed to build dataset: %v", err)
	}
	log.Printf("Compiled %d samples covering %d classes\n", dataset.Len(), dataset.ClassCount())

	classes := dataset.ClassCount() - 1
	if classes == 0 {
		log.Fatalf("ERROR: No usable categories in %s", config.AnnotationsPath)
	}

	// Load the model
	log.Println("Loading segmentation model...")
	model, err := inference.NewONNXModel(inference.ONNXConfig{
		ModelPath:   config.ModelPath,
		LibraryPath: config.OnnxLib,
		Classes:     classes,
	})
	if err != nil {
		log.Fatalf("ERROR: Failed to load model: %v", err)
	}
	defer model.Destroy()

	// Run the model over every sample and accumulate agreement stats
	log.Println("Evaluating...")
	stats := segmask.NewEvalStats()
	for i := 0; i < dataset.Len(); i++ {
		sample, err := dataset.Get(i)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}

		probs, err := model.Infer(sample.Image)
		if err != nil {
			log.Fatalf("ERROR: Inference failed for %s: %v", sample.Name, err)
		}

		predicted, err := segmask.GateMask(probs, float32(config.Threshold))
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}

		if err := stats.AddPair(predicted, sample.Mask); err != nil {
			log.Fatalf("ERROR: %s: %v", sample.Name, err)
		}

		if config.Verbose {
			log.Printf("  [%d/%d] %s\n", i+1, dataset.Len(), sample.Name)
		}
	}

	report := buildReport(config, dataset, stats, startTime)
	printReport(report)

	if config.ReportPath != "" {
		if err := saveReport(report, config.ReportPath); err != nil {
			log.Fatalf("ERROR: Failed to save report: %v", err)
		}
		log.Printf("Report saved to: %s\n", config.ReportPath)
	}
}

func parseFlags() EvaluationConfig {
	config := EvaluationConfig{}

	flag.StringVar(&config.AnnotationsPath, "annotations", "data/_annotations.coco.json",
		"Path to the COCO annotation file")
	flag.StringVar(&config.DataDir, "data-dir", "data",
		"Directory containing the dataset images")
	flag.StringVar(&config.ModelPath, "model", "models/segnet.onnx",
		"Path to the exported segmentation network")
	flag.StringVar(&config.OnnxLib, "onnx-lib", "",
		"Path to the onnxruntime shared library (platform default if empty)")
	flag.Float64Var(&config.Threshold, "threshold", 0.8,
		"Minimum per-class confidence; pixels below it become background")
	flag.StringVar(&config.ReportPath, "report", "",
		"Optional path for the JSON evaluation report")
	flag.BoolVar(&config.Verbose, "verbose", false,
		"Log per-sample progress")

	flag.Parse()

	if _, err := os.Stat(config.AnnotationsPath); os.IsNotExist(err) {
		log.Fatalf("ERROR: Annotation file does not exist: %s", config.AnnotationsPath)
	}

	return config
}

func buildReport(config EvaluationConfig, dataset *segmask.Dataset, stats *segmask.EvalStats, startTime time.Time) EvaluationReport {
	report := EvaluationReport{
		Timestamp:     time.Now(),
		ModelPath:     config.ModelPath,
		Threshold:     config.Threshold,
		Samples:       stats.Pairs(),
		PixelAccuracy: stats.PixelAccuracy(),
		MeanIoU:       stats.MeanIoU(),
		ProcessingSec: time.Since(startTime).Seconds(),
	}

	ious := stats.ClassIoU()
	for _, id := range stats.ClassIDs() {
		name, ok := dataset.ClassName(id)
		if !ok {
			name = "(unmapped)"
		}
		report.Classes = append(report.Classes, ClassReport{
			ClassID: id,
			Name:    name,
			IoU:     ious[id],
		})
	}

	return report
}

func printReport(report EvaluationReport) {
	log.Println()
	log.Println("=== Evaluation Summary ===")
	log.Printf("Samples: %d\n", report.Samples)
	log.Printf("Pixel accuracy: %.4f\n", report.PixelAccuracy)
	log.Printf("Mean IoU: %.4f\n", report.MeanIoU)
	for _, c := range report.Classes {
		log.Printf("  class %d %-20s IoU %.4f\n", c.ClassID, c.Name, c.IoU)
	}
	log.Printf("Completed in %.2fs\n", report.ProcessingSec)
}

func saveReport(report EvaluationReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
