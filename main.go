package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"defect-segmentation/utils"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = godotenv.Load()

	switch os.Args[1] {
	case "segment":
		cmd := flag.NewFlagSet("segment", flag.ExitOnError)
		annotations := cmd.String("annotations", utils.GetEnv("SEG_ANNOTATIONS", "data/_annotations.coco.json"),
			"Path to the COCO annotation file")
		dataDir := cmd.String("data-dir", utils.GetEnv("SEG_DATA_DIR", "data"),
			"Directory containing the dataset images")
		outDir := cmd.String("out-dir", utils.GetEnv("SEG_OUTPUT_DIR", "output"),
			"Directory for exported masks and visualizations")
		modelPath := cmd.String("model", utils.GetEnv("SEG_MODEL_PATH", "models/segnet.onnx"),
			"Path to the exported segmentation network")
		onnxLib := cmd.String("onnx-lib", utils.GetEnv("SEG_ONNX_LIB", ""),
			"Path to the onnxruntime shared library (platform default if empty)")
		dbPath := cmd.String("db", utils.GetEnv("SEG_DB_PATH", "db/segmentation.db"),
			"Path to the SQLite record database")
		threshold := cmd.Float64("threshold", envFloat("SEG_CONFIDENCE_THRESHOLD", 0.8),
			"Minimum per-class confidence; pixels below it become background")
		alpha := cmd.Float64("alpha", envFloat("SEG_BLEND_ALPHA", 0.5),
			"Mask overlay opacity in the blended visualization")
		cmd.Parse(os.Args[2:])

		if err := runSegment(segmentConfig{
			Annotations: *annotations,
			DataDir:     *dataDir,
			OutDir:      *outDir,
			ModelPath:   *modelPath,
			OnnxLib:     *onnxLib,
			DBPath:      *dbPath,
			Threshold:   *threshold,
			Alpha:       *alpha,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "segment failed: %v\n", err)
			os.Exit(1)
		}
	case "annotate":
		cmd := flag.NewFlagSet("annotate", flag.ExitOnError)
		annotations := cmd.String("annotations", utils.GetEnv("SEG_ANNOTATIONS", "data/_annotations.coco.json"),
			"Path to the COCO annotation file (label set and image list)")
		dataDir := cmd.String("data-dir", utils.GetEnv("SEG_DATA_DIR", "data"),
			"Directory containing the dataset images")
		outDir := cmd.String("out-dir", utils.GetEnv("SEG_OUTPUT_DIR", "output"),
			"Directory for exported masks and visualizations")
		serviceURL := cmd.String("service", utils.GetEnv("SEG_REMOTE_URL", ""),
			"Base URL of the remote inference service")
		dbPath := cmd.String("db", utils.GetEnv("SEG_DB_PATH", "db/segmentation.db"),
			"Path to the SQLite record database")
		confidence := cmd.Float64("confidence", envFloat("SEG_CONFIDENCE_THRESHOLD", 0.8),
			"Minimum confidence requested from the remote service")
		alpha := cmd.Float64("alpha", envFloat("SEG_BLEND_ALPHA", 0.5),
			"Mask overlay opacity in the blended visualization")
		cmd.Parse(os.Args[2:])

		if err := runAnnotate(annotateConfig{
			Annotations: *annotations,
			DataDir:     *dataDir,
			OutDir:      *outDir,
			ServiceURL:  *serviceURL,
			DBPath:      *dbPath,
			Confidence:  *confidence,
			Alpha:       *alpha,
		}); err != nil {
			fmt.Fprintf(os.Stderr, "annotate failed: %v\n", err)
			os.Exit(1)
		}
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Expected 'segment' or 'annotate' subcommand")
	fmt.Println("  segment   run the local model over the dataset and export confidence-gated masks")
	fmt.Println("  annotate  fetch polygon predictions from the remote service and export their masks")
}

func envFloat(key string, fallback float64) float64 {
	raw := utils.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}
