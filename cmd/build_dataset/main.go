package main

import (
	"flag"
	"log"
	"os"
	"sort"
	"time"

	"defect-segmentation/coco"
	"defect-segmentation/segmask"
)

// Config holds dataset build configuration
type Config struct {
	AnnotationsPath string
	DataDir         string
	Verbose         bool
}

func main() {
	config := parseFlags()

	log.SetFlags(log.Ldate | log.Ltime)
	log.Println("=== Dataset Compilation Pipeline ===")
	log.Printf("Annotations: %s\n", config.AnnotationsPath)
	log.Printf("Image data: %s\n", config.DataDir)
	log.Println()

	startTime := time.Now()

	// Step 1: Parse the annotation document
	log.Println("Step 1: Parsing annotations...")
	doc, err := coco.Load(config.AnnotationsPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to parse annotations: %v", err)
	}
	log.Printf("Found %d images, %d annotations, %d categories\n",
		len(doc.Images), len(doc.Annotations), len(doc.Categories))

	// Step 2: Compile masks and build the dataset
	log.Println("Step 2: Compiling label masks...")
	dataset, err := segmask.BuildDataset(doc, config.DataDir, nil)
	if err != nil {
		log.Fatalf("ERROR: Failed to build dataset: %v", err)
	}
	log.Printf("Compiled %d samples\n", dataset.Len())
	log.Println()

	// Step 3: Print per-class pixel statistics
	printSummary(dataset, startTime, config.Verbose)
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.AnnotationsPath, "annotations", "data/_annotations.coco.json",
		"Path to the COCO annotation file")
	flag.StringVar(&config.DataDir, "data-dir", "data",
		"Directory containing the dataset images")
	flag.BoolVar(&config.Verbose, "verbose", false,
		"Log per-sample mask statistics")

	flag.Parse()

	if _, err := os.Stat(config.AnnotationsPath); os.IsNotExist(err) {
		log.Fatalf("ERROR: Annotation file does not exist: %s", config.AnnotationsPath)
	}
	if _, err := os.Stat(config.DataDir); os.IsNotExist(err) {
		log.Fatalf("ERROR: Data directory does not exist: %s", config.DataDir)
	}

	return config
}

func printSummary(dataset *segmask.Dataset, startTime time.Time, verbose bool) {
	classPixels := make(map[int32]int64)
	var labelledTotal, pixelTotal int64

	for i := 0; i < dataset.Len(); i++ {
		sample, err := dataset.Get(i)
		if err != nil {
			log.Fatalf("ERROR: %v", err)
		}

		var labelled int64
		for _, id := range sample.Mask.Pix {
			pixelTotal++
			if id == segmask.BackgroundID {
				continue
			}
			classPixels[id]++
			labelled++
		}
		labelledTotal += labelled

		if verbose {
			log.Printf("  [%d/%d] %s: %dx%d, %d labelled pixels\n",
				i+1, dataset.Len(), sample.Name, sample.Mask.Width, sample.Mask.Height, labelled)
		}
	}

	ids := make([]int32, 0, len(classPixels))
	for id := range classPixels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	log.Println("=== Dataset Summary ===")
	log.Printf("Samples: %d\n", dataset.Len())
	log.Printf("Classes (incl. background): %d\n", dataset.ClassCount())
	for _, id := range ids {
		name, ok := dataset.ClassName(id)
		if !ok {
			name = "(unmapped)"
		}
		log.Printf("  class %d %-20s %d pixels (%.2f%%)\n",
			id, name, classPixels[id], 100*float64(classPixels[id])/float64(pixelTotal))
	}
	log.Printf("Labelled pixels: %d/%d (%.2f%%)\n",
		labelledTotal, pixelTotal, 100*float64(labelledTotal)/float64(pixelTotal))
	log.Printf("Completed in %.2fs\n", time.Since(startTime).Seconds())
}
