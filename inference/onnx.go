package inference

import (
	"fmt"
	"image"
	"image/draw"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"defect-segmentation/segmask"
)

// ONNXConfig configures the ONNX-backed segmentation model.
type ONNXConfig struct {
	// Required.
	ModelPath string // exported segmentation network (.onnx)
	Classes   int    // number of non-background class planes the network emits

	// Optional.
	LibraryPath string // onnxruntime shared library, DefaultLibraryPath() if empty
	InputName   string // network input name, "input" if empty
	OutputName  string // network output name, "output" if empty
	NumThreads  int    // intra-op threads, runtime default if 0
}

var (
	ortInitErr error
	ortOnce    sync.Once
)

// ONNXModel runs an exported convolutional segmentation network through the
// ONNX runtime. The network is expected to take a (1, 1, H, W) intensity
// tensor and emit (1, Classes, H, W) scores.
type ONNXModel struct {
	session *ort.DynamicAdvancedSession
	classes int
}

var _ Model = (*ONNXModel)(nil)

// NewONNXModel initializes the runtime environment (once per process) and
// creates a session for the model.
func NewONNXModel(cfg ONNXConfig) (*ONNXModel, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("ModelPath is required")
	}
	if cfg.Classes < 1 {
		return nil, fmt.Errorf("Classes must be at least 1, got %d", cfg.Classes)
	}

	libPath := cfg.LibraryPath
	if libPath == "" {
		libPath = DefaultLibraryPath()
	}
	ortOnce.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", ortInitErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()
	if cfg.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, err
		}
	}

	inputName := cfg.InputName
	if inputName == "" {
		inputName = "input"
	}
	outputName := cfg.OutputName
	if outputName == "" {
		outputName = "output"
	}

	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{inputName}, []string{outputName}, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ONNXModel{session: session, classes: cfg.Classes}, nil
}

// Infer converts the image to a single-channel intensity tensor, runs the
// network and returns the per-class score map at the image's resolution.
func (m *ONNXModel) Infer(img image.Image) (*segmask.ProbMap, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	gray := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)

	data := make([]float32, w*h)
	for i, v := range gray.Pix {
		data[i] = float32(v) / 255.0
	}

	input, err := ort.NewTensor(ort.NewShape(1, 1, int64(h), int64(w)), data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(m.classes), int64(h), int64(w)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	if err := m.session.Run([]ort.Value{input}, []ort.Value{output}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	probs := segmask.NewProbMap(m.classes, h, w)
	copy(probs.Data, output.GetData())
	return probs, nil
}

// Destroy releases the session.
func (m *ONNXModel) Destroy() {
	if m.session != nil {
		m.session.Destroy()
	}
}

// DefaultLibraryPath picks the onnxruntime library file for the current
// platform.
func DefaultLibraryPath() string {
	baseDir := "./lib/"
	libName := "onnxruntime"

	if runtime.GOOS == "windows" {
		return baseDir + libName + ".dll"
	}

	var ext string
	switch runtime.GOOS {
	case "darwin":
		ext = "dylib"
	case "linux":
		ext = "so"
	default:
		return baseDir + libName + "_amd64.so"
	}

	return fmt.Sprintf("%s%s_%s.%s", baseDir, libName, runtime.GOARCH, ext)
}
