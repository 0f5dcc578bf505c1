package model

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Session runs one forward pass at a time. Implementations are not required
// to be safe for concurrent use; the Pool hands each one to a single caller.
type Session interface {
	Run(input []float32) ([]float32, error)
	Close() error
}

// SessionFactory opens a Session for an artifact.
type SessionFactory func(artifactPath string, meta Metadata) (Session, error)

var runtimeMu sync.Mutex

// InitRuntime initializes the ONNX Runtime environment once per process.
// libraryPath may be empty to use the platform default.
func InitRuntime(libraryPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// ShutdownRuntime tears the ONNX Runtime environment down.
func ShutdownRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// NewORTFactory returns a SessionFactory backed by ONNX Runtime.
func NewORTFactory(libraryPath string) SessionFactory {
	return func(artifactPath string, meta Metadata) (Session, error) {
		if err := InitRuntime(libraryPath); err != nil {
			return nil, err
		}
		return newORTSession(artifactPath, meta)
	}
}

type ortSession struct {
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func newORTSession(artifactPath string, meta Metadata) (*ortSession, error) {
	inputName, outputName, err := ioNames(artifactPath, meta)
	if err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(artifactPath,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &ortSession{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// ioNames returns the graph's input and output names, preferring the ones
// the sidecar declares.
func ioNames(artifactPath string, meta Metadata) (string, string, error) {
	if meta.InputName != "" && meta.OutputName != "" {
		return meta.InputName, meta.OutputName, nil
	}

	inputs, outputs, err := ort.GetInputOutputInfo(artifactPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to read model inputs/outputs: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return "", "", fmt.Errorf("expected 1 input and 1 output, got %d and %d", len(inputs), len(outputs))
	}

	inputName, outputName := meta.InputName, meta.OutputName
	if inputName == "" {
		inputName = inputs[0].Name
	}
	if outputName == "" {
		outputName = outputs[0].Name
	}
	return inputName, outputName, nil
}

func (s *ortSession) Run(input []float32) ([]float32, error) {
	data := s.inputTensor.GetData()
	if len(input) != len(data) {
		return nil, fmt.Errorf("input has %d values, model expects %d", len(input), len(data))
	}
	copy(data, input)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := s.outputTensor.GetData()
	result := make([]float32, len(out))
	copy(result, out)
	return result, nil
}

func (s *ortSession) Close() error {
	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		return s.session.Destroy()
	}
	return nil
}
