package onnx

// Package onnx runs neural networks on the ONNX Runtime.
// The runtime is a shared library (libonnxruntime.so) that is loaded once per process.

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var initOnce sync.Once
var initErr error

// Initialize loads the ONNX Runtime shared library. If libraryPath is empty, the
// default search path of onnxruntime_go is used. Only the first call has any effect.
func Initialize(libraryPath string) error {
	initOnce.Do(func() {
		if libraryPath != "" {
			ort.SetSharedLibraryPath(libraryPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			initErr = fmt.Errorf("Failed to initialize ONNX environment: %w", err)
		}
	})
	return initErr
}

// session is a single ONNX session with bound input and output tensors.
// Run is not safe to call concurrently, so callers must hold lock.
type session struct {
	lock   sync.Mutex
	sess   *ort.AdvancedSession
	input  *ort.Tensor[float32]
	output *ort.Tensor[float32]
}

func newSession(modelFile, inputName, outputName string, inputShape, outputShape ort.Shape) (*session, error) {
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("Failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("Failed to create output tensor: %w", err)
	}
	sess, err := ort.NewAdvancedSession(modelFile,
		[]string{inputName}, []string{outputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("Failed to create ONNX session for %v: %w", modelFile, err)
	}
	return &session{
		sess:   sess,
		input:  inputTensor,
		output: outputTensor,
	}, nil
}

// run copies 'input' into the input tensor, runs the model, and returns a copy of the output
func (s *session) run(input []float32) ([]float32, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	dst := s.input.GetData()
	if len(input) != len(dst) {
		return nil, fmt.Errorf("Input tensor has %v elements, but %v were provided", len(dst), len(input))
	}
	copy(dst, input)
	if err := s.sess.Run(); err != nil {
		return nil, fmt.Errorf("Inference failed: %w", err)
	}
	out := s.output.GetData()
	result := make([]float32, len(out))
	copy(result, out)
	return result, nil
}

func (s *session) close() {
	if s.sess != nil {
		s.sess.Destroy()
	}
	if s.input != nil {
		s.input.Destroy()
	}
	if s.output != nil {
		s.output.Destroy()
	}
}
