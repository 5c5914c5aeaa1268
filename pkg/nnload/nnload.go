package nnload

// Package nnload wraps up our 'nn' interface layer, and has concrete references to our
// neural network implementation (onnx), so that you can just call one function to
// load a model, and not need to know about the implementation details.
//
// A model named "yolov8_leaf" in modelDir consists of two files:
//   yolov8_leaf.json   nn.ModelConfig
//   yolov8_leaf.onnx   weights
//   yolov8_leaf.txt    class names, one per line (optional, used when the JSON has no classes)

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/cyclopcam/leafscan/pkg/onnx"
	"github.com/cyclopcam/logs"
)

var ModelExtensions = []string{".json", ".onnx"}

func downloadFile(srcUrl, targetFile string) error {
	tempFile := targetFile + ".tmp"
	if err := os.MkdirAll(filepath.Dir(targetFile), 0755); err != nil {
		return err
	}
	resp, err := http.DefaultClient.Get(srcUrl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return fmt.Errorf("HTTP error %v", resp.Status)
	}
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(file, resp.Body)
	if err != nil {
		os.Remove(tempFile)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}
	return os.Rename(tempFile, targetFile)
}

// Return the path of one of the model's files, eg ModelPath("models", "yolov8_leaf", ".onnx")
func ModelPath(modelDir, modelName, ext string) string {
	return filepath.Join(modelDir, modelName+ext)
}

// If the model files are not yet downloaded, then download them now.
// baseUrl is a directory URL such as "https://example.com/models", which contains <modelName>.json and <modelName>.onnx.
// Returns immediately if the files are already downloaded.
func DownloadModel(logs logs.Log, baseUrl, modelDir, modelName string) error {
	baseUrl = strings.TrimSuffix(baseUrl, "/")
	for _, ext := range ModelExtensions {
		diskPath := ModelPath(modelDir, modelName, ext)
		networkUrl := baseUrl + "/" + modelName + ext
		if _, err := os.Stat(diskPath); os.IsNotExist(err) {
			logs.Infof("Downloading %v to %v", networkUrl, diskPath)
			if err := downloadFile(networkUrl, diskPath); err != nil {
				return fmt.Errorf("Failed to download %v: %w", networkUrl, err)
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}

// Load the model config sidecar
func LoadConfig(modelDir, modelName string) (*nn.ModelConfig, error) {
	config, err := nn.LoadModelConfig(ModelPath(modelDir, modelName, ".json"))
	if err != nil {
		return nil, fmt.Errorf("Failed to load config of model '%v': %w", modelName, err)
	}
	if len(config.Classes) == 0 {
		classFile := ModelPath(modelDir, modelName, ".txt")
		if _, err := os.Stat(classFile); err == nil {
			config.Classes, err = nn.LoadClassFile(classFile)
			if err != nil {
				return nil, fmt.Errorf("Failed to load classes of model '%v': %w", modelName, err)
			}
		}
	}
	if len(config.Classes) == 0 {
		return nil, fmt.Errorf("Model '%v' has no classes", modelName)
	}
	return config, nil
}

// Load an object detection model
func LoadDetector(logs logs.Log, modelDir, modelName string) (nn.ObjectDetector, error) {
	config, err := LoadConfig(modelDir, modelName)
	if err != nil {
		return nil, err
	}
	switch config.Architecture {
	case "yolov8", "yolo11":
		logs.Infof("Loading %v detector '%v' (%v x %v, %v classes)", config.Architecture, modelName, config.Width, config.Height, len(config.Classes))
		return onnx.NewYOLOv8(ModelPath(modelDir, modelName, ".onnx"), *config)
	}
	return nil, fmt.Errorf("Unrecognized detector architecture '%v' in model '%v'", config.Architecture, modelName)
}

// Load an image classification model
func LoadClassifier(logs logs.Log, modelDir, modelName string) (nn.ImageClassifier, error) {
	config, err := LoadConfig(modelDir, modelName)
	if err != nil {
		return nil, err
	}
	logs.Infof("Loading %v classifier '%v' (%v x %v, %v classes)", config.Architecture, modelName, config.Width, config.Height, len(config.Classes))
	return onnx.NewClassifier(ModelPath(modelDir, modelName, ".onnx"), *config)
}
