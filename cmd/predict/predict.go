package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/leafscan/pkg/nnload"
	"github.com/cyclopcam/leafscan/pkg/onnx"
	"github.com/cyclopcam/leafscan/server/backend"
	"github.com/cyclopcam/leafscan/server/inference"
	"github.com/cyclopcam/logs"
)

func check(err error) {
	if err != nil {
		panic(err)
	}
}

// predict runs one model on one image, without touching the result database
func main() {
	parser := argparse.NewParser("predict", "Run a detector or classifier on an image file")
	input := parser.String("i", "input", &argparse.Options{Help: "Input image file", Required: true})
	output := parser.String("o", "output", &argparse.Options{Help: "Output file (annotated PNG, or JSON labels)", Required: true})
	kindStr := parser.Selector("k", "kind", []string{"detector", "classifier"}, &argparse.Options{Help: "How to run the model", Default: "detector"})
	modelDir := parser.String("d", "modeldir", &argparse.Options{Help: "Directory holding the model files", Default: "models"})
	modelName := parser.String("n", "model", &argparse.Options{Help: "Model name, without extension", Required: true})
	confidence := parser.Float("", "confidence", &argparse.Options{Help: "Minimum detection confidence", Default: 0.5})
	topK := parser.Int("", "topk", &argparse.Options{Help: "Number of classifier labels", Default: 3})
	onnxLib := parser.String("", "onnx", &argparse.Options{Help: "Path to libonnxruntime", Default: ""})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, _ := logs.NewLog()
	check(onnx.Initialize(*onnxLib))

	kind, err := backend.ParseKind(*kindStr)
	check(err)

	var b backend.ModelBackend
	if kind == backend.KindDetector {
		model, err := nnload.LoadDetector(logger, *modelDir, *modelName)
		check(err)
		b = backend.NewDetector(logger, model)
	} else {
		model, err := nnload.LoadClassifier(logger, *modelDir, *modelName)
		check(err)
		b = backend.NewClassifier(logger, model, *topK)
	}
	defer b.Close()

	img, err := os.ReadFile(*input)
	check(err)
	out, err := b.Predict(img, float32(*confidence))
	check(err)
	payload, err := inference.EncodePayload(out)
	check(err)
	check(os.WriteFile(*output, payload, 0664))

	// Summary on stdout
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if kind == backend.KindDetector {
		check(encoder.Encode(out.Objects))
	} else {
		check(encoder.Encode(out.Labels))
	}
}
