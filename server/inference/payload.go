package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"

	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/cyclopcam/leafscan/server/backend"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// EncodePayload turns a backend output into the bytes that get stored.
// Images become PNG. Label lists become a JSON array.
func EncodePayload(out *backend.Output) ([]byte, error) {
	switch out.Kind {
	case backend.KindDetector:
		if out.Image == nil {
			return nil, fmt.Errorf("Detector produced no image")
		}
		buf := bytes.Buffer{}
		if err := png.Encode(&buf, out.Image); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case backend.KindClassifier:
		labels := out.Labels
		if labels == nil {
			labels = []nn.Classification{}
		}
		return json.Marshal(labels)
	}
	return nil, fmt.Errorf("Unknown output kind '%v'", out.Kind)
}

// DecodeLabels parses the payload of a classifier result
func DecodeLabels(payload []byte) ([]nn.Classification, error) {
	labels := []nn.Classification{}
	if err := json.Unmarshal(payload, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

func IsImagePayload(payload []byte) bool {
	return bytes.HasPrefix(payload, pngSignature)
}

// PayloadContentType returns the MIME type and file extension of a stored payload
func PayloadContentType(payload []byte) (contentType, ext string) {
	if IsImagePayload(payload) {
		return "image/png", ".png"
	}
	return "application/json", ".json"
}

// DownloadFilename is the name under which a result is offered for download, or exported
func DownloadFilename(prefix string, id int64, payload []byte) string {
	_, ext := PayloadContentType(payload)
	return fmt.Sprintf("%v%v%v", prefix, id, ext)
}
