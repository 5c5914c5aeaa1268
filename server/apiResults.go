package server

import (
	"net/http"
	"strconv"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/leafscan/pkg/nn"
	"github.com/cyclopcam/leafscan/server/backend"
	"github.com/cyclopcam/leafscan/server/inference"
	"github.com/cyclopcam/leafscan/server/resultdb"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

type submitJSON struct {
	ID          int64                `json:"id"`
	Category    string               `json:"category"`
	Kind        backend.Kind         `json:"kind"`
	Filename    string               `json:"filename"`
	ContentType string               `json:"contentType"`
	DurationMS  int64                `json:"durationMS"`
	Objects     []nn.ObjectDetection `json:"objects,omitempty"`
	Labels      []nn.Classification  `json:"labels,omitempty"`
	Payload     []byte               `json:"payload"`
}

type resultJSON struct {
	ID          int64       `json:"id"`
	Category    string      `json:"category"`
	CreatedAt   dbh.IntTime `json:"createdAt"`
	Filename    string      `json:"filename,omitempty"`
	ContentType string      `json:"contentType,omitempty"`
	Payload     []byte      `json:"payload,omitempty"`
}

// If withPayload is false, r.Payload only needs to hold enough of the payload to identify its type
func (s *Server) toResultJSON(r *resultdb.Result, withPayload bool) resultJSON {
	j := resultJSON{
		ID:        r.ID,
		Category:  r.Category,
		CreatedAt: r.CreatedAt,
		Filename:  inference.DownloadFilename(s.Config.DownloadPrefix, r.ID, r.Payload),
	}
	j.ContentType, _ = inference.PayloadContentType(r.Payload)
	if withPayload {
		j.Payload = r.Payload
	}
	return j
}

// POST /api/submit?category=model1_upload&confidence=0.5
// The body is the raw image.
func (s *Server) httpSubmit(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	confidence := float32(nn.DefaultProbabilityThreshold)
	if v := www.QueryValue(r, "confidence"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			www.PanicBadRequestf("Invalid confidence '%v'", v)
		}
		confidence = float32(f)
	}
	req := &inference.Request{
		Category:   www.QueryValue(r, "category"),
		Confidence: confidence,
		Image:      readBody(w, r, int64(s.Config.MaxImageBytes)),
	}
	res, err := s.Inference.Submit(req)
	check(err)
	s.latency.AddSample(res.Category, res.Duration)
	contentType, _ := inference.PayloadContentType(res.Payload)
	www.SendJSON(w, &submitJSON{
		ID:          res.ID,
		Category:    res.Category,
		Kind:        res.Kind,
		Filename:    inference.DownloadFilename(s.Config.DownloadPrefix, res.ID, res.Payload),
		ContentType: contentType,
		DurationMS:  res.Duration.Milliseconds(),
		Objects:     res.Objects,
		Labels:      res.Labels,
		Payload:     res.Payload,
	})
}

// GET /api/results, most recent first. Add ?payload=0 to omit payloads.
func (s *Server) httpListResults(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	var results []resultdb.Result
	var err error
	withPayload := www.QueryValue(r, "payload") != "0"
	if withPayload {
		results, err = s.Results.ListDesc()
	} else {
		results, err = s.Results.ListSummaryDesc()
	}
	check(err)
	out := make([]resultJSON, 0, len(results))
	for i := range results {
		out = append(out, s.toResultJSON(&results[i], withPayload))
	}
	www.SendJSON(w, out)
}

func (s *Server) httpDownloadResult(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := www.ParseID(params.ByName("id"))
	res, err := s.Results.Get(id)
	check(err)
	if res == nil {
		www.PanicNotFound()
	}
	contentType, _ := inference.PayloadContentType(res.Payload)
	www.SendFileDownload(w, inference.DownloadFilename(s.Config.DownloadPrefix, res.ID, res.Payload), contentType, res.Payload)
}

// Deleting a result that does not exist succeeds
func (s *Server) httpDeleteResult(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	id := www.ParseID(params.ByName("id"))
	if id <= 0 {
		www.PanicBadRequestf("Invalid result id '%v'", params.ByName("id"))
	}
	check(s.Results.Delete(id))
	www.SendOK(w)
}
