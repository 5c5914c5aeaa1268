package server

import (
	"net/http"
	"time"

	"github.com/cyclopcam/leafscan/server/backend"
	"github.com/cyclopcam/leafscan/server/export"
	"github.com/cyclopcam/www"
	"github.com/julienschmidt/httprouter"
)

func (s *Server) httpPing(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	type pingJSON struct {
		Time int64 `json:"time"`
	}
	ping := &pingJSON{
		Time: time.Now().Unix(),
	}
	www.SendJSON(w, ping)
}

type backendJSON struct {
	Category   string       `json:"category"`
	Kind       backend.Kind `json:"kind"`
	Model      string       `json:"model,omitempty"`
	Inferences int64        `json:"inferences"` // Successful submissions since startup
	AverageMS  float64      `json:"averageMS"`  // Average inference time since startup
}

func (s *Server) httpBackends(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	models := map[string]string{}
	for _, bc := range s.Config.Backends {
		models[bc.Category] = bc.Model
	}
	out := []backendJSON{}
	for _, cat := range s.Inference.Categories() {
		latency := s.latency.Get(cat)
		out = append(out, backendJSON{
			Category:   cat,
			Kind:       s.Inference.Backend(cat).Kind(),
			Model:      models[cat],
			Inferences: latency.Samples,
			AverageMS:  latency.Average().Seconds() * 1000,
		})
	}
	www.SendJSON(w, out)
}

// Returns {category: count}
func (s *Server) httpStats(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	agg, err := s.Stats.Aggregate()
	check(err)
	www.SendJSON(w, agg)
}

// Add ?overwrite=1 to rewrite files that are already present
func (s *Server) httpExport(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	if s.Export == nil {
		www.PanicBadRequestf("Export is not configured")
	}
	summary, err := export.Export(s.Log, s.Results, s.Export, s.Config.DownloadPrefix, www.QueryValue(r, "overwrite") == "1")
	check(err)
	www.SendJSON(w, summary)
}
