package web

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("could not write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.reports.ListReports(r.Context())
	if err != nil {
		log.Printf("could not list reports: %v", err)
		writeError(w, http.StatusInternalServerError, "could not list reports")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	reportID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	records, err := s.reports.RecordsFor(r.Context(), reportID)
	if err != nil {
		log.Printf("could not list records for report %d: %v", reportID, err)
		writeError(w, http.StatusInternalServerError, "could not list records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report_id": reportID, "records": records})
}

type statsResponse struct {
	Identities int `json:"identities"`
	Embeddings int `json:"embeddings"`
	Reports    int `json:"reports"`
	Records    int `json:"records"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	identities, err := s.catalog.ListIdentities(r.Context())
	if err != nil {
		log.Printf("could not list identities: %v", err)
		writeError(w, http.StatusInternalServerError, "could not compute stats")
		return
	}
	reports, err := s.reports.ListReports(r.Context())
	if err != nil {
		log.Printf("could not list reports: %v", err)
		writeError(w, http.StatusInternalServerError, "could not compute stats")
		return
	}

	stats := statsResponse{
		Identities: len(identities),
		Reports:    len(reports),
	}
	for _, identity := range identities {
		stats.Embeddings += identity.EmbeddingCount
	}
	for _, rep := range reports {
		stats.Records += rep.RecordCount
	}
	writeJSON(w, http.StatusOK, stats)
}
