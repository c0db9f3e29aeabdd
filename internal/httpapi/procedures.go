package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/nguyenthanhak8-hue/LSTD/internal/models"
	"github.com/nguyenthanhak8-hue/LSTD/internal/store"
)

// searchResultLimit caps the extended search response; the kiosk screen
// shows at most three suggestions.
const searchResultLimit = 3

type counterSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type procedureSearchResult struct {
	ID       int64            `json:"id"`
	Name     string           `json:"name"`
	FieldID  int64            `json:"field_id"`
	Score    int              `json:"score"`
	Counters []counterSummary `json:"counters"`
}

type footerResponse struct {
	Tenxa    string `json:"tenxa"`
	WorkTime string `json:"work_time"`
	Hotline  string `json:"hotline"`
}

type footerRequest struct {
	WorkTime string `json:"work_time"`
	Hotline  string `json:"hotline"`
}

func (h *Handler) handleListProcedures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	procedures, err := h.store.ListProcedures(r.Context(), tenantID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	search := strings.TrimSpace(r.URL.Query().Get("search"))
	if search != "" {
		procedures = rankProcedures(procedures, search)
	}
	if procedures == nil {
		procedures = []models.Procedure{}
	}
	writeJSON(w, http.StatusOK, procedures)
}

func (h *Handler) handleSearchProcedures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}

	procedures, err := h.store.ListProcedures(r.Context(), tenantID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	mappings, err := h.store.ListFieldCounters(r.Context(), tenantID)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	fieldCounters := make(map[int64][]counterSummary)
	for _, mapping := range mappings {
		fieldCounters[mapping.FieldID] = append(fieldCounters[mapping.FieldID], counterSummary{
			ID:   mapping.CounterID,
			Name: mapping.CounterName,
		})
	}

	search := strings.TrimSpace(r.URL.Query().Get("search"))
	results := []procedureSearchResult{}
	for _, procedure := range procedures {
		score, matched := procedureScore(procedure.Name, search)
		if !matched {
			continue
		}
		counters := fieldCounters[procedure.FieldID]
		if counters == nil {
			counters = []counterSummary{}
		}
		results = append(results, procedureSearchResult{
			ID:       procedure.ID,
			Name:     procedure.Name,
			FieldID:  procedure.FieldID,
			Score:    score,
			Counters: counters,
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > searchResultLimit {
		results = results[:searchResultLimit]
	}
	writeJSON(w, http.StatusOK, results)
}

// rankProcedures filters to fuzzy matches and orders them best-first.
func rankProcedures(procedures []models.Procedure, search string) []models.Procedure {
	type ranked struct {
		procedure models.Procedure
		rank      int
	}
	var matches []ranked
	for _, procedure := range procedures {
		rank := fuzzy.RankMatchNormalizedFold(search, procedure.Name)
		if rank < 0 {
			continue
		}
		matches = append(matches, ranked{procedure: procedure, rank: rank})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].rank < matches[j].rank })

	var result []models.Procedure
	for _, m := range matches {
		result = append(result, m.procedure)
	}
	return result
}

// procedureScore maps a fuzzy rank onto a descending 0-100 score. An empty
// search matches everything at full score.
func procedureScore(name, search string) (int, bool) {
	if search == "" {
		return 100, true
	}
	rank := fuzzy.RankMatchNormalizedFold(search, name)
	if rank < 0 {
		return 0, false
	}
	score := 100 - rank
	if score < 0 {
		score = 0
	}
	return score, true
}

func (h *Handler) handleFooter(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := h.resolveTenant(w, r)
	if !ok {
		return
	}
	slug := strings.TrimSpace(r.URL.Query().Get("tenxa"))

	switch r.Method {
	case http.MethodGet:
		footer, err := h.store.GetFooter(r.Context(), tenantID)
		if err != nil {
			if errors.Is(err, store.ErrFooterNotFound) {
				writeError(w, http.StatusNotFound, "footer_not_found", "no footer configured for this tenxa")
				return
			}
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, footerResponse{Tenxa: slug, WorkTime: footer.WorkTime, Hotline: footer.Hotline})
	case http.MethodPost:
		var req footerRequest
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON payload")
			return
		}
		footer, err := h.store.UpsertFooter(r.Context(), tenantID, req.WorkTime, req.Hotline)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, footerResponse{Tenxa: slug, WorkTime: footer.WorkTime, Hotline: footer.Hotline})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
