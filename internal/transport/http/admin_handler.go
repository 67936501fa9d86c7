package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log"
	"net/http"

	"quizbank-service/internal/app"
	"quizbank-service/internal/domain"
)

// AdminHandler exposes the bank editor and ledger maintenance over HTTP.
// Every route is gated by the shared passphrase; the quiz core below this
// layer never sees it.
type AdminHandler struct {
	service    *app.QuizService
	passphrase string
}

func NewAdminHandler(service *app.QuizService, passphrase string) *AdminHandler {
	return &AdminHandler{service: service, passphrase: passphrase}
}

// Register mounts the admin routes on mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/questions", h.gate(h.handleQuestions))
	mux.HandleFunc("/admin/question", h.gate(h.handleQuestion))
	mux.HandleFunc("/admin/wrong/clear", h.gate(h.handleClearWrong))
	mux.HandleFunc("/admin/export/wrong", h.gate(h.export("wrong_answers.csv", h.service.ExportWrong)))
	mux.HandleFunc("/admin/export/attempts", h.gate(h.export("attempts.csv", h.service.ExportAttempts)))
	mux.HandleFunc("/admin/export/audit", h.gate(h.export("bank_audit.csv", h.service.ExportAudit)))
}

// gate rejects requests whose passphrase header does not match. The compare
// is constant-time; the shared-secret scheme itself is inherited from the
// deployment and is not an authentication system.
func (h *AdminHandler) gate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		supplied := r.Header.Get("X-Admin-Passphrase")
		if h.passphrase == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(h.passphrase)) != 1 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// handleQuestions lists bank rows, optionally filtered by a keyword over the
// question text.
func (h *AdminHandler) handleQuestions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	records, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

type updateRequest struct {
	Chapter string            `json:"chapter"`
	Number  string            `json:"number"`
	Fields  map[string]string `json:"fields"`
}

type updateResponse struct {
	Changed []domain.AuditEntry `json:"changed"`
}

// handleQuestion fetches or edits one bank row by identity key.
func (h *AdminHandler) handleQuestion(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		key := domain.QuestionKey{
			Chapter: r.URL.Query().Get("chapter"),
			Number:  r.URL.Query().Get("number"),
		}
		record, err := h.service.Question(r.Context(), key)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, record)

	case http.MethodPost:
		var req updateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		key := domain.QuestionKey{Chapter: req.Chapter, Number: req.Number}
		entries, err := h.service.UpdateQuestion(r.Context(), key, req.Fields)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, updateResponse{Changed: entries})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type clearRequest struct {
	User string `json:"user"`
}

// handleClearWrong removes one user's wrong-answer rows, or the whole ledger
// when no user is given.
func (h *AdminHandler) handleClearWrong(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.ClearWrong(r.Context(), req.User); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// export serves a ledger file as a CSV download; a 404 means the ledger has
// no rows yet.
func (h *AdminHandler) export(filename string, stream func(io.Writer) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := stream(w); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				http.Error(w, "no records yet", http.StatusNotFound)
				return
			}
			log.Printf("export %s failed: %v", filename, err)
		}
	}
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrQuestionNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write json response: %v", err)
	}
}
