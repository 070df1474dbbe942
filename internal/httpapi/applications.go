package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CoverLetter string `json:"coverLetter"`
	}
	if err := decodeBody(w, r, &body, true); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.ledger.Apply(r.Context(), chi.URLParam(r, "id"), actorFrom(r), body.CoverLetter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) retract(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Retract(r.Context(), chi.URLParam(r, "id"), actorFrom(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listJobApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.ledger.ListForJob(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (h *Handler) listMyApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.ledger.ListForApplicant(r.Context(), actorFrom(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}
