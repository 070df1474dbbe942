package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"findsub/marketplace-service/internal/feedback"
)

func (h *Handler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var in feedback.Input
	if err := decodeBody(w, r, &in, false); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := h.feedback.Submit(r.Context(), chi.URLParam(r, "id"), actorFrom(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *Handler) listJobFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.feedback.ForJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) flagFeedback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(w, r, &body, false); err != nil {
		writeError(w, r, err)
		return
	}
	f, err := h.feedback.Flag(r.Context(), chi.URLParam(r, "id"), actorFrom(r), body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *Handler) listUserFeedback(w http.ResponseWriter, r *http.Request) {
	items, err := h.feedback.ForUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) getReputation(w http.ResponseWriter, r *http.Request) {
	rep, err := h.reputation.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) getRatings(w http.ResponseWriter, r *http.Request) {
	s, err := h.reputation.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
