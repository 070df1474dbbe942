package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"findsub/marketplace-service/internal/job"
)

func (h *Handler) decodeJob(w http.ResponseWriter, r *http.Request) (job.Fields, bool) {
	var d job.Draft
	if err := decodeBody(w, r, &d, false); err != nil {
		writeError(w, r, err)
		return job.Fields{}, false
	}
	f, err := d.Fields()
	if err != nil {
		writeError(w, r, err)
		return job.Fields{}, false
	}
	return f, true
}

func (h *Handler) listOpenJobs(w http.ResponseWriter, r *http.Request) {
	listings, err := h.jobs.ListOpen(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *Handler) listMyJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.ListByPoster(r.Context(), actorFrom(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) createJob(w http.ResponseWriter, r *http.Request) {
	f, ok := h.decodeJob(w, r)
	if !ok {
		return
	}
	j, err := h.jobs.Create(r.Context(), actorFrom(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, j)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *Handler) editJob(w http.ResponseWriter, r *http.Request) {
	f, ok := h.decodeJob(w, r)
	if !ok {
		return
	}
	j, err := h.jobs.Edit(r.Context(), chi.URLParam(r, "id"), actorFrom(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *Handler) deleteJob(w http.ResponseWriter, r *http.Request) {
	if err := h.jobs.Delete(r.Context(), chi.URLParam(r, "id"), actorFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) selectApplicant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ApplicantID string `json:"applicantId"`
	}
	if err := decodeBody(w, r, &body, false); err != nil {
		writeError(w, r, err)
		return
	}
	j, err := h.jobs.SelectApplicant(r.Context(), chi.URLParam(r, "id"), actorFrom(r), body.ApplicantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(w, r, &body, false); err != nil {
		writeError(w, r, err)
		return
	}
	j, err := h.jobs.UpdateStatus(r.Context(), chi.URLParam(r, "id"), actorFrom(r), body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}
