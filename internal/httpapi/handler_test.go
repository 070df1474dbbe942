package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"findsub/marketplace-service/internal/application"
	"findsub/marketplace-service/internal/events"
	"findsub/marketplace-service/internal/feedback"
	"findsub/marketplace-service/internal/httpapi"
	"findsub/marketplace-service/internal/identity"
	"findsub/marketplace-service/internal/job"
	"findsub/marketplace-service/internal/kink"
	"findsub/marketplace-service/internal/reputation"
	"findsub/marketplace-service/internal/store/memory"
	"findsub/marketplace-service/internal/user"
)

type api struct {
	t      *testing.T
	server *httptest.Server
	store  *memory.Store
	kinks  *kink.Registry
}

func newAPI(t *testing.T, verifier *identity.Verifier) *api {
	t.Helper()
	store := memory.NewStore()
	rec := &events.Recorder{}
	reg := kink.NewRegistry(store)
	agg := reputation.NewAggregator(store, store, nil, rec)
	h := httpapi.NewHandler(httpapi.Config{
		Jobs:       job.NewService(store, reg, rec),
		Ledger:     application.NewLedger(store, store, rec),
		Feedback:   feedback.NewCollector(store, store, reg, feedback.NewModerator(nil), agg, rec),
		Reputation: agg,
		Kinks:      reg,
		Verifier:   verifier,
	})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &api{t: t, server: srv, store: store, kinks: reg}
}

// do sends body as JSON with gateway headers for who and decodes the
// response into out when non-nil.
func (a *api) do(method, path, userID, role string, body any, out any) int {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, a.server.URL+path, &buf)
	if err != nil {
		a.t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(identity.HeaderUserID, userID)
		req.Header.Set(identity.HeaderUserRole, role)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		a.t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			a.t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type errResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field"`
}

func jobBody() map[string]any {
	return map[string]any{
		"title":       "Garden day",
		"description": "Weeding and mowing.",
		"category":    "Gardening",
		"startDate":   time.Now().Add(72 * time.Hour).Format(time.DateOnly),
		"startTime":   "09:30",
	}
}

func TestHealthIsPublic(t *testing.T) {
	a := newAPI(t, nil)
	var body map[string]string
	if code := a.do(http.MethodGet, "/health", "", "", nil, &body); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health = %d %v", code, body)
	}
}

func TestMissingIdentityIsUnauthorized(t *testing.T) {
	a := newAPI(t, nil)
	var e errResp
	if code := a.do(http.MethodGet, "/jobs", "", "", nil, &e); code != http.StatusUnauthorized || e.Code != "UNAUTHENTICATED" {
		t.Fatalf("got %d %+v", code, e)
	}
	if code := a.do(http.MethodGet, "/jobs", "u1", "emperor", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("unknown role got %d", code)
	}
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	a := newAPI(t, nil)

	var created job.Job
	if code := a.do(http.MethodPost, "/jobs", "dom-1", "dom", jobBody(), &created); code != http.StatusCreated {
		t.Fatalf("create = %d", code)
	}
	if created.Status != job.StatusOpen || created.Category != job.CategoryGardening {
		t.Fatalf("created = %+v", created)
	}
	jobPath := "/jobs/" + created.ID

	if code := a.do(http.MethodPost, jobPath+"/applications", "sub-a", "sub", map[string]string{"coverLetter": "hi"}, nil); code != http.StatusCreated {
		t.Fatalf("apply A = %d", code)
	}
	if code := a.do(http.MethodPost, jobPath+"/applications", "sub-b", "sub", nil, nil); code != http.StatusCreated {
		t.Fatalf("apply B without body = %d", code)
	}

	var listings []job.Listing
	a.do(http.MethodGet, "/jobs", "sub-a", "sub", nil, &listings)
	if len(listings) != 1 || !listings[0].HasApplied {
		t.Fatalf("listings = %+v", listings)
	}

	var apps []application.Application
	if code := a.do(http.MethodGet, jobPath+"/applications", "dom-1", "dom", nil, &apps); code != http.StatusOK || len(apps) != 2 {
		t.Fatalf("applications = %d %+v", code, apps)
	}

	var filled job.Job
	if code := a.do(http.MethodPost, jobPath+"/select", "dom-1", "dom", map[string]string{"applicantId": "sub-a"}, &filled); code != http.StatusOK {
		t.Fatalf("select = %d", code)
	}
	if filled.SelectedApplicant != "sub-a" || filled.Status != job.StatusFilled {
		t.Fatalf("filled = %+v", filled)
	}

	var e errResp
	if code := a.do(http.MethodPost, jobPath+"/applications", "sub-c", "sub", nil, &e); code != http.StatusConflict || e.Code != "JOB_NOT_OPEN" {
		t.Fatalf("late apply = %d %+v", code, e)
	}
	if code := a.do(http.MethodPost, jobPath+"/select", "dom-1", "dom", map[string]string{"applicantId": "sub-b"}, &e); code != http.StatusConflict || e.Code != "ALREADY_FILLED" {
		t.Fatalf("second select = %d %+v", code, e)
	}

	var fbErr errResp
	if code := a.do(http.MethodPost, jobPath+"/feedback", "dom-1", "dom", map[string]any{"honestyScore": 4}, &fbErr); code != http.StatusConflict || fbErr.Code != "INVALID_STATE" {
		t.Fatalf("early feedback = %d %+v", code, fbErr)
	}

	if code := a.do(http.MethodPost, jobPath+"/status", "dom-1", "dom", map[string]string{"status": "completed"}, nil); code != http.StatusOK {
		t.Fatalf("complete = %d", code)
	}

	var fb feedback.Feedback
	body := map[string]any{"honestyScore": 4, "generalRatings": map[string]int{"Obedience": 5}}
	if code := a.do(http.MethodPost, jobPath+"/feedback", "dom-1", "dom", body, &fb); code != http.StatusCreated {
		t.Fatalf("dom feedback = %d", code)
	}
	if code := a.do(http.MethodPost, jobPath+"/feedback", "sub-a", "sub", map[string]any{"honestyScore": 5}, nil); code != http.StatusCreated {
		t.Fatalf("sub feedback = %d", code)
	}
	if code := a.do(http.MethodPost, jobPath+"/feedback", "sub-a", "sub", map[string]any{"honestyScore": 5}, &e); code != http.StatusConflict || e.Code != "DUPLICATE_FEEDBACK" {
		t.Fatalf("duplicate feedback = %d %+v", code, e)
	}

	var done job.Job
	a.do(http.MethodGet, jobPath, "sub-a", "sub", nil, &done)
	if !done.DomFeedbackLeft || !done.SubFeedbackLeft {
		t.Fatalf("flags = %v/%v", done.DomFeedbackLeft, done.SubFeedbackLeft)
	}

	var rep user.Reputation
	if code := a.do(http.MethodGet, "/users/sub-a/reputation", "dom-1", "dom", nil, &rep); code != http.StatusOK {
		t.Fatalf("reputation = %d", code)
	}
	if rep.CompletedJobs != 1 || rep.ReputationScore != 5 || rep.AverageHonestyScore != 4 {
		t.Fatalf("rep = %+v", rep)
	}

	var summary reputation.Summary
	a.do(http.MethodGet, "/users/sub-a/ratings", "dom-1", "dom", nil, &summary)
	if summary.Entries != 1 || summary.General[feedback.CategoryObedience] != 5 {
		t.Fatalf("summary = %+v", summary)
	}

	var flagged feedback.Feedback
	if code := a.do(http.MethodPost, "/feedback/"+fb.ID+"/flag", "sub-a", "sub", map[string]string{"reason": "unfair"}, &flagged); code != http.StatusOK || !flagged.IsFlagged {
		t.Fatalf("flag = %d %+v", code, flagged)
	}

	var received []feedback.Feedback
	a.do(http.MethodGet, "/users/sub-a/feedback", "sub-a", "sub", nil, &received)
	if len(received) != 1 || !received[0].IsFlagged {
		t.Fatalf("received = %+v", received)
	}
}

func TestValidationErrorsCarryField(t *testing.T) {
	a := newAPI(t, nil)
	body := jobBody()
	body["startDate"] = "next tuesday"

	var e errResp
	if code := a.do(http.MethodPost, "/jobs", "dom-1", "dom", body, &e); code != http.StatusBadRequest {
		t.Fatalf("code = %d", code)
	}
	if e.Code != "VALIDATION_ERROR" || e.Field != "startDate" {
		t.Errorf("error = %+v", e)
	}
}

func TestForbiddenAndNotFound(t *testing.T) {
	a := newAPI(t, nil)
	var e errResp
	if code := a.do(http.MethodPost, "/jobs", "sub-a", "sub", jobBody(), &e); code != http.StatusForbidden || e.Code != "FORBIDDEN" {
		t.Fatalf("sub create = %d %+v", code, e)
	}
	if code := a.do(http.MethodGet, "/jobs/nope", "sub-a", "sub", nil, &e); code != http.StatusNotFound || e.Code != "NOT_FOUND" {
		t.Fatalf("missing job = %d %+v", code, e)
	}
}

func TestEditAndDelete(t *testing.T) {
	a := newAPI(t, nil)
	var created job.Job
	a.do(http.MethodPost, "/jobs", "dom-1", "dom", jobBody(), &created)

	body := jobBody()
	body["title"] = "Garden day (two gardeners)"
	var edited job.Job
	if code := a.do(http.MethodPut, "/jobs/"+created.ID, "dom-1", "dom", body, &edited); code != http.StatusOK || edited.Title != body["title"] {
		t.Fatalf("edit = %d %+v", code, edited)
	}

	var mine []job.Job
	a.do(http.MethodGet, "/jobs/mine", "dom-1", "dom", nil, &mine)
	if len(mine) != 1 {
		t.Fatalf("mine = %+v", mine)
	}

	if code := a.do(http.MethodDelete, "/jobs/"+created.ID, "dom-1", "dom", nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete = %d", code)
	}
	if code := a.do(http.MethodGet, "/jobs/"+created.ID, "dom-1", "dom", nil, nil); code != http.StatusNotFound {
		t.Fatalf("get after delete = %d", code)
	}
}

func TestRetractOverHTTP(t *testing.T) {
	a := newAPI(t, nil)
	var created job.Job
	a.do(http.MethodPost, "/jobs", "dom-1", "dom", jobBody(), &created)
	a.do(http.MethodPost, "/jobs/"+created.ID+"/applications", "sub-a", "sub", nil, nil)

	var mine []application.Application
	a.do(http.MethodGet, "/applications", "sub-a", "sub", nil, &mine)
	if len(mine) != 1 {
		t.Fatalf("mine = %+v", mine)
	}
	if code := a.do(http.MethodDelete, "/jobs/"+created.ID+"/applications", "sub-a", "sub", nil, nil); code != http.StatusNoContent {
		t.Fatalf("retract = %d", code)
	}
	if code := a.do(http.MethodDelete, "/jobs/"+created.ID+"/applications", "sub-a", "sub", nil, nil); code != http.StatusNotFound {
		t.Fatalf("second retract = %d", code)
	}
}

func TestKinksEndpoint(t *testing.T) {
	a := newAPI(t, nil)
	if _, err := a.kinks.Register(context.Background(), "Rope", ""); err != nil {
		t.Fatal(err)
	}
	var kinks []kink.Kink
	if code := a.do(http.MethodGet, "/kinks", "", "", nil, &kinks); code != http.StatusOK || len(kinks) != 1 {
		t.Fatalf("kinks = %d %+v", code, kinks)
	}
}

func TestBearerAuthentication(t *testing.T) {
	v := identity.NewVerifier("test-secret", "findsub")
	a := newAPI(t, v)

	// Gateway headers are ignored once a verifier is configured.
	if code := a.do(http.MethodGet, "/jobs", "dom-1", "dom", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("headers only = %d", code)
	}

	token, err := v.Sign(identity.Actor{ID: "dom-1", Role: identity.RoleDom}, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodGet, a.server.URL+"/jobs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bearer = %d", resp.StatusCode)
	}
}
