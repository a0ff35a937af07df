package handler

import (
	"encoding/json"
	"net/http"

	"cohortly/internal/api/middleware"
	"cohortly/internal/app/service"
	"cohortly/internal/common"

	"github.com/go-chi/chi/v5"
)

// SubmissionHandler serves the submit/evaluate flow and submission views.
// Routes are registered under a question subtree, so the cohort, module and
// question IDs all come from the URL.
type SubmissionHandler struct {
	submissionService *service.SubmissionService
	runService        *service.RunService
}

func NewSubmissionHandler(ss *service.SubmissionService, rs *service.RunService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: ss, runService: rs}
}

// RegisterCohortRoutes registers the question-scoped routes relative to the
// cohorts subtree. The caller applies the Authenticator middleware.
func (h *SubmissionHandler) RegisterCohortRoutes(r chi.Router) {
	r.Post("/{cohortID}/modules/{moduleID}/questions/{questionID}/submissions", h.submitAnswer)
	r.Get("/{cohortID}/modules/{moduleID}/questions/{questionID}/submissions", h.listQuestionSubmissions)
	r.Get("/{cohortID}/modules/{moduleID}/questions/{questionID}/submissions/mine", h.listOwnAttempts)
	r.Post("/{cohortID}/modules/{moduleID}/questions/{questionID}/test-run", h.testRun)
}

// RegisterLookupRoutes registers the top-level submission and run lookups.
func (h *SubmissionHandler) RegisterLookupRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Get("/submissions/{submissionID}", h.getSubmission)
	r.Get("/runs/{jobID}", h.getRunResult)
}

func (h *SubmissionHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req service.SubmitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	submission, err := h.submissionService.SubmitAnswer(
		r.Context(),
		userID,
		chi.URLParam(r, "cohortID"),
		chi.URLParam(r, "moduleID"),
		chi.URLParam(r, "questionID"),
		req,
	)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, submission)
}

func (h *SubmissionHandler) listQuestionSubmissions(w http.ResponseWriter, r *http.Request) {
	submissions, err := h.submissionService.ListQuestionSubmissions(
		r.Context(),
		chi.URLParam(r, "questionID"),
		chi.URLParam(r, "cohortID"),
	)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submissions)
}

func (h *SubmissionHandler) listOwnAttempts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	submissions, err := h.submissionService.ListOwnAttempts(r.Context(), userID, chi.URLParam(r, "questionID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submissions)
}

func (h *SubmissionHandler) getSubmission(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	role, _ := middleware.GetUserRoleFromContext(r.Context())

	submission, err := h.submissionService.GetSubmission(r.Context(), chi.URLParam(r, "submissionID"), userID, role)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, submission)
}

func (h *SubmissionHandler) testRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req service.RunCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	jobID, err := h.runService.EnqueueRun(r.Context(), userID, chi.URLParam(r, "questionID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (h *SubmissionHandler) getRunResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.runService.GetRunResult(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}
