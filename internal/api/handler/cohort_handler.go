package handler

import (
	"net/http"

	"cohortly/internal/api/middleware"
	"cohortly/internal/app/service"
	"cohortly/internal/common"
	"cohortly/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

// CohortHandler serves the cohort catalog, enrollment, progress and the
// leaderboard, plus the administrative cascade deletes.
type CohortHandler struct {
	contentService     *service.ContentService
	progressService    *service.ProgressService
	leaderboardService *service.LeaderboardService
	maintenance        *service.MaintenanceService
}

func NewCohortHandler(
	cs *service.ContentService,
	ps *service.ProgressService,
	ls *service.LeaderboardService,
	ms *service.MaintenanceService,
) *CohortHandler {
	return &CohortHandler{
		contentService:     cs,
		progressService:    ps,
		leaderboardService: ls,
		maintenance:        ms,
	}
}

// RegisterRoutes registers paths relative to the cohorts subtree. The caller
// applies the Authenticator middleware to the subtree.
func (h *CohortHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listCohorts)
	r.Get("/{cohortID}", h.getCohort)
	r.Post("/{cohortID}/enroll", h.enroll)
	r.Get("/{cohortID}/progress", h.getProgress)
	r.Get("/{cohortID}/leaderboard", h.getLeaderboard)
	r.Get("/{cohortID}/modules/{moduleID}/questions", h.listQuestions)
	r.Get("/{cohortID}/modules/{moduleID}/questions/{questionID}", h.getQuestion)

	r.Group(func(admin chi.Router) {
		admin.Use(middleware.AdminOnly)
		admin.Delete("/{cohortID}", h.deleteCohort)
		admin.Delete("/{cohortID}/modules/{moduleID}", h.deleteModule)
		admin.Delete("/{cohortID}/modules/{moduleID}/questions/{questionID}", h.deleteQuestion)
	})
}

func (h *CohortHandler) isAdmin(r *http.Request) bool {
	role, ok := middleware.GetUserRoleFromContext(r.Context())
	return ok && role == model.RoleAdmin
}

func (h *CohortHandler) listCohorts(w http.ResponseWriter, r *http.Request) {
	cohorts, err := h.contentService.ListCohorts(r.Context(), h.isAdmin(r))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, cohorts)
}

func (h *CohortHandler) getCohort(w http.ResponseWriter, r *http.Request) {
	cohortID := chi.URLParam(r, "cohortID")
	cohort, modules, err := h.contentService.GetCohort(r.Context(), cohortID, h.isAdmin(r))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]any{
		"cohort":  cohort,
		"modules": modules,
	})
}

func (h *CohortHandler) enroll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	enrollment, err := h.progressService.Enroll(r.Context(), userID, chi.URLParam(r, "cohortID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, enrollment)
}

func (h *CohortHandler) getProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	enrollment, err := h.progressService.GetProgress(r.Context(), userID, chi.URLParam(r, "cohortID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, enrollment)
}

func (h *CohortHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboardService.GetLeaderboard(r.Context(), chi.URLParam(r, "cohortID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, entries)
}

func (h *CohortHandler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.contentService.ListQuestions(r.Context(), chi.URLParam(r, "moduleID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, questions)
}

func (h *CohortHandler) getQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.contentService.GetQuestion(r.Context(), chi.URLParam(r, "questionID"), h.isAdmin(r))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, question)
}

func (h *CohortHandler) deleteCohort(w http.ResponseWriter, r *http.Request) {
	if err := h.maintenance.DeleteCohort(r.Context(), chi.URLParam(r, "cohortID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Cohort deleted"})
}

func (h *CohortHandler) deleteModule(w http.ResponseWriter, r *http.Request) {
	if err := h.maintenance.DeleteModule(r.Context(), chi.URLParam(r, "moduleID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Module deleted"})
}

func (h *CohortHandler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.maintenance.DeleteQuestion(r.Context(), chi.URLParam(r, "questionID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Question deleted"})
}
