package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"quizarena/internal/api/middleware"
	"quizarena/internal/app/service"
	"quizarena/internal/common"
	"quizarena/internal/domain/model"
	"quizarena/internal/domain/repository"

	"github.com/go-chi/chi/v5"
)

type ContestHandler struct {
	contestService       *service.ContestService
	participationService *service.ParticipationService
	leaderboardService   *service.LeaderboardService
	userService          *service.UserService
	joinLimiter          func(http.Handler) http.Handler
}

func NewContestHandler(
	cs *service.ContestService,
	ps *service.ParticipationService,
	ls *service.LeaderboardService,
	us *service.UserService,
	joinLimiter func(http.Handler) http.Handler,
) *ContestHandler {
	return &ContestHandler{
		contestService:       cs,
		participationService: ps,
		leaderboardService:   ls,
		userService:          us,
		joinLimiter:          joinLimiter,
	}
}

func (h *ContestHandler) RegisterRoutes(r chi.Router) {
	// Public routes still honor a token when one is sent, so VIP users see
	// VIP contests in listings and details.
	r.Group(func(publicRouter chi.Router) {
		publicRouter.Use(middleware.OptionalAuthenticator)
		publicRouter.Get("/", h.listContests)                            // GET /api/v1/contests
		publicRouter.Get("/{contestSlug}", h.getContest)                 // GET /api/v1/contests/weekly-trivia-12
		publicRouter.Get("/{contestSlug}/leaderboard", h.getLeaderboard) // GET /api/v1/contests/weekly-trivia-12/leaderboard
	})

	r.Group(func(authRouter chi.Router) {
		authRouter.Use(middleware.Authenticator)
		authRouter.With(h.joinLimiter).Post("/{contestSlug}/join", h.joinContest)
		authRouter.Post("/{contestSlug}/submit-answer", h.submitAnswer)
		authRouter.Post("/{contestSlug}/submit-contest", h.submitContest)
		authRouter.Get("/{contestSlug}/question", h.currentQuestion)
		authRouter.Get("/{contestSlug}/participation", h.myParticipation)
		authRouter.Get("/{contestSlug}/my-rank", h.myRank)
	})
}

func (h *ContestHandler) listContests(w http.ResponseWriter, r *http.Request) {
	page, pageSize := common.PageParams(r)

	var filter repository.ContestFilter
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		filter.Status = model.ContestStatus(statusStr)
	}
	switch r.URL.Query().Get("type") {
	case "vip":
		vipOnly := true
		filter.VipOnly = &vipOnly
	case "normal":
		vipOnly := false
		filter.VipOnly = &vipOnly
	}

	_, authenticated := middleware.GetUserIDFromContext(r.Context())

	result, err := h.contestService.List(r.Context(), filter, authenticated, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ContestHandler) getContest(w http.ResponseWriter, r *http.Request) {
	contestSlug := chi.URLParam(r, "contestSlug")
	user := middleware.UserFromContext(r.Context())

	contest, err := h.contestService.GetBySlug(r.Context(), contestSlug, user)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *ContestHandler) joinContest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	// Eligibility depends on the user's current VIP standing, not the one
	// baked into the token at login time.
	user, err := h.userService.Me(r.Context(), userID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	contest, err := h.contestService.GetBySlug(r.Context(), chi.URLParam(r, "contestSlug"), user)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	participation, err := h.participationService.Join(r.Context(), contest.ID, user, time.Now())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, participation)
}

type submitAnswerRequest struct {
	QuestionIndex int             `json:"question_index"`
	Selected      model.Selection `json:"selected"`
}

func (h *ContestHandler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	contest, err := h.contestService.GetBySlug(r.Context(), chi.URLParam(r, "contestSlug"), middleware.UserFromContext(r.Context()))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	result, err := h.participationService.SubmitAnswer(r.Context(), contest.ID, userID, req.QuestionIndex, req.Selected, time.Now())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *ContestHandler) submitContest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	contest, err := h.contestService.GetBySlug(r.Context(), chi.URLParam(r, "contestSlug"), middleware.UserFromContext(r.Context()))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	participation, err := h.participationService.SubmitContest(r.Context(), contest.ID, userID, time.Now())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, participation)
}

type currentQuestionResponse struct {
	Question         *model.Question `json:"question"`
	RemainingSeconds int             `json:"remaining_seconds"`
}

func (h *ContestHandler) currentQuestion(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	contest, err := h.contestService.GetBySlug(r.Context(), chi.URLParam(r, "contestSlug"), middleware.UserFromContext(r.Context()))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	question, remaining, err := h.participationService.CurrentQuestion(r.Context(), contest.ID, userID, time.Now())
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, currentQuestionResponse{
		Question:         question,
		RemainingSeconds: int(remaining.Seconds()),
	})
}

type participationResponse struct {
	Participation *model.Participation `json:"participation"`
	Answers       []model.Answer       `json:"answers"`
}

func (h *ContestHandler) myParticipation(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	contest, err := h.contestService.GetBySlug(r.Context(), chi.URLParam(r, "contestSlug"), middleware.UserFromContext(r.Context()))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	participation, answers, err := h.participationService.Get(r.Context(), contest.ID, userID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, participationResponse{
		Participation: participation,
		Answers:       answers,
	})
}

type leaderboardResponse struct {
	Entries    []model.RankedEntry `json:"entries"`
	Pagination common.Pagination   `json:"pagination"`
}

type myRankResponse struct {
	MyPosition *model.RankedEntry `json:"my_position"`
}

func (h *ContestHandler) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r.Context())

	contest, err := h.contestService.GetBySlug(r.Context(), chi.URLParam(r, "contestSlug"), user)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	// While a normal contest is not live, a signed-in normal user only sees
	// their own position. Live contests and VIP/admin viewers get full pages.
	if contest.Status != model.ContestLive && !contest.IsVipOnly &&
		user != nil && !user.IsAdmin && user.UserType != model.UserTypeVip {
		entry, err := h.leaderboardService.MyRank(r.Context(), contest.ID, user.ID)
		if err != nil {
			common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
			return
		}
		common.RespondWithJSON(w, http.StatusOK, myRankResponse{MyPosition: entry})
		return
	}

	page, pageSize := common.PageParams(r)
	entries, total, err := h.leaderboardService.Rank(r.Context(), contest.ID, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, leaderboardResponse{
		Entries:    entries,
		Pagination: common.NewPagination(page, pageSize, total),
	})
}

func (h *ContestHandler) myRank(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	contest, err := h.contestService.GetBySlug(r.Context(), chi.URLParam(r, "contestSlug"), middleware.UserFromContext(r.Context()))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}

	entry, err := h.leaderboardService.MyRank(r.Context(), contest.ID, userID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, myRankResponse{MyPosition: entry})
}
