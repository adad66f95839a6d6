package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"quizarena/internal/api/middleware"
	"quizarena/internal/app/service"
	"quizarena/internal/common"
	"quizarena/internal/domain/model"
	"quizarena/internal/domain/repository"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	contestService       *service.ContestService
	participationService *service.ParticipationService
	userService          *service.UserService
	prizeService         *service.PrizeService
}

func NewAdminHandler(
	cs *service.ContestService,
	ps *service.ParticipationService,
	us *service.UserService,
	prs *service.PrizeService,
) *AdminHandler {
	return &AdminHandler{
		contestService:       cs,
		participationService: ps,
		userService:          us,
		prizeService:         prs,
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Use(middleware.Authenticator)
	r.Use(middleware.AdminOnly)

	r.Route("/contests", func(r chi.Router) {
		r.Get("/", h.listContests)
		r.Post("/", h.createContest)
		r.Get("/{contestID}/questions", h.contestQuestions)
		r.Get("/{contestID}/participations", h.contestParticipations)
		r.Put("/{contestID}", h.updateContest)
		r.Post("/{contestID}/cancel", h.cancelContest)
		r.Delete("/{contestID}", h.deleteContest)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.listUsers)
		r.Put("/{userID}", h.updateUser)
	})

	r.Route("/prizes", func(r chi.Router) {
		r.Get("/", h.listPrizes)
		r.Post("/", h.awardPrize)
	})
}

func (h *AdminHandler) listContests(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.contestService.AdminList(r.Context(), filter, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) createContest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "Missing user context")
		return
	}

	var req service.CreateContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	contest, err := h.contestService.Create(r.Context(), userID, req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, contest)
}

func (h *AdminHandler) contestQuestions(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")
	questions, err := h.contestService.Questions(r.Context(), contestID)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, questions)
}

func (h *AdminHandler) contestParticipations(w http.ResponseWriter, r *http.Request) {
	contestID := chi.URLParam(r, "contestID")
	page, pageSize := common.PageParams(r)

	participations, pagination, err := h.participationService.ListByContest(r.Context(), contestID, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"participations": participations,
		"pagination":     pagination,
	})
}

func (h *AdminHandler) updateContest(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateContestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	contest, err := h.contestService.Update(r.Context(), chi.URLParam(r, "contestID"), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *AdminHandler) cancelContest(w http.ResponseWriter, r *http.Request) {
	contest, err := h.contestService.Cancel(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, contest)
}

func (h *AdminHandler) deleteContest(w http.ResponseWriter, r *http.Request) {
	if err := h.contestService.Delete(r.Context(), chi.URLParam(r, "contestID")); err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Contest deleted"})
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := common.PageParams(r)
	userType := r.URL.Query().Get("user_type")

	var isAdmin *bool
	if isAdminStr := r.URL.Query().Get("is_admin"); isAdminStr != "" {
		v, err := strconv.ParseBool(isAdminStr)
		if err != nil {
			common.RespondWithError(w, http.StatusBadRequest, "Invalid is_admin filter")
			return
		}
		isAdmin = &v
	}

	users, pagination, err := h.userService.AdminList(r.Context(), userType, isAdmin, page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"users":      users,
		"pagination": pagination,
	})
}

type updateUserRequest struct {
	UserType string `json:"user_type"`
	IsAdmin  *bool  `json:"is_admin"`
}

func (h *AdminHandler) updateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.userService.AdminUpdate(r.Context(), chi.URLParam(r, "userID"), req.UserType, req.IsAdmin)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) listPrizes(w http.ResponseWriter, r *http.Request) {
	page, pageSize := common.PageParams(r)
	prizes, pagination, err := h.prizeService.AdminList(r.Context(), page, pageSize)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"prizes":     prizes,
		"pagination": pagination,
	})
}

func (h *AdminHandler) awardPrize(w http.ResponseWriter, r *http.Request) {
	var req service.AwardPrizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}

	prize, err := h.prizeService.Award(r.Context(), req)
	if err != nil {
		common.RespondWithError(w, common.HTTPStatusFromError(err), err.Error())
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, prize)
}
