// README: Profile handlers for the calling user.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"campusride/internal/http/middleware"
	"campusride/internal/modules/user"
)

type UserHandler struct {
	users *user.Service
}

func NewUserHandler(userSvc *user.Service) *UserHandler {
	return &UserHandler{users: userSvc}
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.users.Me(c.Request.Context(), middleware.CallerActor(c))
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toUserResponse(u))
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	actor := middleware.CallerActor(c)
	u, err := h.users.UpdateProfile(c.Request.Context(), actor, actor.ID, user.ProfileUpdate{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		writeUserError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toUserResponse(u))
}
