package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/MKA06/luron-voice/internal/services"
	"github.com/MKA06/luron-voice/internal/utils"
)

// CallHandler is the read-only call API for dashboards.
type CallHandler struct {
	calls services.CallService
}

func NewCallHandler(calls services.CallService) *CallHandler {
	return &CallHandler{calls: calls}
}

// Get handles GET /calls/:call_id.
func (h *CallHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	call, err := h.calls.Get(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if call.UserID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "CallHandler.Get", "forbidden", nil))
		return
	}

	c.JSON(http.StatusOK, call)
}

// List handles GET /calls.
func (h *CallHandler) List(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	rows, err := h.calls.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": rows})
}
