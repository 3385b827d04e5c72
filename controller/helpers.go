package controller

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tablebook/utils"
)

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, "Invalid "+name+" format")
		return 0, false
	}
	return uint(id), true
}

func internalError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	logger.Error(msg,
		slog.String("request_id", utils.GetRequestID(c)),
		slog.String("path", c.FullPath()),
		slog.Any("error", err),
	)
	utils.RespondError(c, http.StatusInternalServerError, msg)
}
