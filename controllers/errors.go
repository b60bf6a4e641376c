package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quietcircle/community/services"
	"github.com/quietcircle/community/utils"
)

// respondError translates a service error into the JSON envelope.
func respondError(ctx *gin.Context, err error) {
	switch services.KindOf(err) {
	case services.KindValidation:
		utils.Error(ctx, http.StatusBadRequest, 40000, services.MessageOf(err))
	case services.KindNotFound:
		utils.Error(ctx, http.StatusNotFound, 40400, services.MessageOf(err))
	case services.KindBusinessRule:
		utils.Error(ctx, http.StatusUnprocessableEntity, 42200, services.MessageOf(err))
	case services.KindAuthRequired:
		utils.Error(ctx, http.StatusUnauthorized, 40100, services.MessageOf(err))
	case services.KindForbidden:
		utils.Error(ctx, http.StatusForbidden, 40300, services.MessageOf(err))
	default:
		utils.Logger.Error("request failed",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "unexpected error")
	}
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page, _ := strconv.Atoi(strings.TrimSpace(pageStr))
	size, _ := strconv.Atoi(strings.TrimSpace(sizeStr))
	return services.NormalizePage(page, size)
}

func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}
