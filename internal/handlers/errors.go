package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"catalog-service/internal/events"
	"catalog-service/internal/models"
	"catalog-service/internal/services"
	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/gin-gonic/gin"
)

// ErrForbidden is returned when the caller's supplier scope excludes the
// target of the request.
var ErrForbidden = errors.New("forbidden")

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success:   false,
		Error:     models.Error{Code: code, Message: message},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// respondError maps service errors onto HTTP statuses. Anything not
// recognised is a 500 carrying internalCode.
func respondError(c *gin.Context, err error, internalCode string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, services.ErrNotFound):
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrForbidden):
		errorResponse(c, http.StatusForbidden, "FORBIDDEN", err.Error())
	default:
		_ = c.Error(err)
		errorResponse(c, http.StatusInternalServerError, internalCode, "Internal error, see service logs")
	}
}

// requestContext carries the caller identity into service calls so published
// events can name the actor.
func requestContext(c *gin.Context) context.Context {
	actor := gosharedmw.GetActorInfo(c)
	return events.WithActor(c.Request.Context(), events.Actor{
		ID:    actor.ActorID,
		Name:  actor.ActorName,
		Email: actor.ActorEmail,
	})
}

func actorName(c *gin.Context) string {
	actor := gosharedmw.GetActorInfo(c)
	switch {
	case actor.ActorEmail != "":
		return actor.ActorEmail
	case actor.ActorName != "":
		return actor.ActorName
	case actor.ActorID != "":
		return actor.ActorID
	}
	return c.GetString("user_id")
}
