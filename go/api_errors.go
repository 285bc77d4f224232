package recordsserver

import (
	"errors"

	"github.com/gin-gonic/gin"

	recordsapp "github.com/Apurer/go-gin-records-api/internal/domains/records/application"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	recordsports "github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
	apierrors "github.com/Apurer/go-gin-records-api/internal/shared/errors"
)

var problemResponder = apierrors.NewResponder("", recordProblem)

// respondProblem maps a ProblemDetail through the shared responder.
func respondProblem(c *gin.Context, problem apierrors.ProblemDetail) {
	problemResponder.Respond(c, problem)
}

func respondRecordServiceError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	problemResponder.RespondError(c, err)
}

// recordProblem classifies records errors. Unknown errors fall through to the generic
// internal problem.
func recordProblem(err error) (apierrors.ProblemDetail, bool) {
	switch {
	case errors.Is(err, recordsports.ErrNotFound):
		return apierrors.ErrNotFound.WithDetail(err.Error()), true
	case errors.Is(err, recordsports.ErrIdempotencyConflict):
		return apierrors.ErrConflict.WithDetail(err.Error()), true
	case errors.Is(err, recordsapp.ErrInvalidInput):
		return apierrors.ErrValidation.WithDetail(err.Error()), true
	case errors.Is(err, recordsports.ErrStoreUnavailable):
		return apierrors.ErrServiceUnavailable.WithDetail("record store temporarily unavailable"), true
	case errors.Is(err, domain.ErrKeySpaceExhausted):
		return apierrors.ErrKeySpaceExhausted.WithDetail(err.Error()), true
	case errors.Is(err, domain.ErrInvariantViolation):
		return apierrors.ErrOrderingInvariant.WithDetail(err.Error()), true
	}
	return apierrors.ProblemDetail{}, false
}
