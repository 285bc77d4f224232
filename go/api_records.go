package recordsserver

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	recordhttpmapper "github.com/Apurer/go-gin-records-api/internal/domains/records/adapters/http/mapper"
	"github.com/Apurer/go-gin-records-api/internal/domains/records/domain"
	recordsports "github.com/Apurer/go-gin-records-api/internal/domains/records/ports"
	apierrors "github.com/Apurer/go-gin-records-api/internal/shared/errors"
)

// ListRecordsParams defines parameters for ListRecords.
type ListRecordsParams struct {
	// Limit caps the page size. Defaults to 100, at most 1000.
	Limit *int `form:"limit,omitempty" json:"limit,omitempty"`
	// Offset skips that many records in order.
	Offset *int `form:"offset,omitempty" json:"offset,omitempty"`
}

// MoveRecordParams defines parameters for MoveRecord.
type MoveRecordParams struct {
	// IdempotencyKey makes retried moves replay the first outcome.
	IdempotencyKey *string `json:"Idempotency-Key,omitempty"`
}

// RecordAPI wires HTTP transport with the records bounded context service and workflows.
type RecordAPI struct {
	service   recordsports.Service
	workflows recordsports.WorkflowOrchestrator
}

// NewRecordAPI creates a RecordAPI backed by the provided service. When workflows is
// nil, moves run directly against the service.
func NewRecordAPI(service recordsports.Service, workflows recordsports.WorkflowOrchestrator) RecordAPI {
	return RecordAPI{service: service, workflows: workflows}
}

// Get /records
// Lists records ordered by position
func (api *RecordAPI) ListRecords(c *gin.Context) {
	var params ListRecordsParams
	query := c.Request.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &params.Limit); err != nil {
		respondProblem(c, apierrors.NewValidationProblem(map[string]string{"limit": err.Error()}))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", query, &params.Offset); err != nil {
		respondProblem(c, apierrors.NewValidationProblem(map[string]string{"offset": err.Error()}))
		return
	}
	limit, offset := 0, 0
	if params.Limit != nil {
		limit = *params.Limit
	}
	if params.Offset != nil {
		offset = *params.Offset
	}
	records := api.service.ListRecords(c.Request.Context(), limit, offset)
	c.JSON(http.StatusOK, recordhttpmapper.FromDomainList(records))
}

// Get /records/:recordId
// Find record by ID
func (api *RecordAPI) GetRecord(c *gin.Context) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "recordId", c.Param("recordId"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		respondProblem(c, apierrors.NewValidationProblem(map[string]string{"recordId": err.Error()}))
		return
	}
	record, err := api.service.GetRecord(c.Request.Context(), id)
	if err != nil {
		respondRecordServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, recordhttpmapper.FromDomain(record))
}

// Post /records/move
// Moves a record between two neighbors
func (api *RecordAPI) MoveRecord(c *gin.Context) {
	var params MoveRecordParams
	if values := c.Request.Header.Values("Idempotency-Key"); len(values) == 1 {
		var key string
		err := runtime.BindStyledParameterWithOptions("simple", "Idempotency-Key", values[0], &key,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationHeader, Explode: false, Required: false})
		if err != nil {
			respondProblem(c, apierrors.NewValidationProblem(map[string]string{"Idempotency-Key": err.Error()}))
			return
		}
		params.IdempotencyKey = &key
	} else if len(values) > 1 {
		respondProblem(c, apierrors.NewValidationProblem(map[string]string{"Idempotency-Key": "expected exactly one value"}))
		return
	}
	var payload recordhttpmapper.MoveRecordRequest
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondProblem(c, apierrors.ErrBadRequest.WithDetail(err.Error()))
		return
	}
	req := recordhttpmapper.ToMoveRequest(payload)
	if params.IdempotencyKey != nil {
		req.IdempotencyKey = *params.IdempotencyKey
	}
	result, err := api.moveRecord(c.Request.Context(), req)
	if err != nil {
		respondRecordServiceError(c, err)
		return
	}
	if result.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	c.JSON(http.StatusOK, recordhttpmapper.FromMoveResult(result))
}

func (api *RecordAPI) moveRecord(ctx context.Context, req domain.MoveRequest) (*recordsports.MoveResult, error) {
	if api.workflows != nil {
		return api.workflows.MoveRecord(ctx, req)
	}
	return api.service.MoveRecord(ctx, req)
}
