// Package handler exposes the job HTTP API from spec §6.1, built the
// way internal/modules/sales/handler wires *httprouter.Router handlers
// over a thin service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/xuri/excelize/v2"

	"github.com/sparkjar/crew-orchestrator/internal/modules/auth/middleware"
	"github.com/sparkjar/crew-orchestrator/internal/modules/jobs/service"
	"github.com/sparkjar/crew-orchestrator/internal/modules/jobs/types"
	"github.com/sparkjar/crew-orchestrator/pkg/apierr"
	"github.com/sparkjar/crew-orchestrator/pkg/engine"
)

// CancelScope is the scope required to request job cancellation.
const CancelScope = "crew_job:cancel"

// PolicyChecker is the narrow slice of pkg/policy.Engine used for
// scope/action authorization, kept as a local interface so this
// package does not need to import policy directly.
type PolicyChecker interface {
	CheckPermission(ctx context.Context, subject, object, action string) (bool, error)
}

type Handler struct {
	service *service.Service
	policy  PolicyChecker
}

func NewHandler(service *service.Service, policy PolicyChecker) *Handler {
	return &Handler{service: service, policy: policy}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/crew_job", h.CreateJob)
	router.GET("/crew_job/:id", h.GetJob)
	router.POST("/crew_job/:id/cancel", h.CancelJob)
	router.GET("/crew_job/:id/export", h.ExportJob)
}

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierr.New(apierr.Validation, "request body is not valid JSON"))
		return
	}

	explicitSchema, _ := payload["schema_name"].(string)
	delete(payload, "schema_name")

	jobID, err := h.service.CreateJob(r.Context(), explicitSchema, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.CreateJobResponse{JobID: jobID, Status: engine.StatusQueued})
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	jobID, err := uuid.Parse(ps.ByName("id"))
	if err != nil {
		writeError(w, apierr.New(apierr.Validation, "invalid job id"))
		return
	}

	job, events, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, toGetJobResponse(job, events))
}

func (h *Handler) CancelJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	scopes, _ := middleware.ScopesFromContext(r.Context())
	subject, _ := middleware.SubjectFromContext(r.Context())
	if !hasScope(scopes, CancelScope) {
		writeError(w, apierr.New(apierr.Authorization, "missing required scope "+CancelScope))
		return
	}
	if allowed, err := h.policy.CheckPermission(r.Context(), subject, "crew_job", "cancel"); err != nil || !allowed {
		writeError(w, apierr.New(apierr.Authorization, "cancel denied by policy"))
		return
	}

	jobID, err := uuid.Parse(ps.ByName("id"))
	if err != nil {
		writeError(w, apierr.New(apierr.Validation, "invalid job id"))
		return
	}

	status, terminal, err := h.service.Cancel(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	if terminal {
		writeJSON(w, http.StatusConflict, types.CancelResponse{Status: status})
		return
	}
	writeJSON(w, http.StatusOK, types.CancelResponse{Status: status})
}

// ExportJob returns the job's event log as an .xlsx workbook, a
// supplemented feature combining the original scripts/*export*.py
// pattern with the teacher's excelize usage.
func (h *Handler) ExportJob(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	jobID, err := uuid.Parse(ps.ByName("id"))
	if err != nil {
		writeError(w, apierr.New(apierr.Validation, "invalid job id"))
		return
	}

	job, events, err := h.service.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, err)
		return
	}
	if job == nil {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Events"
	f.SetSheetName(f.GetSheetName(0), sheet)
	headers := []string{"seq", "event_type", "event_time", "event_data"}
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
	for i, ev := range events {
		row := i + 2
		dataJSON, _ := json.Marshal(ev.EventData)
		values := []interface{}{ev.Seq, string(ev.EventType), ev.EventTime.Format("2006-01-02T15:04:05Z07:00"), string(dataJSON)}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.ID.String()+"-events.xlsx"))
	if err := f.Write(w); err != nil {
		http.Error(w, "failed to write workbook", http.StatusInternalServerError)
	}
}

func hasScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}

func toGetJobResponse(job *engine.Job, events []engine.JobEvent) types.GetJobResponse {
	views := make([]types.EventView, 0, len(events))
	for _, e := range events {
		views = append(views, types.EventView{Seq: e.Seq, EventType: e.EventType, EventTime: e.EventTime, EventData: e.EventData})
	}
	return types.GetJobResponse{
		JobID:            job.ID,
		JobKey:           job.JobKey,
		Status:           job.Status,
		QueuedAt:         job.QueuedAt,
		StartedAt:        job.StartedAt,
		FinishedAt:       job.FinishedAt,
		Attempts:         job.Attempts,
		LastError:        job.LastError,
		Result:           job.Result,
		ResultArchiveKey: job.ResultArchiveKey,
		ResultByteCount:  job.ResultByteCount,
		Events:           views,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		if mapped, ok := apierr.As(err); ok {
			apiErr = mapped
		} else {
			apiErr = apierr.Wrap(apierr.StoreUnavailable, "internal error", err)
		}
	}
	writeJSON(w, apiErr.HTTPStatus(), types.ErrorResponse{Error: string(apiErr.Category) + ": " + apiErr.Message, Details: apiErr.Errors})
}
