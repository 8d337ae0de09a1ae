// Package api exposes the assistant over HTTP: analyze-and-execute,
// entity resolution, plan control and approval decisions.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/donna-ai/donna/internal/events"
	"github.com/donna-ai/donna/internal/executor"
	"github.com/donna-ai/donna/internal/intent"
	"github.com/donna-ai/donna/internal/observability"
	"github.com/donna-ai/donna/internal/plan"
	"github.com/donna-ai/donna/internal/resolve"
	"github.com/donna-ai/donna/internal/store"
)

// Server wires the assistant's components behind a chi router. All
// requests act on behalf of the configured single user.
type Server struct {
	userID   string
	store    *store.Store
	resolver *resolve.Resolver
	analyzer *intent.Analyzer
	planner  *intent.Planner
	executor *executor.Executor
	logger   *observability.Logger
}

func NewServer(userID string, st *store.Store, res *resolve.Resolver, an *intent.Analyzer, pl *intent.Planner, ex *executor.Executor, logger *observability.Logger) *Server {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &Server{
		userID:   userID,
		store:    st,
		resolver: res,
		analyzer: an,
		planner:  pl,
		executor: ex,
		logger:   logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/assist", s.handleAssist)
		r.Post("/resolve", s.handleResolve)

		r.Route("/plans/{planID}", func(r chi.Router) {
			r.Get("/", s.handleGetPlan)
			r.Get("/events", s.handlePlanEvents)
			r.Post("/execute", s.handleExecute)
			r.Post("/resume", s.handleResume)
			r.Post("/cancel", s.handleCancel)
		})

		r.Get("/approvals", s.handleListApprovals)
		r.Post("/approvals/{approvalID}", s.handleDecideApproval)
	})
	return r
}

type assistRequest struct {
	Input string `json:"input"`
}

type assistResponse struct {
	Analysis               *intent.Analysis `json:"analysis"`
	Resolution             *resolve.Result  `json:"resolution"`
	NeedsClarification     bool             `json:"needs_clarification"`
	ClarificationQuestions []string         `json:"clarification_questions,omitempty"`
	Plan                   *plan.Plan       `json:"plan,omitempty"`
	Events                 []events.Event   `json:"events,omitempty"`
}

// handleAssist is the full pipeline: analyze the request, resolve its
// entities, build a plan and execute it. Ambiguity short-circuits with
// clarification questions instead of a plan.
func (s *Server) handleAssist(w http.ResponseWriter, r *http.Request) {
	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Input == "" {
		http.Error(w, `invalid body: {"input":"..."}`, http.StatusBadRequest)
		return
	}
	ctx := r.Context()

	observability.SetStatus(observability.ModePlanning, req.Input)
	defer observability.SetStatus(observability.ModeIdle, "")

	analysis, err := s.analyzer.Analyze(ctx, s.userID, req.Input)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	resolution := s.resolver.ResolveEntities(ctx, s.userID, analysis.Entities)
	for _, re := range resolution.Entities {
		s.logger.LogResolution(s.userID, string(re.Extracted.Type), re.Extracted.Text,
			string(re.Status), re.Confidence)
	}

	resp := assistResponse{
		Analysis:               analysis,
		Resolution:             resolution,
		NeedsClarification:     resolution.NeedsClarification,
		ClarificationQuestions: resolution.ClarificationQuestions,
	}
	if resolution.NeedsClarification {
		writeJSON(w, resp)
		return
	}

	built, err := s.planner.BuildPlan(ctx, s.userID, analysis, resolution)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err := s.store.SavePlan(ctx, built); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	observability.SetStatus(observability.ModeExecuting, built.Goal)
	if err := s.executor.ExecutePlan(ctx, built.ID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	final, err := s.store.GetPlan(ctx, built.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp.Plan = final
	resp.Events = s.executor.GetPlanEventEmitter(built.ID).History()
	writeJSON(w, resp)
}

type resolveRequest struct {
	Entities []resolve.ExtractedEntity `json:"entities"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Entities) == 0 {
		http.Error(w, `invalid body: {"entities":[...]}`, http.StatusBadRequest)
		return
	}
	writeJSON(w, s.resolver.ResolveEntities(r.Context(), s.userID, req.Entities))
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetPlan(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if p == nil {
		http.Error(w, "plan not found", http.StatusNotFound)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handlePlanEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.executor.GetPlanEventEmitter(chi.URLParam(r, "planID")).History())
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	if err := s.executor.ExecutePlan(r.Context(), planID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writePlan(w, r, planID)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	planID := chi.URLParam(r, "planID")
	if err := s.executor.ResumePlan(r.Context(), planID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writePlan(w, r, planID)
}

type cancelRequest struct {
	CancelledBy string `json:"cancelled_by"`
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.CancelledBy == "" {
		req.CancelledBy = s.userID
	}
	planID := chi.URLParam(r, "planID")
	if err := s.executor.CancelPlan(r.Context(), planID, req.CancelledBy); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writePlan(w, r, planID)
}

func (s *Server) handleListApprovals(w http.ResponseWriter, r *http.Request) {
	approvals, err := s.store.ListPendingApprovals(r.Context(), s.userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, approvals)
}

type decisionRequest struct {
	Approved  bool   `json:"approved"`
	DecidedBy string `json:"decided_by"`
}

// handleDecideApproval records the decision and re-enters the paused
// plan: approval resumes it, rejection skips the gated step and
// continues.
func (s *Server) handleDecideApproval(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `invalid body: {"approved":true,"decided_by":"..."}`, http.StatusBadRequest)
		return
	}
	if req.DecidedBy == "" {
		req.DecidedBy = s.userID
	}
	approvalID := chi.URLParam(r, "approvalID")
	ctx := r.Context()

	approval, err := s.store.GetApproval(ctx, approvalID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if approval == nil {
		http.Error(w, "approval not found", http.StatusNotFound)
		return
	}

	status := store.ApprovalRejected
	if req.Approved {
		status = store.ApprovalApproved
	}
	ok, err := s.store.DecideApproval(ctx, approvalID, status, req.DecidedBy)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "approval already decided or expired", http.StatusConflict)
		return
	}
	s.logger.LogApproval(s.userID, approval.PlanID, approvalID, string(status))

	if req.Approved {
		err = s.executor.ResumePlan(ctx, approval.PlanID)
	} else {
		err = s.executor.ResumePlanAfterRejection(ctx, approval.PlanID)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.writePlan(w, r, approval.PlanID)
}

func (s *Server) writePlan(w http.ResponseWriter, r *http.Request, planID string) {
	p, err := s.store.GetPlan(r.Context(), planID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, p)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
