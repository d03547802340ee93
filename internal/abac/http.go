// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package abac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/scholaris/scholaris/internal/platform/request"
	"github.com/scholaris/scholaris/internal/platform/respond"
	"github.com/scholaris/scholaris/internal/tenant"
)

type Handler struct {
	evaluator *Evaluator
	usage     UsageRepository
}

func NewHandler(evaluator *Evaluator, usage UsageRepository) *Handler {
	return &Handler{evaluator: evaluator, usage: usage}
}

// RegisterQuotaRoutes mounts the quota read under an institution-scoped
// group; the group must sit behind Authenticate and tenant.Require.
func (handler *Handler) RegisterQuotaRoutes(router chi.Router) {
	router.Get("/quota", handler.getQuota)
}

// RegisterUsageRoutes mounts the AI usage spend endpoint behind
// Authenticate and tenant.Require.
func (handler *Handler) RegisterUsageRoutes(router chi.Router) {
	router.Post("/usage", handler.consumeUsage)
}

func (handler *Handler) getQuota(writer http.ResponseWriter, request *http.Request) {
	abacCtx, err := handler.buildContext(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	report, err := handler.evaluator.QuotaReport(request.Context(), abacCtx, handler.usage)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, report)
}

func (handler *Handler) consumeUsage(writer http.ResponseWriter, request *http.Request) {
	abacCtx, err := handler.buildContext(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input struct {
		Metric string `json:"metric"`
		Amount int    `json:"amount"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.evaluator.ConsumeAIUsage(request.Context(), abacCtx, handler.usage, input.Metric, input.Amount); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

func (handler *Handler) buildContext(request *http.Request) (*Context, error) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		return nil, err
	}

	return handler.evaluator.BuildContext(request.Context(), principal, tenant.FromContext(request.Context()))
}
