package controllers

import (
	"time"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/apiguardian/apiguardian/internal/perrors"
	"github.com/apiguardian/apiguardian/internal/services"
)

func RegisterUsageRoutes(r *router.Router, svc *services.Services) {
	// Recent usage records for a project
	r.GET("/api/projects/{id}/usage", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		limit := ctx.QueryArgs().GetUintOrZero("limit")

		records, err := svc.Usage.ListByProject(stdCtx, id, limit)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to list usage records", perrors.NewErrInternalServerError("Failed to list usage records", err))
			return
		}

		writeOK(ctx, stdCtx, "Usage records retrieved successfully", records)
	})

	// Aggregated totals for the current month
	r.GET("/api/projects/{id}/usage/monthly", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		totals, err := svc.Usage.MonthlyTotals(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to aggregate monthly usage", perrors.NewErrInternalServerError("Failed to aggregate monthly usage", err))
			return
		}

		writeOK(ctx, stdCtx, "Monthly usage retrieved successfully", totals)
	})

	// Per-day totals from the analytics store. Defaults to the last 30 days.
	r.GET("/api/projects/{id}/usage/daily", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		end := time.Now()
		start := end.AddDate(0, 0, -30)

		if raw := ctx.QueryArgs().Peek("start"); len(raw) > 0 {
			start, err = time.Parse("2006-01-02", string(raw))
			if err != nil {
				writeError(ctx, stdCtx, "Invalid start date", perrors.NewErrInvalidRequest("Invalid start date", err))
				return
			}
		}

		if raw := ctx.QueryArgs().Peek("end"); len(raw) > 0 {
			end, err = time.Parse("2006-01-02", string(raw))
			if err != nil {
				writeError(ctx, stdCtx, "Invalid end date", perrors.NewErrInvalidRequest("Invalid end date", err))
				return
			}
		}

		totals, err := svc.Usage.DailyTotals(stdCtx, id, start, end)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to query daily usage", perrors.NewErrInternalServerError("Failed to query daily usage", err))
			return
		}

		writeOK(ctx, stdCtx, "Daily usage retrieved successfully", totals)
	})
}
