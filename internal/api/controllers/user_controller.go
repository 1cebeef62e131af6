package controllers

import (
	"errors"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	"github.com/apiguardian/apiguardian/internal/perrors"
	"github.com/apiguardian/apiguardian/internal/services"
	user2 "github.com/apiguardian/apiguardian/internal/services/user"
)

func RegisterUserRoutes(r *router.Router, svc *services.Services) {
	r.POST("/api/users", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		var body user2.CreateUserRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		if body.Email == "" {
			writeError(ctx, stdCtx, "Email is required", perrors.NewErrInvalidRequest("Email is required", errors.New("email is required")))
			return
		}

		created, err := svc.User.Create(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create user", perrors.NewErrInternalServerError("Failed to create user", err))
			return
		}

		writeOK(ctx, stdCtx, "User created successfully", created)
	})

	r.GET("/api/users/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		u, err := svc.User.GetByID(stdCtx, id)
		if err != nil {
			switch {
			case errors.Is(err, user2.ErrUserNotFound):
				writeError(ctx, stdCtx, "User not found", perrors.NewErrNotFound("User not found", err))
			default:
				writeError(ctx, stdCtx, "Failed to get user", perrors.NewErrInternalServerError("Failed to get user", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "User retrieved successfully", u)
	})
}
