// Copyright (c) 2026 Scholaris. All rights reserved.
// Author: platform@scholaris.app

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scholaris/scholaris/internal/platform/middleware"
	requestutil "github.com/scholaris/scholaris/internal/platform/request"
	"github.com/scholaris/scholaris/internal/platform/respond"
)

type Handler struct {
	service  *Service
	resolver middleware.IdentityResolver
}

func NewHandler(service *Service, resolver middleware.IdentityResolver) *Handler {
	return &Handler{service: service, resolver: resolver}
}

// RegisterRoutes mounts the authentication endpoints.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	// Public
	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)
	router.Post("/password/forgot", handler.forgotPassword)
	router.Post("/password/reset", handler.resetPassword)

	// Authenticated
	router.Group(func(authed chi.Router) {
		authed.Use(middleware.Authenticate(handler.resolver))

		authed.Get("/me", handler.me)
		authed.Post("/password/change", handler.changePassword)
	})
}

func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input RegisterInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	response, err := handler.service.Register(request.Context(), input, middleware.RealIP(request), request.UserAgent())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, response)
}

func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input LoginInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	response, err := handler.service.Login(request.Context(), input, middleware.RealIP(request), request.UserAgent())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, response)
}

func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	response, err := handler.service.Refresh(request.Context(), input.RefreshToken, middleware.RealIP(request), request.UserAgent())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, response)
}

func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Email string `json:"email"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// The raw token goes to the delivery channel, never to the caller; the
	// response is byte-identical for known and unknown accounts.
	if _, err := handler.service.RequestPasswordReset(request.Context(), input.Email); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{
		"message": "If the email is registered, a reset link has been sent",
	})
}

func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ResetPassword(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Password has been reset"})
}

func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.repo.GetPrincipal(request.Context(), principal.ID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	user.PasswordHash = nil
	respond.OK(writer, map[string]any{
		"user":      user,
		"role_name": principal.RoleName,
	})
}

func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	principal, err := requestutil.RequiredPrincipal(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.ChangePassword(request.Context(), principal.ID, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"message": "Password changed"})
}
