package accounts

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/EmpoweredVote/EV-Accounts/internal/utils"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
	logger   *zap.Logger
}

func NewHandler(svc *Service, lg *zap.Logger) *Handler {
	return &Handler{
		svc:      svc,
		validate: utils.NewValidator(),
		logger:   lg,
	}
}

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type confirmRequest struct {
	UserID *uint  `json:"user_id" validate:"required"`
	Code   string `json:"code" validate:"required,max=6"`
}

type googleRequest struct {
	Token string `json:"token"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type verifyRequest struct {
	Token string `json:"token" validate:"required"`
}

// decode reads the JSON body into dst and validates it. On failure the
// response is already written.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorBody{
			Error:  "invalid request",
			Fields: utils.FormatValidationError(err),
		})
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *Error
	if errors.As(err, &e) {
		utils.WriteError(w, e.Status(), e.Message)
		return
	}
	h.logger.Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	utils.WriteError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, reg)
}

func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	auth, err := h.svc.Authorize(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, auth)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !h.decode(w, r, &req) {
		return
	}

	conf, err := h.svc.Confirm(r.Context(), *req.UserID, req.Code)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, conf)
}

// GoogleAuth skips struct validation so a missing token gets the
// service's own message.
func (h *Handler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.GoogleLogin(r.Context(), req.Token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) ObtainPair(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	pair, err := h.svc.ObtainPair(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.RefreshAccess(r.Context(), req.Refresh)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.VerifyToken(req.Token); err != nil {
		h.writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, struct{}{})
}

type MeResponse struct {
	UserID             uint       `json:"user_id"`
	Email              string     `json:"email"`
	FirstName          string     `json:"first_name"`
	LastName           string     `json:"last_name"`
	RegistrationSource Source     `json:"registration_source"`
	IsActive           bool       `json:"is_active"`
	LastLogin          *time.Time `json:"last_login"`
	Birthdate          *string    `json:"birthdate"`
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := utils.GetAccountIDFromContext(r.Context())
	if !ok {
		utils.WriteError(w, http.StatusUnauthorized, "missing account in context")
		return
	}

	a, err := h.svc.Account(r.Context(), id)
	if errors.Is(err, ErrAccountNotFound) {
		utils.WriteError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res := MeResponse{
		UserID:             a.ID,
		Email:              a.Email,
		FirstName:          a.FirstName,
		LastName:           a.LastName,
		RegistrationSource: a.RegistrationSource,
		IsActive:           a.IsActive,
		LastLogin:          a.LastLogin,
	}
	if a.Birthdate != nil {
		bd := a.Birthdate.Format(time.DateOnly)
		res.Birthdate = &bd
	}
	utils.WriteJSON(w, http.StatusOK, res)
}
