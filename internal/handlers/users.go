package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/benvon/identity-api/internal/middleware"
	"github.com/benvon/identity-api/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const dateOfBirthLayout = "2006-01-02"

// UserHandler handles profile and current-user requests
type UserHandler struct {
	reconciler IdentityReconciler
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(reconciler IdentityReconciler, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		reconciler: reconciler,
		validate:   validator.New(),
		logger:     logger,
	}
}

// RegisterRoutes registers user routes on the given router
// The router should already have the /api/v1/users prefix and auth middleware
func (h *UserHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/me", h.GetMe).Methods("GET")
	r.HandleFunc("/me/profile", h.UpsertProfile).Methods("PUT")
}

type profileRequest struct {
	GivenName            *string `json:"givenName" validate:"omitempty,max=100"`
	FamilyName           *string `json:"familyName" validate:"omitempty,max=100"`
	Phone                *string `json:"phone" validate:"omitempty,max=32"`
	DateOfBirth          *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
	DrivingLicenseNumber *string `json:"drivingLicenseNumber" validate:"omitempty,max=64"`
	PassportNumber       *string `json:"passportNumber" validate:"omitempty,max=64"`
	PreferredLanguage    *string `json:"preferredLanguage" validate:"omitempty,max=16"`
	CountryOfResidence   *string `json:"countryOfResidence" validate:"omitempty,max=64"`
	RequestedRole        *string `json:"requestedRole" validate:"omitempty,oneof=USER ADMIN FLEET_MANAGER"`
}

type profileResponse struct {
	UserID               string  `json:"userId"`
	Email                string  `json:"email"`
	Name                 *string `json:"name"`
	GivenName            *string `json:"givenName"`
	FamilyName           *string `json:"familyName"`
	Picture              *string `json:"picture"`
	Phone                *string `json:"phone"`
	DateOfBirth          *string `json:"dateOfBirth"`
	DrivingLicenseNumber *string `json:"drivingLicenseNumber"`
	PassportNumber       *string `json:"passportNumber"`
	PreferredLanguage    *string `json:"preferredLanguage"`
	CountryOfResidence   *string `json:"countryOfResidence"`
}

// UpsertProfile applies a profile submission for the authenticated user.
// Only supplied fields are written; everything else keeps its stored value.
// A requestedRole in the payload is accepted for schema compatibility but
// ignored: role is fixed at creation.
func (h *UserHandler) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", "Malformed JSON body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	patch := &models.ProfilePatch{
		GivenName:            req.GivenName,
		FamilyName:           req.FamilyName,
		Phone:                req.Phone,
		DrivingLicenseNumber: req.DrivingLicenseNumber,
		PassportNumber:       req.PassportNumber,
		PreferredLanguage:    req.PreferredLanguage,
		CountryOfResidence:   req.CountryOfResidence,
	}
	if req.DateOfBirth != nil {
		dob, err := time.Parse(dateOfBirthLayout, *req.DateOfBirth)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Invalid request", "dateOfBirth must be YYYY-MM-DD")
			return
		}
		patch.DateOfBirth = &dob
	}

	updated, profile, err := h.reconciler.UpsertProfile(r.Context(), user.ID, patch)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "Not found", "User does not exist")
			return
		}
		h.logger.Error("profile_upsert_failed", zap.Error(err))
		respondJSONError(w, http.StatusServiceUnavailable, "Service unavailable", "Please retry")
		return
	}

	respondJSON(w, http.StatusOK, newProfileResponse(updated, profile))
}

// GetMe returns the authenticated user and their profile, if any.
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	profile, err := h.reconciler.Profile(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("profile_lookup_failed", zap.Error(err))
		respondJSONError(w, http.StatusServiceUnavailable, "Service unavailable", "Please retry")
		return
	}

	respondJSON(w, http.StatusOK, newProfileResponse(user, profile))
}

func newProfileResponse(user *models.User, profile *models.Profile) profileResponse {
	resp := profileResponse{
		UserID:     user.PublicID.String(),
		Email:      user.Email,
		Name:       user.Name,
		GivenName:  user.GivenName,
		FamilyName: user.FamilyName,
		Picture:    user.Picture,
	}
	if profile != nil {
		resp.Phone = profile.Phone
		resp.DrivingLicenseNumber = profile.DrivingLicenseNumber
		resp.PassportNumber = profile.PassportNumber
		resp.PreferredLanguage = profile.PreferredLanguage
		resp.CountryOfResidence = profile.CountryOfResidence
		if profile.DateOfBirth != nil {
			dob := profile.DateOfBirth.Format(dateOfBirthLayout)
			resp.DateOfBirth = &dob
		}
	}
	return resp
}
