package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/benvon/identity-api/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ClaimsExtractor verifies a provider ID token and extracts identity claims.
type ClaimsExtractor interface {
	Extract(ctx context.Context, rawToken string) (*models.ProviderClaims, error)
}

// IdentityReconciler finds-or-creates users from verified claims.
type IdentityReconciler interface {
	Reconcile(ctx context.Context, claims *models.ProviderClaims, requestedRole models.Role) (*models.User, bool, error)
	UpsertProfile(ctx context.Context, userID int64, patch *models.ProfilePatch) (*models.User, *models.Profile, error)
	Profile(ctx context.Context, userID int64) (*models.Profile, error)
}

// TokenIssuer mints session credentials for reconciled users.
type TokenIssuer interface {
	Issue(user *models.User) (string, error)
	IssueRefresh(user *models.User) (string, error)
}

// EventPublisher announces user creations downstream. Failures never
// propagate to the request.
type EventPublisher interface {
	PublishUserCreated(ctx context.Context, user *models.User)
}

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	extractor  ClaimsExtractor
	reconciler IdentityReconciler
	issuer     TokenIssuer
	publisher  EventPublisher
	validate   *validator.Validate
	logger     *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(extractor ClaimsExtractor, reconciler IdentityReconciler, issuer TokenIssuer, publisher EventPublisher, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		extractor:  extractor,
		reconciler: reconciler,
		issuer:     issuer,
		publisher:  publisher,
		validate:   validator.New(),
		logger:     logger,
	}
}

// RegisterRoutes registers auth routes on the given router
// The router should already have the /api/v1/auth prefix
func (h *AuthHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/google", h.GoogleLogin).Methods("POST")
}

type googleLoginRequest struct {
	IDToken       string `json:"idToken" validate:"omitempty"`
	RequestedRole string `json:"requestedRole" validate:"omitempty,oneof=USER ADMIN FLEET_MANAGER"`
}

type loginResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	TokenType    string       `json:"tokenType"`
	User         *models.User `json:"user"`
}

// GoogleLogin exchanges a Google ID token for a local session credential.
// The bearer is reconciled into a local user record; on first login the
// record is created and the creation is announced on the broker.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req googleLoginRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Invalid request", "Malformed JSON body")
			return
		}
	}

	// The ID token may arrive in the body or as a bearer header.
	if req.IDToken == "" {
		req.IDToken = bearerToken(r)
	}
	if req.IDToken == "" {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Missing identity token")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	claims, err := h.extractor.Extract(ctx, req.IDToken)
	if err != nil {
		if errors.Is(err, models.ErrInvalidAssertion) {
			respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Identity token could not be verified")
			return
		}
		h.logger.Error("claims_extraction_failed", zap.Error(err))
		respondJSONError(w, http.StatusServiceUnavailable, "Service unavailable", "Identity provider unavailable")
		return
	}

	requestedRole, _ := models.ParseRole(req.RequestedRole)

	user, created, err := h.reconciler.Reconcile(ctx, claims, requestedRole)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidAssertion):
			respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Identity token is missing required claims")
		default:
			h.logger.Error("reconcile_failed", zap.Error(err))
			respondJSONError(w, http.StatusServiceUnavailable, "Service unavailable", "Please retry")
		}
		return
	}

	if created {
		// The record is already committed; delivery failures are absorbed
		// by the publisher and never unwind the login.
		h.publisher.PublishUserCreated(ctx, user)
	}

	accessToken, err := h.issuer.Issue(user)
	if err != nil {
		h.logger.Error("token_issue_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal error", "Failed to issue session token")
		return
	}

	refreshToken, err := h.issuer.IssueRefresh(user)
	if err != nil {
		h.logger.Error("token_issue_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal error", "Failed to issue session token")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	respondJSON(w, status, loginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		User:         user,
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
