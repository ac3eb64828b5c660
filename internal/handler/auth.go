package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/instasupply/internal/domain/auth"
	"github.com/xenking/instasupply/internal/domain/order"
)

// Messages returned by Authenticate.
const (
	msgNoToken       = "Please login to access this route. No token provided."
	msgTokenExpired  = "Your session has expired. Please login again."
	msgSupplierGone  = "User not found. Token is invalid."
	msgTokenRejected = "Invalid token. Please login again."
)

type sessionKey struct{}

type session struct {
	supplier *auth.Supplier
	claims   *auth.Claims
}

func withSession(ctx context.Context, s session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func sessionFrom(ctx context.Context) session {
	s, _ := ctx.Value(sessionKey{}).(session)
	return s
}

// supplierID returns the authenticated supplier of the request.
func supplierID(r *http.Request) string {
	if s := sessionFrom(r.Context()).supplier; s != nil {
		return s.ID
	}
	return ""
}

func actor(r *http.Request) order.Actor {
	s := sessionFrom(r.Context()).supplier
	if s == nil {
		return order.Actor{}
	}
	return order.Actor{SupplierID: s.ID, Name: s.Name}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate rejects requests without a valid session token and stores the
// supplier in the request context.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, r, http.StatusUnauthorized, msgNoToken)
			return
		}

		sup, claims, err := h.auth.Authenticate(r.Context(), raw)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrTokenExpired):
			writeError(w, r, http.StatusUnauthorized, msgTokenExpired)
			return
		case errors.Is(err, auth.ErrSupplierGone):
			writeError(w, r, http.StatusUnauthorized, msgSupplierGone)
			return
		case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenRevoked):
			writeError(w, r, http.StatusUnauthorized, msgTokenRejected)
			return
		default:
			handleError(w, r, err, "Server Error")
			return
		}

		ctx := withSession(r.Context(), session{supplier: sup, claims: claims})
		ctx = zctx.With(ctx, zap.String("supplier_id", sup.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type changeEmailRequest struct {
	OldEmail string `json:"oldEmail"`
	NewEmail string `json:"newEmail"`
}

type userResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ProfileImage string `json:"profileImage"`
}

type sessionResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    userResponse `json:"user"`
}

type changeEmailResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	NewEmail string `json:"newEmail"`
}

// Register creates a supplier account and mails an OTP.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	_, err := h.auth.Register(r.Context(), auth.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		handleError(w, r, err, "Failed to register. Please check your information and try again.")
		return
	}
	writeMessage(w, r, http.StatusCreated, "OTP sent to email.")
}

// RequestOTP mails a fresh OTP to a registered supplier.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	if err := h.auth.RequestOTP(r.Context(), req.Email); err != nil {
		handleError(w, r, err, "Failed to send OTP. Please try again.")
		return
	}
	writeMessage(w, r, http.StatusOK, "OTP sent to email.")
}

// VerifyOTP exchanges a valid OTP for a session token.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	s, err := h.auth.VerifyOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		handleError(w, r, err, "Failed to verify OTP. Please try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, sessionResponse{
		Success: true,
		Message: "OTP verified successfully",
		Token:   s.Token,
		User: userResponse{
			ID:           s.Supplier.ID,
			Name:         s.Supplier.Name,
			Email:        s.Supplier.Email,
			Phone:        s.Supplier.Phone,
			ProfileImage: h.imageURL(s.Supplier.ProfileImage),
		},
	})
}

// ChangeEmail moves an account to a new email and mails an OTP there.
func (h *Handler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	var req changeEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, err, "")
		return
	}
	sup, err := h.auth.ChangeEmail(r.Context(), req.OldEmail, req.NewEmail)
	if err != nil {
		handleError(w, r, err, "Failed to change email. Please try again.")
		return
	}
	writeJSON(w, r, http.StatusOK, changeEmailResponse{
		Success:  true,
		Message:  "Email changed successfully. OTP sent to new email.",
		NewEmail: sup.Email,
	})
}

// Logout revokes the token of the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := sessionFrom(r.Context()).claims
	if claims != nil {
		if err := h.auth.Logout(r.Context(), claims); err != nil {
			handleError(w, r, err, "Failed to logout. Please try again.")
			return
		}
	}
	writeMessage(w, r, http.StatusOK, "Logged out successfully")
}
