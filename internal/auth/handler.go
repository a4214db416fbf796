package auth

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ccna-trainer/backend/internal/models"
)

const adminTokenTTL = 8 * time.Hour

type Handler struct {
	svc           *Service
	adminUser     string
	adminPassHash string
}

// NewHandler serves admin login. An empty passHash disables it.
func NewHandler(svc *Service, adminUser, passHash string) *Handler {
	return &Handler{svc: svc, adminUser: adminUser, adminPassHash: passHash}
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	if h.adminPassHash == "" {
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "Admin login is not configured"})
		return
	}

	var req models.AdminLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Username and password are required"})
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.adminUser)) == 1
	passErr := bcrypt.CompareHashAndPassword([]byte(h.adminPassHash), []byte(req.Password))
	if !userOK || passErr != nil {
		log.Printf("WARN: [auth] failed admin login for %q", req.Username)
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid username or password"})
		return
	}

	token, exp, err := h.svc.IssueAdmin(h.adminUser, adminTokenTTL)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{Token: token, ExpiresAt: exp})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
