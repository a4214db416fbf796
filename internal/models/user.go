package models

import "time"

type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ReloadResponse struct {
	Loaded   int    `json:"loaded"`
	Dropped  int    `json:"dropped"`
	Source   string `json:"source"`
	Snapshot bool   `json:"snapshot_saved"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
