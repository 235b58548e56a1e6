package api

import (
	"net/http"

	"github.com/marmos91/lodestone/pkg/auth"
	"github.com/marmos91/lodestone/pkg/instance"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string          `json:"token"`
	User  auth.PublicUser `json:"user"`
}

// handleLogin exchanges credentials for a bearer token.
func (a *RESTAdapter) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, a.config.MaxBodyBytes, &req); err != nil {
		writeError(w, err)
		return
	}

	token, user, err := a.users.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user.Public()})
}

type infoResponse struct {
	Version   string              `json:"version"`
	GameTypes []instance.GameType `json:"game_types"`
}

// handleInfo is the unauthenticated version probe.
func (a *RESTAdapter) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infoResponse{
		Version:   a.config.Version,
		GameTypes: instance.RegisteredGameTypes(),
	})
}
