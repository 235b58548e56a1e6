package api

import (
	"net/http"

	"github.com/marmos91/lodestone/pkg/instance"
)

func pathInstanceID(r *http.Request) instance.ID {
	return instance.ID(r.PathValue("id"))
}

// handleInstanceList returns the instances the caller may view.
func (a *RESTAdapter) handleInstanceList(w http.ResponseWriter, r *http.Request) {
	infos, err := a.orch.List(r.Context(), requestUser(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

type createResponse struct {
	ID instance.ID `json:"uuid"`
}

// handleInstanceCreate validates the manifest and starts provisioning,
// answering with the new identity before provisioning completes.
func (a *RESTAdapter) handleInstanceCreate(w http.ResponseWriter, r *http.Request) {
	gameType := instance.GameType(r.PathValue("gameType"))

	var manifest map[string]any
	if err := decodeJSON(w, r, a.config.MaxBodyBytes, &manifest); err != nil {
		writeError(w, err)
		return
	}

	id, err := a.orch.Create(r.Context(), requestUser(r), gameType, manifest)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, createResponse{ID: id})
}

// handleInstanceInfo returns one instance snapshot.
func (a *RESTAdapter) handleInstanceInfo(w http.ResponseWriter, r *http.Request) {
	info, err := a.orch.Info(r.Context(), requestUser(r), pathInstanceID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleInstanceDelete tears the instance down. The instance must be
// stopped.
func (a *RESTAdapter) handleInstanceDelete(w http.ResponseWriter, r *http.Request) {
	if err := a.orch.Delete(r.Context(), requestUser(r), pathInstanceID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *RESTAdapter) handleInstanceStart(w http.ResponseWriter, r *http.Request) {
	if err := a.orch.Start(r.Context(), requestUser(r), pathInstanceID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *RESTAdapter) handleInstanceStop(w http.ResponseWriter, r *http.Request) {
	if err := a.orch.Stop(r.Context(), requestUser(r), pathInstanceID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
