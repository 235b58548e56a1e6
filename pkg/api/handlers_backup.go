package api

import (
	"net/http"
)

// handleBackup archives the instance directory and returns the stored
// entry.
func (a *RESTAdapter) handleBackup(w http.ResponseWriter, r *http.Request) {
	entry, err := a.orch.Backup(r.Context(), requestUser(r), pathInstanceID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// handleBackupList returns the instance's stored archives.
func (a *RESTAdapter) handleBackupList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.orch.Backups(r.Context(), requestUser(r), pathInstanceID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
