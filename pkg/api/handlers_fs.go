package api

import (
	"io"
	"net/http"

	apperrors "github.com/marmos91/lodestone/internal/errors"
)

// handleFileList enumerates a directory inside the instance sandbox.
func (a *RESTAdapter) handleFileList(w http.ResponseWriter, r *http.Request) {
	entries, err := a.orch.FileList(r.Context(), requestUser(r), pathInstanceID(r), r.PathValue("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleFileRead serves a UTF-8 text file as plain text.
func (a *RESTAdapter) handleFileRead(w http.ResponseWriter, r *http.Request) {
	content, err := a.orch.FileRead(r.Context(), requestUser(r), pathInstanceID(r), r.PathValue("path"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, content)
}

// handleFileWrite stores the raw request body as the file's new content.
func (a *RESTAdapter) handleFileWrite(w http.ResponseWriter, r *http.Request) {
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.config.MaxBodyBytes))
	if err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeBadRequest, "failed to read request body", err))
		return
	}

	if err := a.orch.FileWrite(r.Context(), requestUser(r), pathInstanceID(r), r.PathValue("path"), content); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFileMkdir creates a directory tree inside the sandbox.
func (a *RESTAdapter) handleFileMkdir(w http.ResponseWriter, r *http.Request) {
	if err := a.orch.FileMkdir(r.Context(), requestUser(r), pathInstanceID(r), r.PathValue("path")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleFileRemove deletes a file or directory tree inside the sandbox.
func (a *RESTAdapter) handleFileRemove(w http.ResponseWriter, r *http.Request) {
	if err := a.orch.FileRemove(r.Context(), requestUser(r), pathInstanceID(r), r.PathValue("path")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
