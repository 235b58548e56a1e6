package api

import (
	"net/http"
)

// handler builds the route table. Login and the version probe are open;
// everything else runs behind the bearer middleware.
func (a *RESTAdapter) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", a.withLoginRateLimit(a.handleLogin))
	mux.HandleFunc("GET /info", a.handleInfo)

	mux.HandleFunc("GET /instance/list", a.withAuth(a.handleInstanceList))
	mux.HandleFunc("POST /instance/create/{gameType}", a.withAuth(a.handleInstanceCreate))
	mux.HandleFunc("GET /instance/{id}/info", a.withAuth(a.handleInstanceInfo))
	mux.HandleFunc("DELETE /instance/{id}", a.withAuth(a.handleInstanceDelete))
	mux.HandleFunc("PUT /instance/{id}/start", a.withAuth(a.handleInstanceStart))
	mux.HandleFunc("PUT /instance/{id}/stop", a.withAuth(a.handleInstanceStop))

	mux.HandleFunc("GET /instance/{id}/fs/ls/{path...}", a.withAuth(a.handleFileList))
	mux.HandleFunc("GET /instance/{id}/fs/read/{path...}", a.withAuth(a.handleFileRead))
	mux.HandleFunc("PUT /instance/{id}/fs/write/{path...}", a.withAuth(a.handleFileWrite))
	mux.HandleFunc("PUT /instance/{id}/fs/mkdir/{path...}", a.withAuth(a.handleFileMkdir))
	mux.HandleFunc("DELETE /instance/{id}/fs/rm/{path...}", a.withAuth(a.handleFileRemove))

	mux.HandleFunc("POST /instance/{id}/backup", a.withAuth(a.handleBackup))
	mux.HandleFunc("GET /instance/{id}/backups", a.withAuth(a.handleBackupList))

	mux.HandleFunc("GET /events/stream", a.withAuth(a.handleEventStream))

	return a.withMetrics(mux)
}
