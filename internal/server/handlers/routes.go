package handlers

import "net/http"

// Routes регистрирует маршруты development backend
func Routes(content *ContentHandler, health *HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/content", content.GetContent)
	mux.HandleFunc("POST /api/v1/content/batch", content.SaveBatch)
	mux.HandleFunc("GET /health", health.Health)
	return mux
}
