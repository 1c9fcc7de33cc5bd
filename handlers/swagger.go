package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger serves the OpenAPI description of the status endpoints.
// - GET /swagger/doc.json -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "server-bootstrap", "version": "v0.1.0" },
  "paths": {
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Bootstrap succeeded and schema verified", "responses": { "200": { "description": "ready" }, "503": { "description": "pending, failed or drifted" } } } },
    "/status": { "get": { "summary": "Report of the last bootstrap run", "responses": { "200": { "description": "report" }, "404": { "description": "no run yet" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "text exposition format" } } } }
  }
}`
