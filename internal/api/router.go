package api

import (
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/planwheel/planwheel/internal/api/recovery"
	"github.com/planwheel/planwheel/internal/services"
	"github.com/planwheel/planwheel/internal/store"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(st store.Store, log zerolog.Logger) *mux.Router {
	router := mux.NewRouter()

	// Global middlewares
	router.Use(recovery.Middleware)

	// Domain services
	userService := services.NewUserService(st)
	taskService := services.NewTaskService(st)
	templateService := services.NewTemplateService(st, log)

	// Handlers
	healthHandler := NewHealthHandler()
	userHandler := NewUserHandler(userService)
	taskHandler := NewTaskHandler(taskService)
	templateHandler := NewTemplateHandler(templateService)
	calendarHandler := NewCalendarHandler(taskService)

	// Health endpoint
	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")

	// User endpoints
	router.HandleFunc("/api/users", userHandler.CreateUser).Methods("POST")
	router.HandleFunc("/api/users/{userId}", userHandler.GetUser).Methods("GET")
	router.HandleFunc("/api/users/{userId}", userHandler.DeleteUser).Methods("DELETE")

	// Task endpoints
	router.HandleFunc("/api/users/{userId}/tasks", taskHandler.CreateTask).Methods("POST")
	router.HandleFunc("/api/users/{userId}/tasks", taskHandler.ListTasks).Methods("GET")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId}", taskHandler.GetTask).Methods("GET")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId}", taskHandler.UpdateTask).Methods("PATCH")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId}", taskHandler.DeleteTask).Methods("DELETE")
	router.HandleFunc("/api/users/{userId}/tasks/{taskId}/schedule", taskHandler.UpdateSchedule).Methods("PATCH")

	// Template endpoints
	router.HandleFunc("/api/users/{userId}/templates", templateHandler.CreateTemplate).Methods("POST")
	router.HandleFunc("/api/users/{userId}/templates", templateHandler.ListTemplates).Methods("GET")
	router.HandleFunc("/api/users/{userId}/templates/{templateId}", templateHandler.GetTemplate).Methods("GET")
	router.HandleFunc("/api/users/{userId}/templates/{templateId}", templateHandler.DeleteTemplate).Methods("DELETE")
	router.HandleFunc("/api/users/{userId}/templates/{templateId}/materialize", templateHandler.Materialize).Methods("POST")

	// Calendar export
	router.HandleFunc("/api/users/{userId}/calendar.ics", calendarHandler.ExportICS).Methods("GET")

	return router
}
