package routes

import (
	"github.com/go-chi/chi/v5"

	"mdm-platform/feedhub/internal/api"
	"mdm-platform/feedhub/internal/auth"
	"mdm-platform/feedhub/internal/middleware"
)

// RegisterAPIRoutes registers all API v1 routes and handlers. Reads need the
// read permission, configuration changes need write, and anything that
// reaches a remote source or starts a run needs run.
func RegisterAPIRoutes(r chi.Router, deps *api.Dependencies, handlers *api.Handlers) {

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.AuthMiddleware(deps.Signer)) // global: all routes must be authenticated
		v1.Use(middleware.Logging)

		// Read group
		v1.Group(func(read chi.Router) {
			read.Use(middleware.RequirePermission(auth.ActionRead))

			read.Get("/suppliers", handlers.ListSuppliers())
			read.Get("/suppliers/{id}", handlers.GetSupplier())

			read.Get("/connections", handlers.ListConnections())
			read.Get("/connections/{id}", handlers.GetConnection())
			read.Get("/connections/{id}/test-pulls", handlers.ListTestPulls())

			read.Get("/data-sources", handlers.ListDataSources())
			read.Get("/data-sources/{id}", handlers.GetDataSource())

			read.Get("/mapping-templates", handlers.ListMappingTemplates())
			read.Get("/mapping-templates/{id}", handlers.GetMappingTemplate())

			read.Get("/imports", handlers.ListImports())
			read.Get("/imports/events", handlers.RecentImportEvents())
			read.Get("/imports/{id}", handlers.GetImport())

			read.Get("/schedules", handlers.ListSchedules())
			read.Get("/schedules/jobs", handlers.ListJobs())
			read.Get("/schedules/{id}", handlers.GetSchedule())
		})

		// Write group
		v1.Group(func(write chi.Router) {
			write.Use(middleware.RequirePermission(auth.ActionWrite))

			write.Post("/suppliers", handlers.CreateSupplier())
			write.Put("/suppliers/{id}", handlers.UpdateSupplier())
			write.Delete("/suppliers/{id}", handlers.DeleteSupplier())

			write.Post("/connections", handlers.CreateConnection())
			write.Put("/connections/{id}", handlers.UpdateConnection())
			write.Delete("/connections/{id}", handlers.DeleteConnection())

			write.Post("/data-sources", handlers.CreateDataSource())
			write.Put("/data-sources/{id}", handlers.UpdateDataSource())
			write.Delete("/data-sources/{id}", handlers.DeleteDataSource())

			write.Post("/mapping-templates", handlers.CreateMappingTemplate())
			write.Put("/mapping-templates/{id}", handlers.UpdateMappingTemplate())
			write.Delete("/mapping-templates/{id}", handlers.DeleteMappingTemplate())

			write.Post("/schedules", handlers.CreateSchedule())
			write.Put("/schedules/{id}", handlers.UpdateSchedule())
			write.Delete("/schedules/{id}", handlers.DeleteSchedule())
		})

		// Run group
		v1.Group(func(run chi.Router) {
			run.Use(middleware.RequirePermission(auth.ActionRun))

			run.Post("/connections/test", handlers.TestConnectionAdhoc())
			run.Post("/connections/sample", handlers.SampleConnectionAdhoc())
			run.Post("/connections/paths", handlers.ListConnectionPaths())
			run.Post("/connections/{id}/test", handlers.TestConnection())
			run.Post("/connections/{id}/test-pull", handlers.TestPull())

			run.Post("/suppliers/{id}/upload", handlers.UploadSupplierFile())
			run.Post("/ingestion/run", handlers.RunIngestion())
			run.Post("/schedules/{id}/trigger", handlers.TriggerSchedule())
		})
	})
}
