package constants

// Route constants shared by the router and the OpenAPI mount
const (
	HealthRoute  = "/health"
	HealthzRoute = "/healthz"
	BillingRoute = "/billing"
	APIV1Route   = "/v1"
	MetricsRoute = "/metrics"
	MonitorRoute = "/monitor"

	// Swagger UI is served at DocsBasePath + DocsPath
	DocsBasePath = "/docs/api/"
	DocsPath     = "v1"
	OpenAPIFile  = "public/docs/v1/openapi.yml"
)
