package greeting

const (
	// Message is the fixed greeting text.
	Message = "Hello from Cloud Run! Psitron"
	// Version is the API version reported in every greeting. It is independent of the build version.
	Version = "1.0.0"
)

// Data models the greeting payload.
type Data struct {
	Message     string `json:"message" doc:"Greeting message" example:"Hello from Cloud Run! Psitron"`
	Version     string `json:"version" doc:"API version" example:"1.0.0"`
	Environment string `json:"environment" doc:"Deployment environment from ENVIRONMENT" example:"production"`
}

// GetOutput is the response wrapper for GET /.
type GetOutput struct {
	Body Data
}
