package greeting

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	applog "github.com/janisto/cloudrun-psitron/internal/platform/logging"
)

// Register wires the greeting route into the API. environment is reported verbatim.
func Register(api huma.API, environment string) {
	huma.Register(api, huma.Operation{
		OperationID: "get-greeting",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Get the service greeting",
		Tags:        []string{"Greeting"},
	}, func(ctx context.Context, _ *struct{}) (*GetOutput, error) {
		applog.LogInfo(ctx, "greeting served", zap.String("environment", environment))
		return &GetOutput{Body: Data{
			Message:     Message,
			Version:     Version,
			Environment: environment,
		}}, nil
	})
}
