package command

import "github.com/pixil98/go-blockdemo/internal/telemetry"

const serviceName = "blockdemo"

// TelemetryConfig turns on span export when Endpoint is set.
type TelemetryConfig struct {
	Endpoint string `json:"otel_endpoint" env:"ENDPOINT"`
}

func (c *TelemetryConfig) buildTracing() *telemetry.Tracing {
	return telemetry.NewTracing(serviceName, c.Endpoint)
}
