package healthcheck

import (
	"context"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/maxpoletaev/memdisco/discovery"
)

type NodeSource interface {
	Nodes(ctx context.Context) []discovery.Node
}

// StatusSetter is implemented by grpc's health.Server.
type StatusSetter interface {
	SetServingStatus(service string, status healthpb.HealthCheckResponse_ServingStatus)
}
