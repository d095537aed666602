package health

import "context"

// StorePinger checks the score store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// AnalyticsPinger checks the analytics database availability.
type AnalyticsPinger interface {
	Ping(ctx context.Context) error
}

// GeneratorChecker checks the lesson generator availability.
type GeneratorChecker interface {
	HealthCheck(ctx context.Context) error
}
