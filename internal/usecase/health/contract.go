package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CollaboratorChecker checks an external collaborator's availability.
type CollaboratorChecker interface {
	HealthCheck(ctx context.Context) error
}

// DocumentCounter reports how many documents the search index holds.
type DocumentCounter interface {
	Count(ctx context.Context) (int, error)
}
