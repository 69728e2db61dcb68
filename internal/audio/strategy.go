package audio

import (
	"context"
	"fmt"
)

// Manifest is a fulfilled audiobook manifest plus whatever opaque
// fulfillment data the strategy produced alongside it.
type Manifest struct {
	Manifest    []byte
	Fulfillment []byte
}

// StrategyError is a failure reported by the manifest strategy; Code feeds
// the task's error taxonomy.
type StrategyError struct {
	Code    string
	Message string
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("audio strategy %s: %s", e.Code, e.Message)
}

// ManifestStrategy obtains an audiobook manifest for a target URI. The
// concrete strategy (Overdrive, Feedbooks, plain fetch) is injected.
type ManifestStrategy interface {
	FulfillManifest(ctx context.Context, targetURI string, bearerToken string) (*Manifest, error)
}
