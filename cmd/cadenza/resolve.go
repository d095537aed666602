package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cadenza-app/cadenza/internal/config"
	"github.com/cadenza-app/cadenza/internal/domain"
	"github.com/cadenza-app/cadenza/internal/fetch"
	logpkg "github.com/cadenza-app/cadenza/internal/logger"
	resolveuc "github.com/cadenza-app/cadenza/internal/usecase/resolve"
)

// newResolveCommand runs the resolution chain once and prints the result as
// JSON. It skips the Redis cache so operator debugging always hits the
// catalogs and leaves no state behind.
func newResolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <title> <composer>",
		Short: "Resolve a score once and print the result as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), args[0], args[1])
		},
	}
}

func runResolve(ctx context.Context, title, composer string) error {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	fetcher := fetch.New(nil, fetchConfigs(cfg.Sources), logger)
	resolver := resolveuc.New(buildChain(cfg, fetcher, passCache{}, logger), cfg.ChainTimeout(), logger)

	rec, err := resolver.Resolve(ctx, domain.MatchQuery{Title: title, Composer: composer})
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	out := struct {
		Found bool                  `json:"found"`
		Score *domain.ResolvedScore `json:"score,omitempty"`
	}{Found: rec != nil, Score: rec}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// passCache always misses and drops writes.
type passCache struct{}

func (passCache) Find(_ context.Context, _ domain.MatchQuery, _ domain.Source) (*domain.ResolvedScore, error) {
	return nil, domain.ErrNotFound
}

func (passCache) Save(_ context.Context, _ domain.MatchQuery, _ *domain.ResolvedScore) error {
	return nil
}
