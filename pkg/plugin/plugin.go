// Package plugin is the embeddable surface for hosts that link the
// preflight pipeline in-process instead of shelling out to the hook
// command. It exposes only hostapi types at the boundary.
package plugin

import (
	"context"

	"github.com/nextlevelbuilder/preflight/internal/config"
	"github.com/nextlevelbuilder/preflight/internal/preflight"
	"github.com/nextlevelbuilder/preflight/internal/search"
	"github.com/nextlevelbuilder/preflight/pkg/hostapi"
)

// SearchFunc is a host-provided semantic memory search. Hosts that
// maintain their own memory tool supply one via WithHostSearch; the
// pipeline then uses it as the semantic fallback stage instead of the
// built-in index.
type SearchFunc func(ctx context.Context, q hostapi.SemanticQuery) (hostapi.SemanticResponse, error)

// Option configures an opened plugin.
type Option func(*options)

type options struct {
	hostSearch SearchFunc
}

// WithHostSearch selects the host's own semantic search tool over the
// built-in memory index.
func WithHostSearch(fn SearchFunc) Option {
	return func(o *options) { o.hostSearch = fn }
}

// Plugin is one wired pipeline instance. A host keeps a single Plugin
// for its lifetime and feeds it every inbound turn.
type Plugin struct {
	orch     *preflight.Orchestrator
	shutdown func()
}

// Open loads the config at configPath ("" for the default location)
// and wires the pipeline. Close must be called when the host shuts
// down.
func Open(ctx context.Context, configPath string, opts ...Option) (*Plugin, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if configPath == "" {
		configPath = config.ResolvePath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var wireOpts []preflight.WireOption
	if o.hostSearch != nil {
		wireOpts = append(wireOpts, preflight.WithHostSearch(search.HostSearchFunc(o.hostSearch)))
	}

	orch, shutdown, err := preflight.NewFromConfig(ctx, cfg, wireOpts...)
	if err != nil {
		return nil, err
	}
	return &Plugin{orch: orch, shutdown: shutdown}, nil
}

// ProcessTurn runs the pipeline on one turn. It never fails: an empty
// HookOutput means nothing should be prepended.
func (p *Plugin) ProcessTurn(ctx context.Context, turn hostapi.Turn) hostapi.HookOutput {
	return p.orch.Run(ctx, turn).Output()
}

// Close releases the index, tracer, and any other long-lived resources.
func (p *Plugin) Close() {
	p.shutdown()
}
