package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/refclust/internal/domain"
	"github.com/ahrav/refclust/internal/logger"
	"github.com/ahrav/refclust/internal/ports"
)

// WorkflowLoader parses, validates and compiles workflow definitions into
// executable graphs. Compiled graphs are cached by the SHA-256 hash of
// their normalized configuration.
type WorkflowLoader struct {
	validator    *validator.Validate
	unitRegistry ports.UnitRegistry
	log          *logger.Logger
	metrics      ports.MetricsCollector
	// cache stores compiled graphs by config hash.
	// Cached graphs MUST NOT be mutated with AddNode or AddEdge.
	cache   map[string]*Graph
	cacheMu sync.RWMutex
	// sf collapses concurrent compilations of the same config.
	sf singleflight.Group
}

// LoaderOption configures a WorkflowLoader.
type LoaderOption func(*WorkflowLoader)

// WithLoaderLogger sets the logger handed to every unit adapter.
func WithLoaderLogger(l *logger.Logger) LoaderOption {
	return func(wl *WorkflowLoader) {
		if l != nil {
			wl.log = l
		}
	}
}

// WithLoaderMetrics records unit latencies of compiled graphs in mc.
func WithLoaderMetrics(mc ports.MetricsCollector) LoaderOption {
	return func(wl *WorkflowLoader) { wl.metrics = mc }
}

// NewWorkflowLoader creates a loader that builds units through unitRegistry.
// It returns an error if validator registration fails.
func NewWorkflowLoader(unitRegistry ports.UnitRegistry, opts ...LoaderOption) (*WorkflowLoader, error) {
	v := validator.New()
	if err := RegisterWorkflowValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	wl := &WorkflowLoader{
		validator:    v,
		unitRegistry: unitRegistry,
		log:          logger.NewNop(),
		cache:        make(map[string]*Graph),
	}
	for _, opt := range opts {
		opt(wl)
	}
	return wl, nil
}

// load parses data, then validates and compiles it once per distinct
// configuration.
func (wl *WorkflowLoader) load(ctx context.Context, data []byte) (*Graph, error) {
	config, err := wl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	hash, err := wl.calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := wl.sf.Do(hash, func() (any, error) {
		if graph, ok := wl.getCachedGraph(hash); ok {
			return graph, nil
		}

		if err := wl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		graph, err := wl.buildGraph(ctx, config)
		if err != nil {
			return nil, fmt.Errorf("failed to build workflow: %w", err)
		}

		wl.cacheGraph(hash, graph)
		wl.log.Debug("workflow compiled", "workflow", config.Metadata.Name, "hash", hash[:12])

		return graph, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Graph), nil
}

// LoadFromFile loads a workflow definition from path.
// The returned graph is shared with the cache and must not be mutated.
func (wl *WorkflowLoader) LoadFromFile(ctx context.Context, path string) (*Graph, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return wl.load(ctx, data)
}

// LoadFromReader loads a workflow definition from r.
// The returned graph is shared with the cache and must not be mutated.
func (wl *WorkflowLoader) LoadFromReader(ctx context.Context, r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return wl.load(ctx, data)
}

// LoadEmbedded loads one of the workflows shipped with the binary, by
// name without extension. See EmbeddedWorkflows.
func (wl *WorkflowLoader) LoadEmbedded(ctx context.Context, name string) (*Graph, error) {
	data, err := readEmbeddedWorkflow(name)
	if err != nil {
		return nil, err
	}
	return wl.load(ctx, data)
}

// parseYAML decodes data strictly: unknown fields are errors.
func (wl *WorkflowLoader) parseYAML(data []byte) (*WorkflowConfig, error) {
	var config WorkflowConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("%w: YAML decode failed: %w", domain.ErrInvalidConfiguration, err)
	}
	return &config, nil
}

func (wl *WorkflowLoader) validateConfig(config *WorkflowConfig) error {
	if err := wl.validator.Struct(config); err != nil {
		return fmt.Errorf("%w: struct validation failed: %w", domain.ErrInvalidConfiguration, err)
	}

	if err := wl.validateSemantics(config); err != nil {
		return fmt.Errorf("%w: semantic validation failed: %w", domain.ErrInvalidConfiguration, err)
	}

	return nil
}

// validateSemantics checks what struct tags cannot: IDs unique across
// units, pipelines and layers; references resolve; each unit appears in at
// most one pipeline or layer; parameters fit their unit type.
func (wl *WorkflowLoader) validateSemantics(config *WorkflowConfig) error {
	allNodeIDs := make(map[string]string) // ID -> node kind.
	unitIDs := make(map[string]struct{})

	for _, unit := range config.Units {
		if nodeType, exists := allNodeIDs[unit.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", unit.ID, nodeType)
		}
		allNodeIDs[unit.ID] = "unit"
		unitIDs[unit.ID] = struct{}{}

		if err := ValidateUnitParameters(unit.Type, unit.Parameters); err != nil {
			return fmt.Errorf("unit %s parameter validation failed: %w", unit.ID, err)
		}
	}

	placed := make(map[string]string) // unit ID -> container ID.
	place := func(container, unitID string) error {
		if _, exists := unitIDs[unitID]; !exists {
			return fmt.Errorf("%s references non-existent unit: %s", container, unitID)
		}
		if owner, taken := placed[unitID]; taken {
			return fmt.Errorf("unit %s placed in both %s and %s", unitID, owner, container)
		}
		placed[unitID] = container
		return nil
	}

	for _, pipeline := range config.Graph.Pipelines {
		if nodeType, exists := allNodeIDs[pipeline.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", pipeline.ID, nodeType)
		}
		allNodeIDs[pipeline.ID] = "pipeline"

		for _, unitID := range pipeline.Units {
			if err := place("pipeline "+pipeline.ID, unitID); err != nil {
				return err
			}
		}
	}

	for _, layer := range config.Graph.Layers {
		if nodeType, exists := allNodeIDs[layer.ID]; exists {
			return fmt.Errorf("duplicate ID %q: already used by %s", layer.ID, nodeType)
		}
		allNodeIDs[layer.ID] = "layer"

		for _, unitID := range layer.Units {
			if err := place("layer "+layer.ID, unitID); err != nil {
				return err
			}
		}
	}

	for _, edge := range config.Graph.Edges {
		for _, end := range []string{edge.From, edge.To} {
			if _, exists := allNodeIDs[end]; !exists {
				return fmt.Errorf("edge %s->%s references non-existent node: %s", edge.From, edge.To, end)
			}
			if container, inside := placed[end]; inside {
				return fmt.Errorf("edge %s->%s references unit %s inside %s; reference the container", edge.From, edge.To, end, container)
			}
		}
	}

	return nil
}

// buildGraph instantiates units through the registry, groups them into
// pipelines and layers, adds standalone units as nodes and then edges.
func (wl *WorkflowLoader) buildGraph(ctx context.Context, config *WorkflowConfig) (*Graph, error) {
	graph := NewGraph(config.Metadata.Name)

	units := make(map[string]ports.Unit, len(config.Units))
	for _, unitConfig := range config.Units {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		unit, err := wl.createUnit(unitConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create unit %s: %w", unitConfig.ID, err)
		}
		units[unitConfig.ID] = unit
	}

	placedUnits := make(map[string]struct{})

	for _, pipelineConfig := range config.Graph.Pipelines {
		pipeline := NewPipeline(pipelineConfig.ID)
		for _, unitID := range pipelineConfig.Units {
			if err := pipeline.Add(wl.adapt(units[unitID], unitID)); err != nil {
				return nil, fmt.Errorf("failed to add unit to pipeline: %w", err)
			}
			placedUnits[unitID] = struct{}{}
		}
		if err := graph.AddNode(pipeline); err != nil {
			return nil, fmt.Errorf("failed to add pipeline to graph: %w", err)
		}
	}

	for _, layerConfig := range config.Graph.Layers {
		layer := NewLayer(layerConfig.ID)
		if layerConfig.MaxConcurrency > 0 {
			layer.SetConcurrencyLimit(layerConfig.MaxConcurrency)
		}
		for _, unitID := range layerConfig.Units {
			if err := layer.Add(wl.adapt(units[unitID], unitID)); err != nil {
				return nil, fmt.Errorf("failed to add unit to layer: %w", err)
			}
			placedUnits[unitID] = struct{}{}
		}
		if err := graph.AddNode(layer); err != nil {
			return nil, fmt.Errorf("failed to add layer to graph: %w", err)
		}
	}

	// Standalone units, in declaration order.
	for _, unitConfig := range config.Units {
		if _, isPlaced := placedUnits[unitConfig.ID]; isPlaced {
			continue
		}
		if err := graph.AddNode(wl.adapt(units[unitConfig.ID], unitConfig.ID)); err != nil {
			return nil, fmt.Errorf("failed to add unit to graph: %w", err)
		}
	}

	for _, edge := range config.Graph.Edges {
		if err := graph.AddEdge(edge.From, edge.To); err != nil {
			return nil, fmt.Errorf("%w: failed to add edge: %w", domain.ErrInvalidConfiguration, err)
		}
	}

	if graph.HasCycle() {
		return nil, fmt.Errorf("%w: workflow contains cycles", domain.ErrInvalidConfiguration)
	}

	return graph, nil
}

func (wl *WorkflowLoader) adapt(unit ports.Unit, id string) *UnitAdapter {
	return NewUnitAdapter(unit, id,
		WithAdapterLogger(wl.log.With("workflow_unit", id)),
		WithAdapterMetrics(wl.metrics),
	)
}

// createUnit decodes the unit parameters and asks the registry for an
// instance. Custom units resolve their factory through CustomType.
func (wl *WorkflowLoader) createUnit(config UnitConfig) (ports.Unit, error) {
	params, err := decodeParameters(config.Parameters)
	if err != nil {
		return nil, err
	}

	unitType := config.Type
	if unitType == UnitTypeCustom {
		unitType = config.CustomType
	}

	unit, err := wl.unitRegistry.CreateUnit(unitType, config.ID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create unit: %w", err)
	}

	if err := unit.Validate(); err != nil {
		return nil, fmt.Errorf("unit %s is invalid: %w", config.ID, err)
	}

	return unit, nil
}

// calculateConfigHash hashes the re-encoded config so formatting and
// comments do not defeat the cache.
func (wl *WorkflowLoader) calculateConfigHash(config *WorkflowConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

func (wl *WorkflowLoader) getCachedGraph(hash string) (*Graph, bool) {
	wl.cacheMu.RLock()
	defer wl.cacheMu.RUnlock()

	graph, ok := wl.cache[hash]
	return graph, ok
}

func (wl *WorkflowLoader) cacheGraph(hash string, graph *Graph) {
	wl.cacheMu.Lock()
	defer wl.cacheMu.Unlock()

	wl.cache[hash] = graph
}

// ClearCache drops every compiled graph.
func (wl *WorkflowLoader) ClearCache() {
	wl.cacheMu.Lock()
	defer wl.cacheMu.Unlock()

	wl.cache = make(map[string]*Graph)
}
