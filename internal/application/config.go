package application

import (
	"gopkg.in/yaml.v3"
)

// Unit type names accepted in workflow definitions.
const (
	UnitTypeMashDistances          = "mash_distances"
	UnitTypeDistanceGraph          = "distance_graph"
	UnitTypeThresholdFilter        = "threshold_filter"
	UnitTypeClusterExtract         = "cluster_extract"
	UnitTypeMockClusters           = "mock_clusters"
	UnitTypeClustersYAML           = "clusters_yaml"
	UnitTypeReferenceSeekerResults = "referenceseeker_results"
	UnitTypeCandidateAggregate     = "candidate_aggregate"
	UnitTypeCandidateRank          = "candidate_rank"
	UnitTypeScoresCSV              = "scores_csv"
	UnitTypeCustom                 = "custom"
)

// WorkflowConfig is the top-level document of a workflow definition. It
// declares the units to instantiate and the topology that connects them.
type WorkflowConfig struct {
	// Version is the schema version of the document, in semantic versioning.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata describes the workflow for operators and logs.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Units are the workflow's building blocks.
	Units []UnitConfig `yaml:"units" validate:"required,min=1,dive"`
	// Graph connects units into pipelines, layers and edges.
	Graph GraphTopology `yaml:"graph" validate:"required"`
}

// Metadata provides descriptive information about a workflow.
type Metadata struct {
	// Name identifies the workflow in logs, traces and metrics.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains what the workflow produces.
	Description string `yaml:"description" validate:"max=1000"`
	// Tags are free-form labels.
	Tags []string `yaml:"tags" validate:"max=20,dive,min=1,max=50"`
	// Labels are arbitrary key-value pairs.
	Labels map[string]string `yaml:"labels" validate:"max=50"`
}

// UnitConfig declares one unit of a workflow.
type UnitConfig struct {
	// ID is unique across units, pipelines and layers and must be
	// alphanumeric so it can be referenced from the topology.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Type selects the unit implementation.
	Type string `yaml:"type" validate:"required,oneof=mash_distances distance_graph threshold_filter cluster_extract mock_clusters clusters_yaml referenceseeker_results candidate_aggregate candidate_rank scores_csv custom"`
	// CustomType names the registered factory for units of type custom.
	CustomType string `yaml:"custom_type,omitempty" validate:"required_if=Type custom,max=100"`
	// Parameters holds type-specific settings, validated per unit type.
	Parameters yaml.Node `yaml:"parameters"`
}

// GraphTopology specifies how units are grouped and ordered.
type GraphTopology struct {
	// Pipelines run their units sequentially.
	Pipelines []PipelineConfig `yaml:"pipelines" validate:"dive"`
	// Layers run their units concurrently against the same input state.
	Layers []LayerConfig `yaml:"layers" validate:"dive"`
	// Edges order units, pipelines and layers relative to each other.
	Edges []EdgeConfig `yaml:"edges" validate:"dive"`
}

// PipelineConfig declares a sequential chain of units.
type PipelineConfig struct {
	// ID is unique across the workflow.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Units lists unit IDs in execution order.
	Units []string `yaml:"units" validate:"required,min=1,dive,alphanum"`
}

// LayerConfig declares a group of independent units run in parallel.
type LayerConfig struct {
	// ID is unique across the workflow.
	ID string `yaml:"id" validate:"required,alphanum,min=1,max=100"`
	// Units lists the unit IDs to run concurrently. Results merge in
	// this order.
	Units []string `yaml:"units" validate:"required,min=2,dive,alphanum"`
	// MaxConcurrency bounds how many units run at once. Zero means the
	// layer default.
	MaxConcurrency int `yaml:"max_concurrency" validate:"min=0,max=256"`
}

// EdgeConfig makes To run after From.
type EdgeConfig struct {
	// From identifies the unit, pipeline or layer that runs first.
	From string `yaml:"from" validate:"required,alphanum"`
	// To identifies the node that depends on From.
	To string `yaml:"to" validate:"required,alphanum"`
}
