// Package domain contains pure, dependency-free domain models, types and
// algorithms for sample clustering and reference selection.
package domain

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"time"
)

// Key represents a type-safe generic key for accessing values in State.
// The type parameter T ensures compile-time type safety when getting and
// setting values, eliminating the need for runtime type assertions.
type Key[T any] struct{ name string }

// NewKey creates a new Key with the specified name and type.
// This function is provided for creating keys outside of the domain package.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

// Name returns the string form of the key as stored in State.
func (k Key[T]) Name() string { return k.name }

// Predefined state keys used by the workflow units.
var (
	// Inputs supplied by the caller before a workflow runs.

	// KeyDistanceTablePath is the Mash dist table to cluster.
	KeyDistanceTablePath = Key[string]{"input.distance_table"}

	// KeyResultFiles lists the per-sample ReferenceSeeker tables.
	KeyResultFiles = Key[[]string]{"input.result_files"}

	// KeyAssemblies lists assembly paths for mock clustering.
	KeyAssemblies = Key[[]string]{"input.assemblies"}

	// KeyDistanceThreshold overrides the threshold configured on the
	// filter unit when present.
	KeyDistanceThreshold = Key[float64]{"input.distance_threshold"}

	// KeyClustersOutput is where the cluster mapping is written.
	KeyClustersOutput = Key[string]{"output.clusters"}

	// KeyScoresOutput is where the ranked candidate table is written.
	KeyScoresOutput = Key[string]{"output.scores"}

	// KeyBestReferenceOutput is where the winning accession is written.
	KeyBestReferenceOutput = Key[string]{"output.best_reference"}

	// Intermediate and final results.

	// KeyDistanceRecords stores parsed Mash distance rows.
	KeyDistanceRecords = Key[[]DistanceRecord]{"distance_records"}

	// KeySimilarityGraph stores the unfiltered sample graph.
	KeySimilarityGraph = Key[*SimilarityGraph]{"similarity_graph"}

	// KeyFilteredGraph stores the graph after threshold filtering.
	KeyFilteredGraph = Key[*SimilarityGraph]{"filtered_graph"}

	// KeyClusterAssignment stores the sample to cluster mapping.
	KeyClusterAssignment = Key[*ClusterAssignment]{"cluster_assignment"}

	// KeyCandidateRecords stores concatenated per-sample candidate rows.
	KeyCandidateRecords = Key[[]CandidateRecord]{"candidate_records"}

	// KeyCandidateSummaries stores per-candidate statistics.
	KeyCandidateSummaries = Key[[]CandidateSummary]{"candidate_summaries"}

	// KeyRanking stores the ranked candidate table.
	KeyRanking = Key[*Ranking]{"ranking"}

	// KeyBestCandidate stores the winning candidate accession.
	KeyBestCandidate = Key[string]{"best_candidate"}

	// Execution context keys for tracking metadata across graph traversal.

	// KeyWorkflowID stores the name of the workflow being executed.
	KeyWorkflowID = Key[string]{"execution.workflow_id"}

	// KeyExecutionID stores a unique identifier for this specific execution
	// instance, useful for tracing and correlation.
	KeyExecutionID = Key[string]{"execution.execution_id"}
)

// deepCopyValue creates a deep copy of a value to ensure true immutability.
// It handles slices, maps, and other reference types that would otherwise
// allow external modification of State data.
func deepCopyValue(value any) any {
	if value == nil {
		return nil
	}

	// time.Time is immutable and can be returned directly.
	if val, ok := value.(time.Time); ok {
		return val
	}

	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			return value
		}
		newSlice := reflect.MakeSlice(v.Type(), v.Len(), v.Cap())
		for i := 0; i < v.Len(); i++ {
			newSlice.Index(i).Set(reflect.ValueOf(deepCopyValue(v.Index(i).Interface())))
		}
		return newSlice.Interface()

	case reflect.Map:
		if v.IsNil() {
			return value
		}
		newMap := reflect.MakeMapWithSize(v.Type(), v.Len())
		for _, key := range v.MapKeys() {
			copiedKey := deepCopyValue(key.Interface())
			copiedValue := deepCopyValue(v.MapIndex(key).Interface())
			newMap.SetMapIndex(reflect.ValueOf(copiedKey), reflect.ValueOf(copiedValue))
		}
		return newMap.Interface()

	case reflect.Ptr:
		if v.IsNil() {
			return v.Interface()
		}
		newPtr := reflect.New(v.Elem().Type())
		newPtr.Elem().Set(reflect.ValueOf(deepCopyValue(v.Elem().Interface())))
		return newPtr.Interface()

	case reflect.Struct:
		// Unexported fields are left at their zero value; every type stored
		// in State keeps its data in exported fields.
		newStruct := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			if newStruct.Field(i).CanSet() {
				newStruct.Field(i).Set(reflect.ValueOf(deepCopyValue(v.Field(i).Interface())))
			}
		}
		return newStruct.Interface()

	default:
		// Primitive types are returned as-is since they are copied by value.
		return value
	}
}

// State represents an immutable collection of workflow data that flows
// through the pipeline. It uses copy-on-write semantics to ensure
// thread-safety and prevent unintended mutations. State is the primary
// data structure for passing information between Units.
type State struct {
	// data holds the key-value pairs that make up the state.
	// It is unexported to maintain immutability guarantees.
	data map[string]any
}

// NewState creates a new empty State.
// The returned State is ready to use and can be safely shared across
// goroutines.
func NewState() State {
	return State{
		data: make(map[string]any),
	}
}

// Get retrieves a value from the State with compile-time type safety.
// It returns the value and a boolean indicating whether the key exists
// and contains a value of the correct type. The returned value is a deep
// copy to maintain immutability.
//
// Example:
//
//	graph, ok := Get(state, KeySimilarityGraph)
//	if !ok {
//	    // handle missing value
//	}
func Get[T any](s State, key Key[T]) (T, bool) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, false
	}

	copied := deepCopyValue(value)
	val, ok := copied.(T)
	return val, ok
}

// MustGet is like Get but reports a missing or mistyped key as a
// *StateError wrapping ErrKeyNotFound or ErrTypeMismatch.
func MustGet[T any](s State, key Key[T]) (T, error) {
	var zero T
	value, exists := s.data[key.name]
	if !exists {
		return zero, NewStateError(key.name, "Get", ErrKeyNotFound)
	}
	val, ok := deepCopyValue(value).(T)
	if !ok {
		return zero, NewStateError(key.name, "Get", ErrTypeMismatch)
	}
	return val, nil
}

// GetRaw is a method version of Get that uses a string key.
// For type safety, use the generic Get function instead.
func (s State) GetRaw(keyName string) (any, bool) {
	value, exists := s.data[keyName]
	if !exists {
		return nil, false
	}
	return deepCopyValue(value), true
}

// With creates a new State with the specified key-value pair added or
// updated. It implements copy-on-write semantics, returning a new State
// instance while leaving the original unchanged.
//
// Example:
//
//	newState := With(state, KeyDistanceThreshold, 0.01)
func With[T any](s State, key Key[T], value T) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[key.name] = deepCopyValue(value)
	return State{data: newData}
}

// WithRaw is a method version of With that uses a string key and allows
// chaining. For type safety, use the generic With function instead.
func (s State) WithRaw(keyName string, value any) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any)
	}
	newData[keyName] = deepCopyValue(value)
	return State{data: newData}
}

// WithMultiple creates a new State with multiple key-value pairs added
// or updated. It is more efficient than chaining multiple With calls as
// it performs a single clone operation.
func (s State) WithMultiple(updates map[string]any) State {
	newData := maps.Clone(s.data)
	if newData == nil {
		newData = make(map[string]any, len(updates))
	}
	for k, v := range updates {
		newData[k] = deepCopyValue(v)
	}
	return State{data: newData}
}

// Has reports whether the key is present, without copying its value.
func (s State) Has(keyName string) bool {
	_, ok := s.data[keyName]
	return ok
}

// Keys returns all keys present in the State in sorted order.
// The returned slice is safe to modify without affecting the original State.
func (s State) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// String returns a string representation of the State for debugging purposes.
func (s State) String() string {
	return fmt.Sprintf("State%v", s.Keys())
}

// ExecutionContext contains metadata about the current workflow execution
// that flows through the State during graph traversal.
type ExecutionContext struct {
	// WorkflowID is the name of the workflow being executed.
	WorkflowID string

	// ExecutionID is a unique identifier for this specific execution instance.
	ExecutionID string
}

// WithExecutionContext creates a new State with execution context metadata
// included. It should be called at the beginning of workflow execution.
func (s State) WithExecutionContext(ctx ExecutionContext) State {
	return s.WithMultiple(map[string]any{
		KeyWorkflowID.name:  ctx.WorkflowID,
		KeyExecutionID.name: ctx.ExecutionID,
	})
}

// GetExecutionContext extracts execution context metadata from the State.
// It returns false unless both fields are present.
func (s State) GetExecutionContext() (ExecutionContext, bool) {
	workflowID, ok1 := Get(s, KeyWorkflowID)
	executionID, ok2 := Get(s, KeyExecutionID)
	if !ok1 || !ok2 {
		return ExecutionContext{}, false
	}
	return ExecutionContext{WorkflowID: workflowID, ExecutionID: executionID}, true
}
