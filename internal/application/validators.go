package application

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type paramKind int

const (
	kindString paramKind = iota
	kindNumber
	kindInt
	kindBool
)

func (k paramKind) String() string {
	switch k {
	case kindString:
		return "a string"
	case kindNumber:
		return "a number"
	case kindInt:
		return "an integer"
	case kindBool:
		return "a boolean"
	default:
		return "unknown"
	}
}

// paramRule describes one accepted parameter. tag holds validator rules
// applied to the decoded value.
type paramRule struct {
	kind paramKind
	tag  string
}

// unitParameterRules lists the parameters each built-in unit type accepts.
// Parameters not listed are rejected so typos surface at load time.
var unitParameterRules = map[string]map[string]paramRule{
	UnitTypeMashDistances: {
		"path": {kind: kindString},
	},
	UnitTypeDistanceGraph: {
		"min_samples": {kind: kindInt, tag: "min=0"},
	},
	UnitTypeThresholdFilter: {
		"threshold": {kind: kindNumber, tag: "min=0"},
	},
	UnitTypeClusterExtract: {
		"require_filtered": {kind: kindBool},
	},
	UnitTypeMockClusters: {},
	UnitTypeClustersYAML: {
		"path": {kind: kindString},
	},
	UnitTypeReferenceSeekerResults: {
		"max_concurrency": {kind: kindInt, tag: "min=1,max=256"},
		"prefix":          {kind: kindString, tag: "min=1"},
		"input_dir":       {kind: kindString},
	},
	UnitTypeCandidateAggregate: {
		"min_ani": {kind: kindNumber, tag: "min=0,max=100"},
	},
	UnitTypeCandidateRank: {
		"max_candidates": {kind: kindInt, tag: "min=0"},
	},
	UnitTypeScoresCSV: {
		"path":                {kind: kindString},
		"best_reference_path": {kind: kindString},
	},
}

// paramValidator checks decoded parameter values against rule tags.
var paramValidator = validator.New()

// ValidateUnitParameters checks the parameters of a built-in unit type:
// every key must be known, of the right kind and within range. Custom
// units are validated by their own factories.
func ValidateUnitParameters(unitType string, params yaml.Node) error {
	if unitType == UnitTypeCustom {
		return nil
	}

	rules, ok := unitParameterRules[unitType]
	if !ok {
		return fmt.Errorf("unknown unit type: %s", unitType)
	}

	paramMap, err := decodeParameters(params)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(paramMap))
	for k := range paramMap {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, key := range keys {
		rule, ok := rules[key]
		if !ok {
			return fmt.Errorf("%s does not accept parameter %q (accepted: %s)",
				unitType, key, strings.Join(acceptedParameters(rules), ", "))
		}
		if err := checkParameter(key, paramMap[key], rule); err != nil {
			return fmt.Errorf("%s: %w", unitType, err)
		}
	}
	return nil
}

func checkParameter(key string, value any, rule paramRule) error {
	var normalized any
	switch rule.kind {
	case kindString:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%s must be %s", key, rule.kind)
		}
		normalized = s
	case kindNumber:
		switch v := value.(type) {
		case int:
			normalized = float64(v)
		case float64:
			normalized = v
		default:
			return fmt.Errorf("%s must be %s", key, rule.kind)
		}
	case kindInt:
		v, ok := value.(int)
		if !ok {
			return fmt.Errorf("%s must be %s", key, rule.kind)
		}
		normalized = v
	case kindBool:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%s must be %s", key, rule.kind)
		}
		normalized = b
	}

	if rule.tag == "" {
		return nil
	}
	if err := paramValidator.Var(normalized, rule.tag); err != nil {
		return fmt.Errorf("%s=%v violates %q", key, value, rule.tag)
	}
	return nil
}

func acceptedParameters(rules map[string]paramRule) []string {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	slices.Sort(names)
	if len(names) == 0 {
		return []string{"none"}
	}
	return names
}

// decodeParameters converts a parameters node into a map. An absent or
// null node yields an empty map.
func decodeParameters(params yaml.Node) (map[string]any, error) {
	paramMap := make(map[string]any)
	if params.Kind == 0 || params.ShortTag() == "!!null" {
		return paramMap, nil
	}
	if err := params.Decode(&paramMap); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}
	return paramMap, nil
}

// RegisterWorkflowValidators registers the custom struct-tag validators
// used by WorkflowConfig.
func RegisterWorkflowValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}
	return nil
}

// validateSemver accepts X.Y.Z where X, Y and Z are non-negative integers.
func validateSemver(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	var major, minor, patch int
	n, err := fmt.Sscanf(value, "%d.%d.%d", &major, &minor, &patch)
	return err == nil && n == 3 && major >= 0 && minor >= 0 && patch >= 0
}
