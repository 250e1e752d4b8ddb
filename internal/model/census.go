package model

import "fmt"

// Dataset is the year/dataset/survey identity that scopes every route and cache directory
type Dataset struct {
	Year        int    `yaml:"year" mapstructure:"year"`
	DatasetType string `yaml:"dataset_type" mapstructure:"dataset_type"` // e.g. "acs"
	SurveyType  string `yaml:"survey_type" mapstructure:"survey_type"`   // e.g. "acs1"
}

// String renders the dataset as it appears in API routes
func (d Dataset) String() string {
	return fmt.Sprintf("%d/%s/%s", d.Year, d.DatasetType, d.SurveyType)
}

// PredicateType is the value type the API declares for a variable
type PredicateType string

const (
	PredicateInt    PredicateType = "int"
	PredicateFloat  PredicateType = "float"
	PredicateString PredicateType = "string"
)

// ParsePredicateType maps the API's predicateType, treating anything unknown as string
func ParsePredicateType(s string) PredicateType {
	switch PredicateType(s) {
	case PredicateInt:
		return PredicateInt
	case PredicateFloat:
		return PredicateFloat
	default:
		return PredicateString
	}
}

// IsNumeric reports whether values of this type are cast to floating point in stats results
func (p PredicateType) IsNumeric() bool {
	return p == PredicateInt || p == PredicateFloat
}

// Group is a Census table group (topic), e.g. B17015
type Group struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	CleanedName string `json:"cleaned_name"`
}

// GroupVariable is one queryable field within a group, e.g. B17015_001E
type GroupVariable struct {
	Code          string        `json:"code"`
	GroupCode     string        `json:"group_code"`
	GroupConcept  string        `json:"group_concept"`
	Name          string        `json:"name"`
	CleanedName   string        `json:"cleaned_name"`
	Limit         int           `json:"limit"`
	PredicateOnly bool          `json:"predicate_only"`
	PredicateType PredicateType `json:"predicate_type"`
}

// LookupKey is the VariableSet key: cleaned name suffixed with the owning group
func (v GroupVariable) LookupKey() string {
	return v.CleanedName + "_" + v.GroupCode
}
