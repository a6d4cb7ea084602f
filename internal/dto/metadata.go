package dto

// PageMetadata is the authored form of a Page.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type PageMetadata struct {
	ID        string         `json:"id" mapstructure:"id"`
	Title     string         `json:"title,omitempty" mapstructure:"title"`
	FinalText string         `json:"final_text,omitempty" mapstructure:"final_text"`
	Steps     []StepMetadata `json:"steps" mapstructure:"steps"`
}

// StepMetadata is the authored form of a Step.
type StepMetadata struct {
	ID       string `json:"id" mapstructure:"id"`
	Text     string `json:"text,omitempty" mapstructure:"text"`
	Strategy string `json:"strategy,omitempty" mapstructure:"strategy"`
	Mode     string `json:"mode,omitempty" mapstructure:"mode"`
	Program  string `json:"program,omitempty" mapstructure:"program"`

	// Shape is a descriptor; Statement is shorthand for a module holding
	// exactly one statement matching it.
	Shape     map[string]any `json:"shape,omitempty" mapstructure:"shape"`
	Statement map[string]any `json:"statement,omitempty" mapstructure:"statement"`

	Heuristics []HeuristicMetadata   `json:"heuristics,omitempty" mapstructure:"heuristics"`
	Predicate  *PredicateMetadata    `json:"predicate,omitempty" mapstructure:"predicate"`
	Requires   []RequirementMetadata `json:"requires,omitempty" mapstructure:"requires"`

	// Hints is a list of strings or a single string holding one hint per line.
	Hints any `json:"hints,omitempty" mapstructure:"hints"`

	MismatchMessage string `json:"mismatch_message,omitempty" mapstructure:"mismatch_message"`
	AllowFault      string `json:"allow_fault,omitempty" mapstructure:"allow_fault"`
}

type HeuristicMetadata struct {
	Kind      string         `json:"kind" mapstructure:"kind"`
	Pattern   string         `json:"pattern,omitempty" mapstructure:"pattern"`
	Target    string         `json:"target,omitempty" mapstructure:"target"`
	Name      string         `json:"name,omitempty" mapstructure:"name"`
	Shape     map[string]any `json:"shape,omitempty" mapstructure:"shape"`
	Statement map[string]any `json:"statement,omitempty" mapstructure:"statement"`
	Message   string         `json:"message,omitempty" mapstructure:"message"`
}

type PredicateMetadata struct {
	Name   string `json:"name,omitempty" mapstructure:"name"`
	Script string `json:"script,omitempty" mapstructure:"script"`
}

type RequirementMetadata struct {
	Condition string `json:"condition" mapstructure:"condition"`
	Message   string `json:"message" mapstructure:"message"`
}
