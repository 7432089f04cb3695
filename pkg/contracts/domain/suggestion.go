package domain

// Property is one NiFi processor property, kept in display order.
type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Processor is a NiFi processor recommended for a remediation.
type Processor struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Properties  []Property `json:"properties"`
}

// Suggestion bundles the remediation material for one issue category.
type Suggestion struct {
	Category   Category    `json:"category"`
	Problem    string      `json:"problem"`
	Columns    []string    `json:"columns,omitempty"`
	Processors []Processor `json:"processors"`
	Flow       []string    `json:"flow"`
	Remedies   []string    `json:"remedies"`
	Script     string      `json:"script"`
}
