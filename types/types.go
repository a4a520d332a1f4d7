package types

type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseCompleted  Phase = "completed"
	PhaseCancelled  Phase = "cancelled"
)

func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseCancelled
}

type FieldInfo struct {
	Name             string   `json:"name"`
	Kind             string   `json:"kind"`
	ValueType        string   `json:"value_type"`
	Required         bool     `json:"required"`
	GloballyRequired bool     `json:"globally_required"`
	Next             []string `json:"next,omitempty"`
}
