package screen

// Outcome is the tri-state result of a per-entity predicate.
//
// Indeterminate means the upstream data needed for the judgment was
// unavailable. It must never eliminate an entity: unavailability cannot be
// allowed to look like disqualification. The single aggregation point in
// runEntityStage enforces this; predicates only report what they saw.
type Outcome int

const (
	Pass Outcome = iota
	Fail
	Indeterminate
)

func (o Outcome) String() string {
	switch o {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Retained reports whether the entity survives this outcome.
func (o Outcome) Retained() bool {
	return o != Fail
}
