package state

// Phase is an ordinal pipeline stage. The pipeline only ever moves forward
// through this order; Next on the final phase is a no-op.
type Phase string

const (
	PhaseIntake     Phase = "intake"
	PhaseAudit      Phase = "audit"
	PhaseDecompose  Phase = "decompose"
	PhaseBrainstorm Phase = "brainstorm"
	PhaseExecute    Phase = "execute"
	PhaseVerify     Phase = "verify"
	PhaseIntegrate  Phase = "integrate"
)

var phaseOrder = []Phase{
	PhaseIntake,
	PhaseAudit,
	PhaseDecompose,
	PhaseBrainstorm,
	PhaseExecute,
	PhaseVerify,
	PhaseIntegrate,
}

// Index returns the ordinal position of the phase, or -1 if unknown.
func (p Phase) Index() int {
	for i, v := range phaseOrder {
		if v == p {
			return i
		}
	}
	return -1
}

// Next returns the phase that follows p.
func (p Phase) Next() Phase {
	i := p.Index()
	if i < 0 || i+1 >= len(phaseOrder) {
		return p
	}
	return phaseOrder[i+1]
}

// Before reports whether p precedes other in pipeline order.
func (p Phase) Before(other Phase) bool {
	return p.Index() < other.Index()
}

func (p Phase) String() string {
	return string(p)
}
