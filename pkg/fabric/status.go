package fabric

// Health thresholds on the rolled-up coherence.
const (
	healthStableFloor   = 0.75
	healthDegradedFloor = 0.4
)

// recomputeStatus rolls node activation, connection coherence, and pathway
// condition up into Status. Empty collections score 1.0 so a fresh fabric
// starts stable.
func (f *Fabric) recomputeStatus() {
	activation := 1.0
	if len(f.Nodes) > 0 {
		var sum float64
		for _, n := range f.Nodes {
			sum += n.ActivationLevel
		}
		activation = sum / float64(len(f.Nodes))
	}

	coherence := 1.0
	if len(f.Connections) > 0 {
		var sum float64
		for _, c := range f.Connections {
			if c.LinkCoherence != nil {
				sum += *c.LinkCoherence
			} else {
				sum += c.Strength
			}
		}
		coherence = sum / float64(len(f.Connections))
	}

	stability := 1.0
	if len(f.Pathways) > 0 {
		active := 0
		for _, p := range f.Pathways {
			if p.Status == StatusActive {
				active++
			}
		}
		stability = float64(active) / float64(len(f.Pathways))
	}

	health := HealthCritical
	switch {
	case coherence >= healthStableFloor:
		health = HealthStable
	case coherence >= healthDegradedFloor:
		health = HealthDegraded
	}

	f.Status.ActivationLevel = activation
	f.Status.Coherence = coherence
	f.Status.Stability = stability
	f.Status.Health = health
}
