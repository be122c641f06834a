package analytics

import "github.com/liftdiag/internal/database"

// Status is the stabilization diagnosis of an installation after commissioning
type Status string

const (
	StatusCritical  Status = "critical"
	StatusSaturated Status = "saturated"
	StatusIdeal     Status = "ideal"
	StatusNormal    Status = "normal"
)

// saturationThreshold is the raw incident count from which an installation
// is considered saturated.
const saturationThreshold = 6

// Severity tiers for rendering a diagnosis
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityIdeal    = "ideal"
	SeverityOK       = "ok"
)

var statusMessages = map[Status]string{
	StatusCritical:  "Tendencia ascendente. No estabiliza.",
	StatusSaturated: "Volumen excesivo de avisos.",
	StatusIdeal:     "Estabilización perfecta tras entrega.",
	StatusNormal:    "Estabilización en proceso.",
}

var statusSeverities = map[Status]string{
	StatusCritical:  SeverityCritical,
	StatusSaturated: SeverityWarning,
	StatusIdeal:     SeverityIdeal,
	StatusNormal:    SeverityOK,
}

// Message returns the fixed human-readable text for the status.
func (s Status) Message() string {
	return statusMessages[s]
}

// Severity returns the rendering tier for the status.
func (s Status) Severity() string {
	return statusSeverities[s]
}

// ClassifyStability maps age buckets and the raw incident total to a status.
// Rules are checked in order and the first match wins:
//
//  1. critical:  late incidents outnumber first-month ones, or month 2 spikes
//  2. saturated: total >= 6
//  3. ideal:     only first-month incidents
//  4. normal
func ClassifyStability(b AgeBuckets, total int) Status {
	m1, m2, m3 := b.Month1, b.Month2, b.Month3Plus
	switch {
	case (m3 > m1 && m3 > 0) || m2 > m1+1:
		return StatusCritical
	case total >= saturationThreshold:
		return StatusSaturated
	case m1 > 0 && m2 == 0 && m3 == 0:
		return StatusIdeal
	default:
		return StatusNormal
	}
}

// Diagnosis is the rendered stabilization verdict for one installation
type Diagnosis struct {
	Status   Status     `json:"status"`
	Message  string     `json:"message"`
	Severity string     `json:"severity"`
	Buckets  AgeBuckets `json:"buckets"`
}

// Diagnose buckets the installation's incidents and classifies them.
// It returns nil when no diagnosis is available.
func Diagnose(inst database.Installation) *Diagnosis {
	buckets := ComputeAgeBuckets(inst)
	if buckets == nil {
		return nil
	}
	status := ClassifyStability(*buckets, inst.IncidentCount())
	return &Diagnosis{
		Status:   status,
		Message:  status.Message(),
		Severity: status.Severity(),
		Buckets:  *buckets,
	}
}
