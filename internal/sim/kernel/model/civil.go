package model

type CivilStatus int

const (
	Ecstatic CivilStatus = iota
	Happy
	Content
	Neutral
	Unhappy
	Angry
	Rioting
	Revolting
)

var civilNames = [...]string{"ecstatic", "happy", "content", "neutral", "unhappy", "angry", "rioting", "revolting"}

func (c CivilStatus) String() string {
	if c < Ecstatic || c > Revolting {
		return "unknown"
	}
	return civilNames[c]
}

// Shift moves the status by delta levels; positive delta is worse.
func (c CivilStatus) Shift(delta int) CivilStatus {
	n := int(c) + delta
	if n < int(Ecstatic) {
		n = int(Ecstatic)
	}
	if n > int(Revolting) {
		n = int(Revolting)
	}
	return CivilStatus(n)
}

// ProductionMultiplier scales income by civil mood.
func (c CivilStatus) ProductionMultiplier() float64 {
	switch c {
	case Ecstatic:
		return 1.2
	case Happy:
		return 1.1
	case Content, Neutral:
		return 1.0
	case Unhappy:
		return 0.9
	case Angry:
		return 0.8
	case Rioting:
		return 0.6
	default:
		return 0.4
	}
}
