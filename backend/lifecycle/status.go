package lifecycle

import "fmt"

// Status is the lifecycle status of a lease contract
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusExpiring Status = "expiring"
	StatusClosed   Status = "closed"
)

// ExpiringReason tells why a contract is expiring
type ExpiringReason string

const (
	ReasonLeaseEnding             ExpiringReason = "lease_ending"
	ReasonReadjustmentApproaching ExpiringReason = "readjustment_approaching"
)

// ParseStatus converts a stored status string into a Status.
// An empty string is accepted and means "never classified".
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusPending, StatusActive, StatusExpiring, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown contract status %q", s)
}

// Label returns the pt-BR display label
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "Pendente"
	case StatusActive:
		return "Ativo"
	case StatusExpiring:
		return "Vencendo"
	case StatusClosed:
		return "Encerrado"
	}
	return string(s)
}

// Badge returns the badge tone the dashboard renders for the status
func (s Status) Badge() string {
	switch s {
	case StatusPending:
		return "info"
	case StatusActive:
		return "success"
	case StatusExpiring:
		return "warning"
	case StatusClosed:
		return "secondary"
	}
	return "light"
}

// Label returns the pt-BR display label
func (r ExpiringReason) Label() string {
	switch r {
	case ReasonLeaseEnding:
		return "Término próximo"
	case ReasonReadjustmentApproaching:
		return "Reajuste próximo"
	}
	return string(r)
}
