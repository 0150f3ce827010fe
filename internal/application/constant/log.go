package constant

// Ключи атрибутов для slog
const (
	Error         = "error"
	ParticipantID = "participant_id"
	CounterpartID = "counterpart_id"
	PairingID     = "pairing_id"
	State         = "state"
	Role          = "role"
	Phase         = "phase"
	Type          = "type"
	Generation    = "generation"
)
