package dto

type SessionResponse struct {
	Token         string `json:"token"`
	ParticipantID string `json:"participant_id"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
