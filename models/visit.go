package models

import "time"

const (
	VisitJoin      = "join"
	VisitLeave     = "leave"
	VisitHeartbeat = "heartbeat"
)

type VisitRequest struct {
	Action    string `json:"action" binding:"required,oneof=join leave heartbeat"`
	SessionID string `json:"sessionId"`
}

type VisitResponse struct {
	Count     int    `json:"count"`
	SessionID string `json:"sessionId"`
}

type VisitStats struct {
	Count          int       `json:"count"`
	ActiveSessions int       `json:"active_sessions"`
	Timestamp      time.Time `json:"timestamp"`
}

type TotalVisitsRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

type TotalVisits struct {
	Count int64 `json:"count"`
}

// TotalVisitsDoc is the single document holding the all-time visit counter.
type TotalVisitsDoc struct {
	ID    int   `bson:"_id"`
	Count int64 `bson:"count"`
}
