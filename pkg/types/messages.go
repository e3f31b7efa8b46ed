package types

// Client -> Server
// CreateSession:
//   session_id: string (chosen by the host, case-insensitive)
//
// JoinSession:
//   session_id: string
//
// SubmitChoice:
//   session_id: string
//   choice: "rock" | "paper" | "scissors"
//   player_number: 1 | 2
//
// LeaveSession:
//   session_id: string
//
// QueryState:
//   session_id: string

const (
	MsgCreateSession = "CreateSession"
	MsgJoinSession   = "JoinSession"
	MsgSubmitChoice  = "SubmitChoice"
	MsgLeaveSession  = "LeaveSession"
	MsgQueryState    = "QueryState"
)

// Server -> Client
// SessionCreated:       session_id
// SessionAlreadyExists: session_id
// ParticipantNumber:    player_number
// MembershipChanged:    count
// SessionNotFound:      session_id
// SessionFull:          session_id
// MatchStart:           session_id
// RoundResolved:        moves: {"1": choice, "2": choice}, result: "p1"|"p2"|"tie"
// MoveTimedOut:         session_id
// SessionExpired:       session_id
// OpponentLeft:         session_id
// SessionState:         started: bool
// Error:                error: string

const (
	MsgSessionCreated       = "SessionCreated"
	MsgSessionAlreadyExists = "SessionAlreadyExists"
	MsgParticipantNumber    = "ParticipantNumber"
	MsgMembershipChanged    = "MembershipChanged"
	MsgSessionNotFound      = "SessionNotFound"
	MsgSessionFull          = "SessionFull"
	MsgMatchStart           = "MatchStart"
	MsgRoundResolved        = "RoundResolved"
	MsgMoveTimedOut         = "MoveTimedOut"
	MsgSessionExpired       = "SessionExpired"
	MsgOpponentLeft         = "OpponentLeft"
	MsgSessionState         = "SessionState"
	MsgError                = "Error"
)

type ClientMessage struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id,omitempty"`
	Choice       string `json:"choice,omitempty"`
	PlayerNumber int    `json:"player_number,omitempty"`
}

type ServerMessage struct {
	Type         string            `json:"type"`
	SessionID    string            `json:"session_id,omitempty"`
	PlayerNumber int               `json:"player_number,omitempty"`
	Count        int               `json:"count,omitempty"`
	Moves        map[string]string `json:"moves,omitempty"`
	Result       string            `json:"result,omitempty"`
	Started      *bool             `json:"started,omitempty"`
	Error        string            `json:"error,omitempty"`
}
