package app

import "trackdown/internal/domain"

// Sentinel errors for every externally invoked operation. Each carries a
// taxonomy kind so the controller layer can map it to a response code.
var (
	ErrPlayerNotFound  = &domain.Error{Kind: domain.KindNotFound, Message: "player not found"}
	ErrSessionNotFound = &domain.Error{Kind: domain.KindNotFound, Message: "session not found"}
	ErrNoActiveSession = &domain.Error{Kind: domain.KindNotFound, Message: "player has no active session"}

	ErrSessionNotJoinable = &domain.Error{Kind: domain.KindInvalidState, Message: "session is not joinable"}
	ErrNotInSession       = &domain.Error{Kind: domain.KindInvalidState, Message: "player is not in this session"}
	ErrRoundNotActive     = &domain.Error{Kind: domain.KindInvalidState, Message: "no round is being played"}
	ErrRoundMismatch      = &domain.Error{Kind: domain.KindInvalidState, Message: "round index does not match current round"}

	ErrAlreadyReady   = &domain.Error{Kind: domain.KindAlreadyActed, Message: "player is already ready for round end"}
	ErrAlreadyGuessed = &domain.Error{Kind: domain.KindAlreadyActed, Message: "player already guessed this round"}

	ErrNameEmpty    = &domain.Error{Kind: domain.KindValidationFailed, Message: "name must not be empty"}
	ErrNameTooLong  = &domain.Error{Kind: domain.KindValidationFailed, Message: "name exceeds maximum length"}
	ErrNameReserved = &domain.Error{Kind: domain.KindValidationFailed, Message: "name is reserved"}
	ErrEmptyChat    = &domain.Error{Kind: domain.KindValidationFailed, Message: "chat message must not be empty"}

	ErrNoPlayableContent = &domain.Error{Kind: domain.KindNoPlayableContent, Message: "no playable rounds could be generated"}
)
