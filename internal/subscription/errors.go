package subscription

import "errors"

var (
	// ErrGatewayUnconfirmed — шлюз не подтвердил платёж, проведение не выполнялось.
	ErrGatewayUnconfirmed = errors.New("payment is not confirmed by gateway")
	// ErrUserMismatch — платёж в шлюзе принадлежит другому пользователю.
	ErrUserMismatch = errors.New("payment belongs to another user")
	// ErrPersistence — запись в хранилище не удалась, права не выданы.
	ErrPersistence = errors.New("failed to persist subscription state")
	// ErrSettlementInProgress — по пользователю уже проводится другой платёж.
	ErrSettlementInProgress = errors.New("settlement already in progress")
)
