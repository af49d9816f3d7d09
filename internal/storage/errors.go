// Package storage содержит общие для реализаций хранилища ошибки.
package storage

import "errors"

var (
	// ErrUserNotFound — пользователь с указанным идентификатором не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists — пользователь с таким email уже зарегистрирован.
	ErrUserExists = errors.New("user already exists")
	// ErrPaymentExists — платёж с таким внешним идентификатором уже записан в журнал.
	ErrPaymentExists = errors.New("payment already recorded")
	// ErrPaymentNotFound — платёж с указанным внешним идентификатором не записан в журнал.
	ErrPaymentNotFound = errors.New("payment not found")
)
