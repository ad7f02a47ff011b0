package model

import "errors"

var (
	ErrInvalidFaction      = errors.New("invalid faction")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrArithmeticUnderflow = errors.New("arithmetic underflow")
	ErrTransferFailed      = errors.New("transfer failed")

	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotRegistered     = errors.New("user not registered")
	ErrAlreadyRegistered = errors.New("user already registered")
	ErrEpochNotEnded     = errors.New("epoch has not ended")
	ErrInvalidStatus     = errors.New("invalid game status")
	ErrAlreadySettled    = errors.New("user already settled this epoch")
)
