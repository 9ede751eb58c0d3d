package game

import "errors"

// 对局操作错误定义

var (
	ErrInvalidPlayer = errors.New("INVALID_PLAYER")
	ErrInvalidCard   = errors.New("INVALID_CARD")
	ErrCardMismatch  = errors.New("CARD_MISMATCH")
	ErrDrawPileEmpty = errors.New("DRAW_PILE_EMPTY")
	ErrGameOver      = errors.New("GAME_OVER")
)
