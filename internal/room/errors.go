package room

import "errors"

// 房间错误定义

var (
	ErrRoomNotFound      = errors.New("ROOM_NOT_FOUND")
	ErrRoomFull          = errors.New("ROOM_FULL")
	ErrRoomLimit         = errors.New("ROOM_LIMIT_REACHED")
	ErrGameStarted       = errors.New("GAME_STARTED")
	ErrGameEnded         = errors.New("GAME_ENDED")
	ErrInvalidMaxPlayers = errors.New("INVALID_MAX_PLAYERS")
)
