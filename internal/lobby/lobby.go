// Package lobby 维护未进入房间的连接集合。
package lobby

import (
	"log/slog"

	"sudooom.sedma.server/internal/connection"
)

// LobbyManager 大厅注册表
// 持有所有不在房间内的连接，并以创建者名字为键限制每人只能创建一个房间
// 仅由 reactor 循环访问
type LobbyManager struct {
	clients     map[int64]*connection.Connection
	roomCreated map[string]bool // 创建者名字 -> 是否已创建房间
	logger      *slog.Logger
}

func NewLobbyManager() *LobbyManager {
	return &LobbyManager{
		clients:     make(map[int64]*connection.Connection),
		roomCreated: make(map[string]bool),
		logger:      slog.Default().With("component", "LobbyManager"),
	}
}

func (l *LobbyManager) Add(conn *connection.Connection) {
	l.clients[conn.ID()] = conn
}

// Remove 将连接移出大厅
// 不清理 roomCreated 标记，标记在对应房间被删除时才清除
func (l *LobbyManager) Remove(conn *connection.Connection) {
	delete(l.clients, conn.ID())
}

func (l *LobbyManager) Contains(conn *connection.Connection) bool {
	_, ok := l.clients[conn.ID()]
	return ok
}

func (l *LobbyManager) Count() int {
	return len(l.clients)
}

// MarkRoomCreated 记录该名字已创建房间
func (l *LobbyManager) MarkRoomCreated(creatorName string) {
	l.roomCreated[creatorName] = true
}

// HasCreatedRoom 该名字是否已有存活的房间
func (l *LobbyManager) HasCreatedRoom(creatorName string) bool {
	return l.roomCreated[creatorName]
}

// ClearRoomCreated 房间删除后解除创建者标记
func (l *LobbyManager) ClearRoomCreated(creatorName string) {
	delete(l.roomCreated, creatorName)
}

// Broadcast 向大厅内所有连接发送消息
// 发送失败的连接被移出大厅并返回给调用方做完整清理
func (l *LobbyManager) Broadcast(msg any, exclude *connection.Connection) []*connection.Connection {
	var failed []*connection.Connection
	for _, conn := range l.clients {
		if conn == exclude {
			continue
		}
		if !conn.Send(msg) {
			failed = append(failed, conn)
		}
	}
	for _, conn := range failed {
		l.Remove(conn)
	}
	return failed
}

// Clients 返回大厅内全部连接（用于关闭时清理）
func (l *LobbyManager) Clients() []*connection.Connection {
	conns := make([]*connection.Connection, 0, len(l.clients))
	for _, conn := range l.clients {
		conns = append(conns, conn)
	}
	return conns
}
