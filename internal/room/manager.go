package room

import (
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"sudooom.sedma.server/internal/connection"
	"sudooom.sedma.server/internal/protocol"
)

// RoomManager 房间注册表
// 持有全部房间和连接到房间的反向映射，仅由 reactor 循环访问
type RoomManager struct {
	rooms       map[string]*GameRoom
	clientRooms map[int64]string // 连接 ID -> 房间 ID

	maxRooms          int
	maxPlayersPerRoom int

	logger *slog.Logger
}

// NewRoomManager 创建房间注册表
func NewRoomManager(maxRooms, maxPlayersPerRoom int) *RoomManager {
	return &RoomManager{
		rooms:             make(map[string]*GameRoom),
		clientRooms:       make(map[int64]string),
		maxRooms:          maxRooms,
		maxPlayersPerRoom: maxPlayersPerRoom,
		logger:            slog.Default().With("component", "RoomManager"),
	}
}

// CreateRoom 创建房间并让创建者落座 0 号位
func (m *RoomManager) CreateRoom(conn *connection.Connection, roomName, creatorName string, maxPlayers int) (string, error) {
	if len(m.rooms) >= m.maxRooms {
		return "", ErrRoomLimit
	}
	if maxPlayers < 2 || maxPlayers > m.maxPlayersPerRoom {
		return "", ErrInvalidMaxPlayers
	}

	roomID := uuid.NewString()
	m.rooms[roomID] = NewGameRoom(roomID, roomName, conn, creatorName, maxPlayers)
	m.clientRooms[conn.ID()] = roomID

	m.logger.Info("Room created",
		"roomId", roomID,
		"roomName", roomName,
		"creator", creatorName,
		"maxPlayers", maxPlayers)
	return roomID, nil
}

// JoinRoom 加入房间，落座最小编号空位
func (m *RoomManager) JoinRoom(conn *connection.Connection, roomID, playerName string) (int, error) {
	r, ok := m.rooms[roomID]
	if !ok {
		return -1, ErrRoomNotFound
	}
	if r.Game != nil {
		return -1, ErrGameStarted
	}
	if r.GameEnded {
		return -1, ErrGameEnded
	}
	slot, ok := r.AddPlayer(conn, playerName)
	if !ok {
		return -1, ErrRoomFull
	}
	m.clientRooms[conn.ID()] = roomID
	return slot, nil
}

// Get 获取房间
func (m *RoomManager) Get(roomID string) (*GameRoom, bool) {
	r, ok := m.rooms[roomID]
	return r, ok
}

// RoomOf 返回连接所在的房间
func (m *RoomManager) RoomOf(conn *connection.Connection) (*GameRoom, string, bool) {
	roomID, ok := m.clientRooms[conn.ID()]
	if !ok {
		return nil, "", false
	}
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, "", false
	}
	return r, roomID, true
}

// Contains 连接是否在某个房间内
func (m *RoomManager) Contains(conn *connection.Connection) bool {
	_, ok := m.clientRooms[conn.ID()]
	return ok
}

// Forget 清除连接到房间的映射
func (m *RoomManager) Forget(conn *connection.Connection) {
	delete(m.clientRooms, conn.ID())
}

// Remove 删除房间
func (m *RoomManager) Remove(roomID string) {
	delete(m.rooms, roomID)
	m.logger.Info("Removed room", "roomId", roomID)
}

// Count 当前房间数
func (m *RoomManager) Count() int {
	return len(m.rooms)
}

// RoomIDs 返回全部房间 ID（用于巡检）
func (m *RoomManager) RoomIDs() []string {
	ids := make([]string, 0, len(m.rooms))
	for id := range m.rooms {
		ids = append(ids, id)
	}
	return ids
}

// AvailableRoomsInfo 可加入房间的列表条目（未开局且未结算）
func (m *RoomManager) AvailableRoomsInfo() []protocol.RoomInfo {
	infos := make([]protocol.RoomInfo, 0, len(m.rooms))
	for _, r := range m.rooms {
		if r.Game == nil && !r.GameEnded {
			infos = append(infos, r.Info())
		}
	}
	return infos
}

// BroadcastToRoom 向房间内所有座位广播
// 发送失败的座位被强制腾出并清除反向映射
func (m *RoomManager) BroadcastToRoom(roomID string, msg any, exclude *connection.Connection) {
	r, ok := m.rooms[roomID]
	if !ok {
		return
	}

	var failed []*connection.Connection
	for _, conn := range r.Conns() {
		if conn == exclude {
			continue
		}
		if !conn.Send(msg) {
			failed = append(failed, conn)
		}
	}
	for _, conn := range failed {
		r.RemovePlayer(conn)
		delete(m.clientRooms, conn.ID())
	}
}

// EndGame 结算并广播对局结果，之后房间进入退役状态
// 先出完手牌的座位按出完顺序排名，其余座位按剩余手牌数升序排在后面
func (m *RoomManager) EndGame(roomID string) {
	r, ok := m.rooms[roomID]
	if !ok || r.Game == nil {
		return
	}

	// 胜者为第一个手牌为空的座位，没有则为 null
	var winner *int
	for i, hand := range r.Game.Players {
		if len(hand) == 0 {
			w := i + 1
			winner = &w
			break
		}
	}

	results := make([]protocol.PlayerResult, 0, r.MaxPlayers)
	for _, pid := range r.FinishOrder {
		results = append(results, protocol.PlayerResult{
			PID:          pid,
			Rank:         len(results) + 1,
			CardsLeft:    0,
			Disconnected: r.Disconnected[pid],
		})
	}

	finished := make(map[int]bool, len(r.FinishOrder))
	for _, pid := range r.FinishOrder {
		finished[pid] = true
	}
	type remainingSeat struct {
		pid       int
		cardsLeft int
	}
	remaining := make([]remainingSeat, 0, r.MaxPlayers)
	for i := 0; i < r.MaxPlayers; i++ {
		if !finished[i] {
			remaining = append(remaining, remainingSeat{pid: i, cardsLeft: len(r.Game.Players[i])})
		}
	}
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].cardsLeft < remaining[j].cardsLeft
	})
	for _, seat := range remaining {
		results = append(results, protocol.PlayerResult{
			PID:          seat.pid,
			Rank:         len(results) + 1,
			CardsLeft:    seat.cardsLeft,
			Disconnected: r.Disconnected[seat.pid],
		})
	}

	m.logger.Info("Game over", "roomId", roomID, "roomName", r.RoomName, "winner", winner)

	m.BroadcastToRoom(roomID, &protocol.GameOverMessage{
		T:           protocol.MsgTypeGameOver,
		Winner:      winner,
		Results:     results,
		PlayerNames: r.PlayerNames,
	}, nil)

	r.Game = nil
	r.GameEnded = true
	r.LastGameState = nil
	r.FinishOrder = nil
}
