// Package handler 按连接所处阶段（大厅/房间）分发上行消息。
package handler

import (
	"fmt"
	"log/slog"
	"strings"

	"sudooom.sedma.server/internal/connection"
	"sudooom.sedma.server/internal/lobby"
	"sudooom.sedma.server/internal/protocol"
	"sudooom.sedma.server/internal/room"
)

const (
	minNameLen     = 3
	maxNameLen     = 20
	minRoomNameLen = 3
	maxRoomNameLen = 30
)

// ServerControl reactor 提供给处理器的回调
// 广播失败的连接通过它走完整的断开清理
type ServerControl interface {
	RemoveClient(conn *connection.Connection)
}

// MessageHandler 消息路由器
// 按连接当前归属（大厅或房间）两阶段分发，驱动所有状态迁移
type MessageHandler struct {
	lobby *lobby.LobbyManager
	rooms *room.RoomManager
	conns *connection.Manager

	maxRooms          int
	maxPlayersPerRoom int

	srv    ServerControl
	logger *slog.Logger
}

// New 创建消息路由器
func New(l *lobby.LobbyManager, r *room.RoomManager, c *connection.Manager, maxRooms, maxPlayersPerRoom int) *MessageHandler {
	return &MessageHandler{
		lobby:             l,
		rooms:             r,
		conns:             c,
		maxRooms:          maxRooms,
		maxPlayersPerRoom: maxPlayersPerRoom,
		logger:            slog.Default().With("component", "MessageHandler"),
	}
}

// SetServer 注入 reactor 回调
// 与 reactor 互相引用，需要在两者都创建后再接线
func (h *MessageHandler) SetServer(s ServerControl) {
	h.srv = s
}

// HandleLobbyMessage 处理大厅阶段的消息
func (h *MessageHandler) HandleLobbyMessage(conn *connection.Connection, msg *protocol.ClientMessage) {
	switch msg.T {
	case protocol.MsgTypeSetName:
		h.handleSetName(conn, msg)
	case protocol.MsgTypeCreateRoom:
		h.handleCreateRoom(conn, msg)
	case protocol.MsgTypeJoinRoom:
		h.handleJoinRoom(conn, msg)
	case protocol.MsgTypeRefreshRooms:
		h.SendRoomList(conn)
	default:
		h.sendError(conn, "Invalid action")
	}
}

func (h *MessageHandler) handleSetName(conn *connection.Connection, msg *protocol.ClientMessage) {
	name := strings.TrimSpace(msg.Name)
	if n := len([]rune(name)); n < minNameLen || n > maxNameLen {
		h.sendError(conn, "Name must be 3-20 characters long")
		return
	}
	if h.conns.NameTaken(name) {
		h.sendError(conn, "Name already taken")
		return
	}

	conn.BindName(name)
	conn.Send(&protocol.NameSetMessage{T: protocol.MsgTypeNameSet, Name: name})
	h.SendRoomList(conn)
}

func (h *MessageHandler) handleCreateRoom(conn *connection.Connection, msg *protocol.ClientMessage) {
	creatorName := conn.Name()
	if creatorName == "" {
		h.sendError(conn, "Please set your name first")
		return
	}
	if h.lobby.HasCreatedRoom(creatorName) {
		h.sendError(conn, "You can only create one room")
		return
	}

	roomName := strings.TrimSpace(msg.RoomName)
	if n := len([]rune(roomName)); n < minRoomNameLen || n > maxRoomNameLen {
		h.sendError(conn, "Room name must be 3-30 characters long")
		return
	}

	maxPlayers := msg.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = h.maxPlayersPerRoom
	}
	if maxPlayers < 2 || maxPlayers > h.maxPlayersPerRoom {
		h.sendError(conn, fmt.Sprintf("max_players must be between 2 and %d", h.maxPlayersPerRoom))
		return
	}

	roomID, err := h.rooms.CreateRoom(conn, roomName, creatorName, maxPlayers)
	if err != nil {
		h.sendError(conn, fmt.Sprintf("Failed to create room (max %d rooms or invalid parameters)", h.maxRooms))
		return
	}

	h.lobby.Remove(conn)
	h.lobby.MarkRoomCreated(creatorName)

	conn.Send(&protocol.RoomJoinedMessage{
		T:          protocol.MsgTypeRoomJoined,
		RoomID:     roomID,
		RoomName:   roomName,
		PlayerSlot: 0,
		MaxPlayers: maxPlayers,
	})
	h.broadcastRoomListUpdate(conn)
}

func (h *MessageHandler) handleJoinRoom(conn *connection.Connection, msg *protocol.ClientMessage) {
	playerName := conn.Name()
	if playerName == "" {
		h.sendError(conn, "Please set your name first")
		return
	}

	slot, err := h.rooms.JoinRoom(conn, msg.RoomID, playerName)
	if err != nil {
		h.sendError(conn, "Failed to join room")
		return
	}

	h.lobby.Remove(conn)
	r, _ := h.rooms.Get(msg.RoomID)
	playersCount := r.PlayersCount()

	h.logger.Info("Player joined room",
		"player", playerName,
		"roomName", r.RoomName,
		"slot", slot)

	conn.Send(&protocol.RoomJoinedMessage{
		T:          protocol.MsgTypeRoomJoined,
		RoomID:     msg.RoomID,
		RoomName:   r.RoomName,
		PlayerSlot: slot,
		MaxPlayers: r.MaxPlayers,
	})
	h.rooms.BroadcastToRoom(msg.RoomID, &protocol.PlayerJoinedMessage{
		T:            protocol.MsgTypePlayerJoined,
		PlayerName:   playerName,
		PlayerSlot:   slot,
		PlayersCount: playersCount,
	}, nil)

	if r.CanStartGame() {
		r.StartGame()
		h.logger.Info("Game started", "roomName", r.RoomName, "players", playersCount)
		h.BroadcastGameState(msg.RoomID)
	} else {
		h.rooms.BroadcastToRoom(msg.RoomID, &protocol.WaitingMessage{
			T:             protocol.MsgTypeWaiting,
			PlayersNeeded: r.MaxPlayers - playersCount,
		}, nil)
	}

	h.broadcastRoomListUpdate(nil)
}

// HandleRoomMessage 处理房间阶段的消息
func (h *MessageHandler) HandleRoomMessage(conn *connection.Connection, msg *protocol.ClientMessage) {
	r, roomID, ok := h.rooms.RoomOf(conn)
	if !ok {
		return
	}

	if msg.T == protocol.MsgTypeLeaveRoom {
		h.LeaveRoom(conn)
		return
	}

	if r.Game == nil {
		h.sendError(conn, "Invalid action")
		return
	}

	slot := r.SeatOf(conn)
	switch {
	case msg.T == protocol.MsgTypePlayCard && slot == r.Game.CurrentPlayer:
		cardIndex := -1
		if msg.CardIndex != nil {
			cardIndex = *msg.CardIndex
		}

		if err := r.Game.PlayCard(slot, cardIndex); err != nil {
			h.sendError(conn, "Invalid card play")
			return
		}

		// 手牌出完的座位记入完成顺序
		if len(r.Game.Players[slot]) == 0 && !containsSeat(r.FinishOrder, slot) {
			r.FinishOrder = append(r.FinishOrder, slot)
			h.logger.Info("Player finished", "slot", slot, "roomName", r.RoomName)
		}
		h.BroadcastGameState(roomID)

	case msg.T == protocol.MsgTypeDrawCard && slot == r.Game.CurrentPlayer:
		if err := r.Game.DrawCard(slot); err != nil {
			h.sendError(conn, "Cannot draw card: draw pile empty")
			return
		}
		r.Game.NextTurn()
		h.BroadcastGameState(roomID)

	default:
		h.sendError(conn, "Invalid action or not your turn")
	}
}

// LeaveRoom 把连接移出所在房间并送回大厅
// 对局进行中时回收其手牌并刷新对局状态；房间腾空则删除并解除创建者标记
func (h *MessageHandler) LeaveRoom(conn *connection.Connection) {
	if r, roomID, ok := h.rooms.RoomOf(conn); ok {
		playerName := conn.Name()
		if playerName == "" {
			playerName = "Unknown"
		}
		r.RemovePlayer(conn)
		h.logger.Info("Player left room", "player", playerName, "roomName", r.RoomName)

		h.rooms.BroadcastToRoom(roomID, &protocol.PlayerLeftMessage{
			T:            protocol.MsgTypePlayerLeft,
			PlayerName:   playerName,
			PlayersCount: r.PlayersCount(),
		}, nil)

		if r.Game != nil {
			h.BroadcastGameState(roomID)
		}

		if r.IsEmpty() {
			h.lobby.ClearRoomCreated(r.CreatorName)
			h.logger.Info("Closing empty room", "roomName", r.RoomName)
			h.rooms.Remove(roomID)
		}

		h.rooms.Forget(conn)
	}

	h.lobby.Add(conn)
	conn.Send(&protocol.BackToLobbyMessage{T: protocol.MsgTypeBackToLobby})
	h.SendRoomList(conn)
	h.broadcastRoomListUpdate(nil)
}

// BroadcastGameState 向房间广播最新对局状态
func (h *MessageHandler) BroadcastGameState(roomID string) {
	r, ok := h.rooms.Get(roomID)
	if !ok || r.Game == nil {
		return
	}

	msg := &protocol.GameStateMessage{
		T:           protocol.MsgTypeGameState,
		GameState:   *r.Game.Serialize(),
		PlayerNames: r.PlayerNames,
	}
	r.LastGameState = msg
	h.rooms.BroadcastToRoom(roomID, msg, nil)
}

// SendRoomList 发送房间列表快照
func (h *MessageHandler) SendRoomList(conn *connection.Connection) {
	conn.Send(&protocol.RoomListMessage{
		T:            protocol.MsgTypeRoomList,
		Rooms:        h.rooms.AvailableRoomsInfo(),
		MaxRooms:     h.maxRooms,
		CurrentRooms: h.rooms.Count(),
	})
}

// broadcastRoomListUpdate 向大厅广播房间列表变更
// 广播失败的连接交给 reactor 做完整断开清理
func (h *MessageHandler) broadcastRoomListUpdate(exclude *connection.Connection) {
	failed := h.lobby.Broadcast(&protocol.RoomListUpdateMessage{
		T:     protocol.MsgTypeRoomListUpdate,
		Rooms: h.rooms.AvailableRoomsInfo(),
	}, exclude)
	if h.srv != nil {
		for _, conn := range failed {
			h.srv.RemoveClient(conn)
		}
	}
}

func (h *MessageHandler) sendError(conn *connection.Connection, msg string) {
	conn.Send(&protocol.ErrorMessage{T: protocol.MsgTypeError, Msg: msg})
}

func containsSeat(seats []int, seat int) bool {
	for _, s := range seats {
		if s == seat {
			return true
		}
	}
	return false
}
