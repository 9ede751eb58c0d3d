package room

import (
	"time"

	"sudooom.sedma.server/internal/connection"
	"sudooom.sedma.server/internal/game"
	"sudooom.sedma.server/internal/protocol"
)

// Seat 房间内的一个座位
type Seat struct {
	Conn *connection.Connection
	Name string
}

// GameRoom 一个游戏房间
// 座位索引与对局的手牌索引始终对齐，在一局的生命周期内不变
// 仅由 reactor 循环访问
type GameRoom struct {
	RoomID      string
	RoomName    string
	CreatorName string
	MaxPlayers  int

	Game      *game.Game // 仅对局进行中非 nil
	GameEnded bool       // 一次性标记，结算后房间不再重开

	Seats       []*Seat        // 长度恒等于 MaxPlayers
	PlayerNames map[int]string // 座位 -> 名字，玩家离开后保留用于结算展示

	FinishOrder  []int        // 出完手牌的座位，按出完顺序
	Disconnected map[int]bool // 局中离开且手牌被强制弃掉的座位

	LastGameState *protocol.GameStateMessage
	CreatedAt     time.Time
}

// NewGameRoom 创建房间，创建者落座 0 号位
func NewGameRoom(roomID, roomName string, creator *connection.Connection, creatorName string, maxPlayers int) *GameRoom {
	r := &GameRoom{
		RoomID:       roomID,
		RoomName:     roomName,
		CreatorName:  creatorName,
		MaxPlayers:   maxPlayers,
		Seats:        make([]*Seat, maxPlayers),
		PlayerNames:  make(map[int]string),
		Disconnected: make(map[int]bool),
		CreatedAt:    time.Now(),
	}
	r.AddPlayer(creator, creatorName)
	return r
}

// AddPlayer 落座最小编号的空位，返回座位号
func (r *GameRoom) AddPlayer(conn *connection.Connection, name string) (int, bool) {
	for i, seat := range r.Seats {
		if seat == nil {
			r.Seats[i] = &Seat{Conn: conn, Name: name}
			r.PlayerNames[i] = name
			return i, true
		}
	}
	return -1, false
}

// RemovePlayer 强制腾出该连接占用的座位
// 对局进行中时把手牌回收到弃牌堆头部（保留生效牌），座位标记为断线，
// 该座位持有回合时顺延回合
func (r *GameRoom) RemovePlayer(conn *connection.Connection) bool {
	for i, seat := range r.Seats {
		if seat == nil || seat.Conn != conn {
			continue
		}

		if r.Game != nil && len(r.Game.Players[i]) > 0 {
			hand := r.Game.Players[i]
			recovered := make([]game.Card, 0, len(hand)+len(r.Game.DiscardPile))
			for j := len(hand) - 1; j >= 0; j-- {
				recovered = append(recovered, hand[j])
			}
			r.Game.DiscardPile = append(recovered, r.Game.DiscardPile...)
			r.Game.Players[i] = nil
			r.Disconnected[i] = true

			if r.Game.CurrentPlayer == i {
				r.Game.NextTurn()
			}
		}

		r.Seats[i] = nil
		return true
	}
	return false
}

// SeatOf 返回该连接占用的座位号，不在房间内返回 -1
func (r *GameRoom) SeatOf(conn *connection.Connection) int {
	for i, seat := range r.Seats {
		if seat != nil && seat.Conn == conn {
			return i
		}
	}
	return -1
}

func (r *GameRoom) IsEmpty() bool {
	for _, seat := range r.Seats {
		if seat != nil {
			return false
		}
	}
	return true
}

func (r *GameRoom) IsFull() bool {
	for _, seat := range r.Seats {
		if seat == nil {
			return false
		}
	}
	return true
}

// PlayersCount 当前占用的座位数
func (r *GameRoom) PlayersCount() int {
	count := 0
	for _, seat := range r.Seats {
		if seat != nil {
			count++
		}
	}
	return count
}

// CanStartGame 座位全满且未开过局时可以开局
func (r *GameRoom) CanStartGame() bool {
	return r.PlayersCount() == r.MaxPlayers && r.Game == nil && !r.GameEnded
}

// StartGame 创建对局并发牌
func (r *GameRoom) StartGame() bool {
	if !r.CanStartGame() {
		return false
	}
	r.Game = game.NewGame(r.MaxPlayers)
	r.Game.CreateDeck()
	r.Game.DealCards()
	r.FinishOrder = nil
	r.Disconnected = make(map[int]bool)
	return true
}

// Conns 房间内所有连接
func (r *GameRoom) Conns() []*connection.Connection {
	conns := make([]*connection.Connection, 0, len(r.Seats))
	for _, seat := range r.Seats {
		if seat != nil {
			conns = append(conns, seat.Conn)
		}
	}
	return conns
}

// Info 生成房间列表条目
func (r *GameRoom) Info() protocol.RoomInfo {
	return protocol.RoomInfo{
		RoomID:     r.RoomID,
		RoomName:   r.RoomName,
		Creator:    r.CreatorName,
		Players:    r.PlayersCount(),
		MaxPlayers: r.MaxPlayers,
		InGame:     r.Game != nil || r.GameEnded,
		CreatedAt:  r.CreatedAt.Format("15:04:05"),
	}
}
