package protocol

// 消息类型，对应线上协议的 t 字段
const (
	MsgTypeLobbyWelcome   = "lobby_welcome"
	MsgTypeSetName        = "set_name"
	MsgTypeNameSet        = "name_set"
	MsgTypeCreateRoom     = "create_room"
	MsgTypeJoinRoom       = "join_room"
	MsgTypeRoomJoined     = "room_joined"
	MsgTypeRoomList       = "room_list"
	MsgTypeRoomListUpdate = "room_list_update"
	MsgTypeRefreshRooms   = "refresh_rooms"
	MsgTypePlayerJoined   = "player_joined"
	MsgTypePlayerLeft     = "player_left"
	MsgTypeWaiting        = "waiting"
	MsgTypeGameState      = "gs"
	MsgTypePlayCard       = "p"
	MsgTypeDrawCard       = "d"
	MsgTypeGameOver       = "go"
	MsgTypeLeaveRoom      = "leave_room"
	MsgTypeBackToLobby    = "back_to_lobby"
	MsgTypeError          = "e"
)

// ============== 上行消息 (Client -> Server) ==============

// ClientMessage 客户端发送的消息结构
// 所有上行类型共用一个结构，按 t 字段取用对应字段
type ClientMessage struct {
	T          string `json:"t"`
	Name       string `json:"name,omitempty"`
	RoomName   string `json:"room_name,omitempty"`
	MaxPlayers int    `json:"max_players,omitempty"`
	RoomID     string `json:"room_id,omitempty"`
	CardIndex  *int   `json:"ci,omitempty"`
}

// ============== 下行消息 (Server -> Client) ==============

// WelcomeMessage 连接建立后的欢迎消息
type WelcomeMessage struct {
	T   string `json:"t"`
	Msg string `json:"msg"`
}

// NameSetMessage 名字设置成功
type NameSetMessage struct {
	T    string `json:"t"`
	Name string `json:"name"`
}

// ErrorMessage 操作被拒绝时的错误回复
type ErrorMessage struct {
	T   string `json:"t"`
	Msg string `json:"msg"`
}

// RoomInfo 房间列表条目
type RoomInfo struct {
	RoomID     string `json:"room_id"`
	RoomName   string `json:"room_name"`
	Creator    string `json:"creator"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	InGame     bool   `json:"in_game"`
	CreatedAt  string `json:"created_at"`
}

// RoomListMessage 房间列表快照（refresh_rooms / name_set 后发送）
type RoomListMessage struct {
	T            string     `json:"t"`
	Rooms        []RoomInfo `json:"rooms"`
	MaxRooms     int        `json:"max_rooms"`
	CurrentRooms int        `json:"current_rooms"`
}

// RoomListUpdateMessage 大厅广播的房间列表变更
type RoomListUpdateMessage struct {
	T     string     `json:"t"`
	Rooms []RoomInfo `json:"rooms"`
}

// RoomJoinedMessage 创建/加入房间成功的确认
type RoomJoinedMessage struct {
	T          string `json:"t"`
	RoomID     string `json:"room_id"`
	RoomName   string `json:"room_name"`
	PlayerSlot int    `json:"player_slot"`
	MaxPlayers int    `json:"max_players"`
}

// PlayerJoinedMessage 房间内广播：有玩家加入
type PlayerJoinedMessage struct {
	T            string `json:"t"`
	PlayerName   string `json:"player_name"`
	PlayerSlot   int    `json:"player_slot"`
	PlayersCount int    `json:"players_count"`
}

// PlayerLeftMessage 房间内广播：有玩家离开
type PlayerLeftMessage struct {
	T            string `json:"t"`
	PlayerName   string `json:"player_name"`
	PlayersCount int    `json:"players_count"`
}

// WaitingMessage 房间未满时的等待提示
type WaitingMessage struct {
	T             string `json:"t"`
	PlayersNeeded int    `json:"players_needed"`
}

// BackToLobbyMessage 确认离开房间回到大厅
type BackToLobbyMessage struct {
	T string `json:"t"`
}

// CardInfo 对局状态中的一张牌
type CardInfo struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Suit  string `json:"suit"`
}

// GameState 对局状态快照
// 所有手牌对全部客户端可见，摸牌堆只暴露数量
type GameState struct {
	NumPlayers    int          `json:"num_players"`
	Players       [][]CardInfo `json:"players"`
	DrawPileCount int          `json:"draw_pile_count"`
	DiscardPile   []CardInfo   `json:"discard_pile"`
	CurrentPlayer int          `json:"current_player"`
}

// GameStateMessage 房间内广播的对局状态（gs）
// GameState 字段内联展开到顶层
type GameStateMessage struct {
	T string `json:"t"`
	GameState
	PlayerNames map[int]string `json:"player_names"`
}

// PlayerResult 单个座位的结算结果
type PlayerResult struct {
	PID          int  `json:"pid"`
	Rank         int  `json:"rank"`
	CardsLeft    int  `json:"cards_left"`
	Disconnected bool `json:"disconnected"`
}

// GameOverMessage 对局结束广播（go）
// Winner 为胜者座位号+1，无人出完时为 null
type GameOverMessage struct {
	T           string         `json:"t"`
	Winner      *int           `json:"w"`
	Results     []PlayerResult `json:"results"`
	PlayerNames map[int]string `json:"player_names"`
}
