package room

import (
	"errors"
	"testing"

	"sudooom.sedma.server/internal/game"
)

// TestCreateRoomLimits 测试房间数量与人数上限校验
func TestCreateRoomLimits(t *testing.T) {
	m := NewRoomManager(2, 4)

	c1, _ := newTestConn(t)
	if _, err := m.CreateRoom(c1, "room a", "alice", 1); !errors.Is(err, ErrInvalidMaxPlayers) {
		t.Errorf("期望 ErrInvalidMaxPlayers, 实际 = %v", err)
	}
	if _, err := m.CreateRoom(c1, "room a", "alice", 5); !errors.Is(err, ErrInvalidMaxPlayers) {
		t.Errorf("期望 ErrInvalidMaxPlayers, 实际 = %v", err)
	}

	if _, err := m.CreateRoom(c1, "room a", "alice", 2); err != nil {
		t.Fatalf("期望创建成功, 实际错误 = %v", err)
	}
	c2, _ := newTestConn(t)
	if _, err := m.CreateRoom(c2, "room b", "bob", 4); err != nil {
		t.Fatalf("期望创建成功, 实际错误 = %v", err)
	}

	c3, _ := newTestConn(t)
	if _, err := m.CreateRoom(c3, "room c", "carol", 2); !errors.Is(err, ErrRoomLimit) {
		t.Errorf("期望 ErrRoomLimit, 实际 = %v", err)
	}
	if m.Count() != 2 {
		t.Errorf("期望房间数 2, 实际 = %d", m.Count())
	}
}

// TestJoinRoomValidation 测试加入房间的各类拒绝原因
func TestJoinRoomValidation(t *testing.T) {
	m := NewRoomManager(5, 4)

	c1, _ := newTestConn(t)
	if _, err := m.JoinRoom(c1, "no-such-room", "alice"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("期望 ErrRoomNotFound, 实际 = %v", err)
	}

	roomID, err := m.CreateRoom(c1, "room a", "alice", 2)
	if err != nil {
		t.Fatal(err)
	}

	c2, _ := newTestConn(t)
	slot, err := m.JoinRoom(c2, roomID, "bob")
	if err != nil || slot != 1 {
		t.Fatalf("期望落座 1 号位, 实际 = (%d, %v)", slot, err)
	}

	// 满员
	c3, _ := newTestConn(t)
	if _, err := m.JoinRoom(c3, roomID, "carol"); !errors.Is(err, ErrRoomFull) {
		t.Errorf("期望 ErrRoomFull, 实际 = %v", err)
	}

	// 对局进行中
	r, _ := m.Get(roomID)
	r.StartGame()
	if _, err := m.JoinRoom(c3, roomID, "carol"); !errors.Is(err, ErrGameStarted) {
		t.Errorf("期望 ErrGameStarted, 实际 = %v", err)
	}

	// 已结算
	r.Game = nil
	r.GameEnded = true
	if _, err := m.JoinRoom(c3, roomID, "carol"); !errors.Is(err, ErrGameEnded) {
		t.Errorf("期望 ErrGameEnded, 实际 = %v", err)
	}
}

// TestRoomOfAndForget 测试连接到房间的反向映射
func TestRoomOfAndForget(t *testing.T) {
	m := NewRoomManager(5, 4)

	c1, _ := newTestConn(t)
	roomID, err := m.CreateRoom(c1, "room a", "alice", 2)
	if err != nil {
		t.Fatal(err)
	}

	r, id, ok := m.RoomOf(c1)
	if !ok || id != roomID || r.RoomID != roomID {
		t.Fatalf("期望查到所在房间 %s", roomID)
	}
	if !m.Contains(c1) {
		t.Error("期望连接在房间内")
	}

	m.Forget(c1)
	if m.Contains(c1) {
		t.Error("期望映射已清除")
	}
	if _, _, ok := m.RoomOf(c1); ok {
		t.Error("期望查不到所在房间")
	}
}

// TestAvailableRoomsInfo 进行中和已结算的房间不出现在列表里
func TestAvailableRoomsInfo(t *testing.T) {
	m := NewRoomManager(5, 4)

	c1, _ := newTestConn(t)
	m.CreateRoom(c1, "open room", "alice", 3)

	c2, _ := newTestConn(t)
	playingID, _ := m.CreateRoom(c2, "playing room", "bob", 2)
	playing, _ := m.Get(playingID)
	c3, _ := newTestConn(t)
	playing.AddPlayer(c3, "carol")
	playing.StartGame()

	infos := m.AvailableRoomsInfo()
	if len(infos) != 1 || infos[0].RoomName != "open room" {
		t.Errorf("期望列表只含可加入房间, 实际 = %+v", infos)
	}
}

// TestBroadcastEvictsFailedConn 广播失败的座位被强制腾出
func TestBroadcastEvictsFailedConn(t *testing.T) {
	m := NewRoomManager(5, 4)

	c1, ch1 := newTestConn(t)
	roomID, err := m.CreateRoom(c1, "room a", "alice", 3)
	if err != nil {
		t.Fatal(err)
	}
	dead := deadTestConn(t)
	if _, err := m.JoinRoom(dead, roomID, "bob"); err != nil {
		t.Fatal(err)
	}

	m.BroadcastToRoom(roomID, map[string]string{"t": "waiting"}, nil)
	waitMsg(t, ch1, "waiting")

	r, _ := m.Get(roomID)
	if r.SeatOf(dead) != -1 {
		t.Error("期望失败座位已腾出")
	}
	if m.Contains(dead) {
		t.Error("期望失败连接的映射已清除")
	}
}

// TestEndGameResults 测试结算排名与广播
func TestEndGameResults(t *testing.T) {
	m := NewRoomManager(5, 4)

	c1, ch1 := newTestConn(t)
	roomID, err := m.CreateRoom(c1, "room a", "alice", 3)
	if err != nil {
		t.Fatal(err)
	}
	c2, ch2 := newTestConn(t)
	c3, _ := newTestConn(t)
	m.JoinRoom(c2, roomID, "bob")
	m.JoinRoom(c3, roomID, "carol")

	r, _ := m.Get(roomID)
	if !r.StartGame() {
		t.Fatal("期望开局成功")
	}

	// 构造终局：座位 0 先出完，座位 2 断线剩 1 张，座位 1 剩 2 张
	r.Game.Players[0] = nil
	r.Game.Players[1] = []game.Card{game.NewCard(9, game.SuitHearts), game.NewCard(10, game.SuitHearts)}
	r.Game.Players[2] = []game.Card{game.NewCard(8, game.SuitClubs)}
	r.FinishOrder = []int{0}
	r.Disconnected[2] = true

	m.EndGame(roomID)

	over := waitMsg(t, ch1, "go")
	if over["w"] != float64(1) {
		t.Errorf("期望胜者为 1, 实际 = %v", over["w"])
	}
	results, ok := over["results"].([]any)
	if !ok || len(results) != 3 {
		t.Fatalf("期望 3 条结算结果, 实际 = %v", over["results"])
	}
	wantOrder := []struct {
		pid, rank, cardsLeft float64
		disconnected         bool
	}{
		{0, 1, 0, false},
		{2, 2, 1, true},
		{1, 3, 2, false},
	}
	for i, want := range wantOrder {
		got := results[i].(map[string]any)
		if got["pid"] != want.pid || got["rank"] != want.rank ||
			got["cards_left"] != want.cardsLeft || got["disconnected"] != want.disconnected {
			t.Errorf("结算第 %d 名不符: %v", i+1, got)
		}
	}
	names, ok := over["player_names"].(map[string]any)
	if !ok || names["0"] != "alice" || names["1"] != "bob" || names["2"] != "carol" {
		t.Errorf("期望座位名完整, 实际 = %v", over["player_names"])
	}

	// 所有座位都收到广播
	waitMsg(t, ch2, "go")

	if r.Game != nil || !r.GameEnded {
		t.Error("期望结算后房间进入退役状态")
	}
}
