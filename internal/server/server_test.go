package server

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"sudooom.sedma.server/internal/config"
	"sudooom.sedma.server/internal/protocol"
)

// startTestServer 在随机端口上启动服务器，测试结束后优雅退出
func startTestServer(t *testing.T) string {
	t.Helper()
	cfg := config.Default()
	cfg.Server.SendRetries = 0
	cfg.Server.RetryDelay = time.Millisecond
	cfg.Server.TickInterval = 20 * time.Millisecond

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(cfg, logger)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("监听失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Serve(ctx, ln)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("服务器退出超时")
		}
	})
	return ln.Addr().String()
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	ch   chan map[string]any
}

func dialTestClient(t *testing.T, addr string) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("连接失败: %v", err)
	}

	c := &testClient{t: t, conn: conn, ch: make(chan map[string]any, 64)}
	go func() {
		defer close(c.ch)
		for {
			payload, err := protocol.ReadFrame(conn)
			if err != nil {
				return
			}
			var m map[string]any
			if json.Unmarshal(payload, &m) == nil {
				c.ch <- m
			}
		}
	}()
	t.Cleanup(func() { conn.Close() })
	return c
}

func (c *testClient) send(v any) {
	c.t.Helper()
	frame, err := protocol.EncodeFrame(v)
	if err != nil {
		c.t.Fatalf("编码失败: %v", err)
	}
	if _, err := c.conn.Write(frame); err != nil {
		c.t.Fatalf("发送失败: %v", err)
	}
}

// expect 等待第一条指定类型的消息，中途其它类型被丢弃
func (c *testClient) expect(msgType string) map[string]any {
	c.t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case m, ok := <-c.ch:
			if !ok {
				c.t.Fatalf("连接已关闭, 未收到类型 %q 的消息", msgType)
			}
			if m["t"] == msgType {
				return m
			}
		case <-deadline:
			c.t.Fatalf("等待类型 %q 的消息超时", msgType)
		}
	}
}

// expectClosed 等待服务器关闭连接
func (c *testClient) expectClosed() {
	c.t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-c.ch:
			if !ok {
				return
			}
		case <-deadline:
			c.t.Fatal("等待连接关闭超时")
		}
	}
}

// TestServerGameFlow 完整对局流程：进大厅、建房、开局、摸牌、断线结算、回大厅
func TestServerGameFlow(t *testing.T) {
	addr := startTestServer(t)

	c1 := dialTestClient(t, addr)
	c1.expect(protocol.MsgTypeLobbyWelcome)
	c1.send(&protocol.ClientMessage{T: protocol.MsgTypeSetName, Name: "alice"})
	c1.expect(protocol.MsgTypeNameSet)
	c1.expect(protocol.MsgTypeRoomList)

	c2 := dialTestClient(t, addr)
	c2.expect(protocol.MsgTypeLobbyWelcome)

	// 名字唯一性跨连接生效
	c2.send(&protocol.ClientMessage{T: protocol.MsgTypeSetName, Name: "alice"})
	if e := c2.expect(protocol.MsgTypeError); e["msg"] != "Name already taken" {
		t.Errorf("错误消息不符: %v", e["msg"])
	}
	c2.send(&protocol.ClientMessage{T: protocol.MsgTypeSetName, Name: "bob"})
	c2.expect(protocol.MsgTypeNameSet)

	// 建房，大厅里的 bob 通过列表变更拿到房间 ID
	c1.send(&protocol.ClientMessage{T: protocol.MsgTypeCreateRoom, RoomName: "test room", MaxPlayers: 2})
	c1.expect(protocol.MsgTypeRoomJoined)
	update := c2.expect(protocol.MsgTypeRoomListUpdate)
	rooms := update["rooms"].([]any)
	if len(rooms) != 1 {
		t.Fatalf("期望列表含 1 个房间, 实际 = %v", update["rooms"])
	}
	roomID := rooms[0].(map[string]any)["room_id"].(string)

	// 第二人落座即开局
	c2.send(&protocol.ClientMessage{T: protocol.MsgTypeJoinRoom, RoomID: roomID})
	joined := c2.expect(protocol.MsgTypeRoomJoined)
	if joined["player_slot"] != float64(1) {
		t.Fatalf("期望落座 1 号位, 实际 = %v", joined["player_slot"])
	}

	gs := c1.expect(protocol.MsgTypeGameState)
	c2.expect(protocol.MsgTypeGameState)
	if gs["num_players"] != float64(2) || gs["draw_pile_count"] != float64(21) {
		t.Errorf("开局状态不符: %v", gs)
	}
	players := gs["players"].([]any)
	for i, hand := range players {
		if len(hand.([]any)) != 5 {
			t.Errorf("期望座位 %d 起手 5 张, 实际 = %d", i, len(hand.([]any)))
		}
	}

	// 当前回合座位摸一张，回合交给对方
	seats := map[int]*testClient{0: c1, 1: c2}
	cur := int(gs["current_player"].(float64))
	seats[cur].send(&protocol.ClientMessage{T: protocol.MsgTypeDrawCard})
	next := c1.expect(protocol.MsgTypeGameState)
	c2.expect(protocol.MsgTypeGameState)
	if next["current_player"] != float64(1-cur) {
		t.Errorf("期望回合交给座位 %d, 实际 = %v", 1-cur, next["current_player"])
	}

	// bob 断线：alice 收到离开通知、新状态，巡检随后结算
	c2.conn.Close()
	left := c1.expect(protocol.MsgTypePlayerLeft)
	if left["player_name"] != "bob" {
		t.Errorf("期望 bob 离开, 实际 = %v", left["player_name"])
	}
	over := c1.expect(protocol.MsgTypeGameOver)
	if over["w"] != float64(2) {
		t.Errorf("期望胜者为座位 2, 实际 = %v", over["w"])
	}

	// alice 离开后房间回收，回到大厅的列表为空
	c1.send(&protocol.ClientMessage{T: protocol.MsgTypeLeaveRoom})
	c1.expect(protocol.MsgTypeBackToLobby)
	list := c1.expect(protocol.MsgTypeRoomList)
	if list["current_rooms"] != float64(0) {
		t.Errorf("期望房间已回收, 实际 = %v", list["current_rooms"])
	}

	c1.send(&protocol.ClientMessage{T: protocol.MsgTypeRefreshRooms})
	c1.expect(protocol.MsgTypeRoomList)
}

// TestServerWaitingBroadcast 房间未满时广播等待人数
func TestServerWaitingBroadcast(t *testing.T) {
	addr := startTestServer(t)

	c1 := dialTestClient(t, addr)
	c1.expect(protocol.MsgTypeLobbyWelcome)
	c1.send(&protocol.ClientMessage{T: protocol.MsgTypeSetName, Name: "alice"})
	c1.expect(protocol.MsgTypeNameSet)
	c1.send(&protocol.ClientMessage{T: protocol.MsgTypeCreateRoom, RoomName: "test room", MaxPlayers: 3})
	joined := c1.expect(protocol.MsgTypeRoomJoined)
	roomID := joined["room_id"].(string)

	c2 := dialTestClient(t, addr)
	c2.expect(protocol.MsgTypeLobbyWelcome)
	c2.send(&protocol.ClientMessage{T: protocol.MsgTypeSetName, Name: "bob"})
	c2.expect(protocol.MsgTypeNameSet)
	c2.send(&protocol.ClientMessage{T: protocol.MsgTypeJoinRoom, RoomID: roomID})

	w := c1.expect(protocol.MsgTypeWaiting)
	if w["players_needed"] != float64(1) {
		t.Errorf("期望还差 1 人, 实际 = %v", w["players_needed"])
	}
	c2.expect(protocol.MsgTypeWaiting)
}

// TestServerDropsOversizedFrame 帧头超限的连接被直接断开
func TestServerDropsOversizedFrame(t *testing.T) {
	addr := startTestServer(t)

	c := dialTestClient(t, addr)
	c.expect(protocol.MsgTypeLobbyWelcome)

	header := make([]byte, protocol.LengthSize)
	binary.BigEndian.PutUint32(header, protocol.MaxFrameSize+1)
	if _, err := c.conn.Write(header); err != nil {
		t.Fatalf("发送失败: %v", err)
	}

	c.expectClosed()
}
