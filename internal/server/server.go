// Package server 实现单线程 reactor：所有注册表与对局状态
// 只在 run 循环这一个 goroutine 上被修改，连接的读协程仅负责
// 解帧并把事件汇入事件通道。
package server

import (
	"context"
	"log/slog"
	"net"
	"sync"

	"time"

	"sudooom.sedma.server/internal/config"
	"sudooom.sedma.server/internal/connection"
	"sudooom.sedma.server/internal/handler"
	"sudooom.sedma.server/internal/lobby"
	"sudooom.sedma.server/internal/protocol"
	"sudooom.sedma.server/internal/room"
)

type eventKind int

const (
	eventConnect eventKind = iota
	eventMessage
	eventDisconnect
)

// event 汇入 reactor 循环的单个事件
type event struct {
	kind eventKind
	conn *connection.Connection
	msg  *protocol.ClientMessage // 仅 eventMessage 时非 nil
}

// Server 多房间游戏服务器
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	listener net.Listener

	connMgr *connection.Manager
	lobby   *lobby.LobbyManager
	rooms   *room.RoomManager
	handler *handler.MessageHandler

	events chan event
	done   chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// New 组装服务器
func New(cfg *config.Config, logger *slog.Logger) *Server {
	connMgr := connection.NewManager()
	lobbyMgr := lobby.NewLobbyManager()
	roomMgr := room.NewRoomManager(cfg.Server.MaxRooms, cfg.Server.MaxPlayersPerRoom)
	msgHandler := handler.New(lobbyMgr, roomMgr, connMgr, cfg.Server.MaxRooms, cfg.Server.MaxPlayersPerRoom)

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		connMgr: connMgr,
		lobby:   lobbyMgr,
		rooms:   roomMgr,
		handler: msgHandler,
		events:  make(chan event, 256),
		done:    make(chan struct{}),
	}
	msgHandler.SetServer(s)
	return s
}

// Start 监听端口并驱动 reactor 循环，ctx 取消后优雅退出
// 绑定失败是唯一的致命启动错误
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return err
	}
	s.Serve(ctx, ln)
	return nil
}

// Serve 在给定的监听 socket 上驱动 reactor 循环，直到 ctx 取消
func (s *Server) Serve(ctx context.Context, ln net.Listener) {
	s.listener = ln
	s.logger.Info("Server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop()

	s.run(ctx)
}

// acceptLoop 接受新连接并汇入事件通道
func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				s.logger.Error("Accept failed", "error", err)
				return
			}
		}

		c := connection.New(conn, s.cfg.Server.SendRetries, s.cfg.Server.RetryDelay, s.logger)
		s.push(event{kind: eventConnect, conn: c})
	}
}

// readLoop 持续解帧，读失败即视为断开
func (s *Server) readLoop(c *connection.Connection) {
	defer s.wg.Done()
	for {
		msg, err := c.ReadMessage()
		if err != nil {
			s.push(event{kind: eventDisconnect, conn: c})
			return
		}
		if !s.push(event{kind: eventMessage, conn: c, msg: msg}) {
			return
		}
	}
}

func (s *Server) push(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// run reactor 主循环：事件分发 + 周期性巡检
// 这是唯一修改注册表/房间/对局状态的 goroutine
func (s *Server) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Server.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case ev := <-s.events:
			switch ev.kind {
			case eventConnect:
				s.handleConnect(ev.conn)
			case eventMessage:
				s.dispatch(ev.conn, ev.msg)
			case eventDisconnect:
				s.RemoveClient(ev.conn)
			}
		case <-ticker.C:
			s.housekeeping()
		}
	}
}

// handleConnect 新连接进入大厅并收到欢迎消息
// 欢迎消息发出后才启动读协程，保证它先于任何消息处理
func (s *Server) handleConnect(c *connection.Connection) {
	s.connMgr.Add(c)
	s.lobby.Add(c)
	s.logger.Info("New client connected", "conn_id", c.ID(), "addr", c.RemoteAddr())

	c.Send(&protocol.WelcomeMessage{
		T:   protocol.MsgTypeLobbyWelcome,
		Msg: "Welcome! Enter your name to continue.",
	})

	s.wg.Add(1)
	go s.readLoop(c)
}

// dispatch 按连接归属分发消息
func (s *Server) dispatch(c *connection.Connection, msg *protocol.ClientMessage) {
	if s.lobby.Contains(c) {
		s.handler.HandleLobbyMessage(c, msg)
	} else if s.rooms.Contains(c) {
		s.handler.HandleRoomMessage(c, msg)
	}
}

// RemoveClient 连接断开的完整清理
// 与显式 leave_room 走同一条房间退出路径，可重入
func (s *Server) RemoveClient(c *connection.Connection) {
	if s.connMgr.Get(c.ID()) == nil {
		return
	}

	name := c.Name()
	if name == "" {
		name = "Unknown"
	}
	s.logger.Info("Client disconnected", "name", name, "addr", c.RemoteAddr())

	s.connMgr.Remove(c.ID())
	if s.rooms.Contains(c) {
		s.handler.LeaveRoom(c)
	}
	s.lobby.Remove(c)
	c.Close()

	failed := s.lobby.Broadcast(&protocol.RoomListUpdateMessage{
		T:     protocol.MsgTypeRoomListUpdate,
		Rooms: s.rooms.AvailableRoomsInfo(),
	}, nil)
	for _, conn := range failed {
		s.RemoveClient(conn)
	}
}

// housekeeping 对进行中的对局做周期性巡检：
// 当前回合座位手牌为空且对局未结束时强制顺延回合；
// 对局结束则结算；房间腾空则回收。
func (s *Server) housekeeping() {
	for _, roomID := range s.rooms.RoomIDs() {
		r, ok := s.rooms.Get(roomID)
		if !ok || r.Game == nil {
			continue
		}

		current := r.Game.CurrentPlayer
		if len(r.Game.Players[current]) == 0 && !r.Game.CheckGameOver() {
			s.logger.Info("Auto-skipping turn", "slot", current, "roomName", r.RoomName)
			r.Game.NextTurn()
			s.handler.BroadcastGameState(roomID)
		}

		if r.Game.CheckGameOver() {
			s.rooms.EndGame(roomID)
		}

		if r.IsEmpty() {
			s.lobby.ClearRoomCreated(r.CreatorName)
			s.logger.Info("Removing empty room", "roomName", r.RoomName)
			s.rooms.Remove(roomID)
		}
	}
}

// shutdown 关闭所有连接与监听 socket
func (s *Server) shutdown() {
	s.closeOnce.Do(func() {
		s.logger.Info("Shutting down server")
		close(s.done)
		for _, c := range s.connMgr.All() {
			c.Close()
		}
		if s.listener != nil {
			s.listener.Close()
		}
	})
	s.wg.Wait()
	s.logger.Info("Server stopped")
}
