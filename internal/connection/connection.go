package connection

import (
	"bufio"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"sudooom.sedma.server/internal/protocol"
)

var connIDCounter int64

const writeTimeout = 5 * time.Second

// Connection 表示一个客户端连接
// 读取在连接自己的读协程进行，其余字段仅由 reactor 循环访问
type Connection struct {
	id         int64
	conn       net.Conn
	reader     *bufio.Reader
	name       string // 绑定的展示名，未认证时为空
	logger     *slog.Logger
	retries    int
	retryDelay time.Duration
	closeOnce  sync.Once
	createTime time.Time
}

// New 包装一条 TCP 连接
func New(conn net.Conn, retries int, retryDelay time.Duration, logger *slog.Logger) *Connection {
	id := atomic.AddInt64(&connIDCounter, 1)
	return &Connection{
		id:         id,
		conn:       conn,
		reader:     bufio.NewReader(conn),
		logger:     logger,
		retries:    retries,
		retryDelay: retryDelay,
		createTime: time.Now(),
	}
}

func (c *Connection) ID() int64 {
	return c.id
}

// Name 返回绑定的展示名
func (c *Connection) Name() string {
	return c.name
}

// BindName 绑定展示名，允许重复绑定（改名）
func (c *Connection) BindName(name string) {
	c.name = name
}

func (c *Connection) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// ReadMessage 阻塞读取一帧并解析为上行消息
// 任何读取/解压/解析失败都视同连接断开，由调用方清理
func (c *Connection) ReadMessage() (*protocol.ClientMessage, error) {
	payload, err := protocol.ReadFrame(c.reader)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeClientMessage(payload)
}

// Send 编码并发送一条下行消息
// 失败时做有限次重试，全部失败返回 false，调用方应将连接视为已死
func (c *Connection) Send(v any) bool {
	frame, err := protocol.EncodeFrame(v)
	if err != nil {
		c.logger.Error("Failed to encode frame", "conn_id", c.id, "error", err)
		return false
	}

	for attempt := 0; ; attempt++ {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err = c.conn.Write(frame); err == nil {
			return true
		}
		if attempt >= c.retries {
			break
		}
		time.Sleep(c.retryDelay)
	}

	c.logger.Warn("Send failed", "conn_id", c.id, "name", c.name, "error", err)
	return false
}

func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

func (c *Connection) CreateTime() time.Time {
	return c.createTime
}
