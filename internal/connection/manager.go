package connection

// Manager 管理所有连接
// 仅由 reactor 循环访问，单一所有者，不需要锁
type Manager struct {
	connections map[int64]*Connection
}

func NewManager() *Manager {
	return &Manager{
		connections: make(map[int64]*Connection),
	}
}

func (m *Manager) Add(conn *Connection) {
	m.connections[conn.ID()] = conn
}

func (m *Manager) Remove(connID int64) {
	delete(m.connections, connID)
}

func (m *Manager) Get(connID int64) *Connection {
	return m.connections[connID]
}

func (m *Manager) Count() int {
	return len(m.connections)
}

// NameTaken 检查展示名是否已被任何连接占用
func (m *Manager) NameTaken(name string) bool {
	for _, conn := range m.connections {
		if conn.Name() == name {
			return true
		}
	}
	return false
}

// All 返回所有连接（用于关闭时清理）
func (m *Manager) All() []*Connection {
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	return conns
}
