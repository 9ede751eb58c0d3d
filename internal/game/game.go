package game

import (
	"math/rand"
	"time"

	"sudooom.sedma.server/internal/protocol"
)

// Game 一个房间的对局状态
// 手牌、摸牌堆、弃牌堆均按座位索引对齐，仅由 reactor 循环访问
//
// 牌堆约定：
//   - DrawPile 头部 (索引 0) 为下一张被摸的牌
//   - DiscardPile 尾部为当前生效牌，新出的牌必须与之匹配
type Game struct {
	NumPlayers    int
	Players       [][]Card // 各座位手牌
	DrawPile      []Card
	DiscardPile   []Card
	CurrentPlayer int

	rand *rand.Rand
}

// NewGame 创建对局，玩家数下限为 2
func NewGame(numPlayers int) *Game {
	if numPlayers < 2 {
		numPlayers = 2
	}
	return &Game{
		NumPlayers: numPlayers,
		Players:    make([][]Card, numPlayers),
		rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateDeck 生成并洗出 32 张牌作为摸牌堆
func (g *Game) CreateDeck() {
	deck := make([]Card, 0, DeckSize)
	for _, suit := range Suits {
		for value := MinValue; value <= MaxValue; value++ {
			deck = append(deck, NewCard(value, suit))
		}
	}
	g.rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
	g.DrawPile = deck
}

// DealCards 轮转发牌，每人 5 张，再翻一张作为起始生效牌
// 摸牌堆耗尽时静默少发（正常配置下不会触发）
func (g *Game) DealCards() {
	for round := 0; round < HandSize; round++ {
		for i := range g.Players {
			if len(g.DrawPile) == 0 {
				break
			}
			g.Players[i] = append(g.Players[i], g.DrawPile[0])
			g.DrawPile = g.DrawPile[1:]
		}
	}
	if len(g.DrawPile) > 0 {
		g.DiscardPile = append(g.DiscardPile, g.DrawPile[0])
		g.DrawPile = g.DrawPile[1:]
	}
}

// PlayCard 指定座位打出手牌中的一张
// 合法性：弃牌堆为空，或花色/牌面值与生效牌一致，或为万能牌
// 失败时不改变任何状态
func (g *Game) PlayCard(player, cardIndex int) error {
	if g.CheckGameOver() {
		return ErrGameOver
	}
	if player < 0 || player >= g.NumPlayers {
		return ErrInvalidPlayer
	}
	hand := g.Players[player]
	if cardIndex < 0 || cardIndex >= len(hand) {
		return ErrInvalidCard
	}

	card := hand[cardIndex]
	if len(g.DiscardPile) > 0 {
		top := g.DiscardPile[len(g.DiscardPile)-1]
		if card.Suit != top.Suit && card.Value != top.Value && card.Value != WildValue {
			return ErrCardMismatch
		}
	}

	// 手牌移入弃牌堆尾部，成为新的生效牌
	g.Players[player] = append(hand[:cardIndex], hand[cardIndex+1:]...)
	g.DiscardPile = append(g.DiscardPile, card)

	switch card.Value {
	case SevenValue:
		// 下一有牌座位摸三张，途中摸牌堆耗尽则回收弃牌堆补充
		next := g.nextActivePlayer()
		for i := 0; i < 3; i++ {
			if len(g.DrawPile) == 0 {
				g.refreshDrawPile()
			}
			if len(g.DrawPile) == 0 {
				break
			}
			g.Players[next] = append(g.Players[next], g.DrawPile[0])
			g.DrawPile = g.DrawPile[1:]
		}
		g.CurrentPlayer = next
	case AceValue:
		// 跳过一名玩家
		g.CurrentPlayer = g.nextActivePlayer()
	}

	if len(g.DrawPile) == 0 && card.Value != SevenValue {
		g.refreshDrawPile()
	}

	g.NextTurn()
	return nil
}

// DrawCard 指定座位摸一张牌
// 不负责推进回合，调用方在成功后需要显式调用 NextTurn
func (g *Game) DrawCard(player int) error {
	if g.CheckGameOver() {
		return ErrGameOver
	}
	if player < 0 || player >= g.NumPlayers {
		return ErrInvalidPlayer
	}
	if len(g.DrawPile) == 0 {
		g.refreshDrawPile()
	}
	if len(g.DrawPile) == 0 {
		return ErrDrawPileEmpty
	}
	g.Players[player] = append(g.Players[player], g.DrawPile[0])
	g.DrawPile = g.DrawPile[1:]
	return nil
}

// refreshDrawPile 保留生效牌，把其余弃牌洗成新的摸牌堆
// 弃牌堆不足 2 张时不做任何改动，这是可容忍的耗尽态
func (g *Game) refreshDrawPile() {
	if len(g.DiscardPile) <= 1 {
		return
	}
	top := g.DiscardPile[len(g.DiscardPile)-1]
	rest := make([]Card, len(g.DiscardPile)-1)
	copy(rest, g.DiscardPile[:len(g.DiscardPile)-1])
	g.rand.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	g.DrawPile = rest
	g.DiscardPile = []Card{top}
}

// nextActivePlayer 从当前座位起环形查找下一个有手牌的座位
// 所有座位都空时返回紧邻的下一座位（仅对局结束时出现）
func (g *Game) nextActivePlayer() int {
	next := (g.CurrentPlayer + 1) % g.NumPlayers
	for i := 0; i < g.NumPlayers; i++ {
		if len(g.Players[next]) > 0 {
			return next
		}
		next = (next + 1) % g.NumPlayers
	}
	return next
}

// NextTurn 推进到下一个有手牌的座位
func (g *Game) NextTurn() {
	g.CurrentPlayer = g.nextActivePlayer()
}

// CheckGameOver 剩余有手牌的座位不超过 1 个即对局结束
func (g *Game) CheckGameOver() bool {
	active := 0
	for _, hand := range g.Players {
		if len(hand) > 0 {
			active++
		}
	}
	return active <= 1
}

// Serialize 生成对局状态快照
func (g *Game) Serialize() *protocol.GameState {
	players := make([][]protocol.CardInfo, g.NumPlayers)
	for i, hand := range g.Players {
		players[i] = cardInfos(hand)
	}
	return &protocol.GameState{
		NumPlayers:    g.NumPlayers,
		Players:       players,
		DrawPileCount: len(g.DrawPile),
		DiscardPile:   cardInfos(g.DiscardPile),
		CurrentPlayer: g.CurrentPlayer,
	}
}

func cardInfos(cards []Card) []protocol.CardInfo {
	infos := make([]protocol.CardInfo, len(cards))
	for i, c := range cards {
		infos[i] = protocol.CardInfo{Name: c.Name, Value: c.Value, Suit: c.Suit}
	}
	return infos
}
