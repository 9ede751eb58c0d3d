package game

import "strconv"

// 花色
const (
	SuitHearts   = "♥"
	SuitDiamonds = "♦"
	SuitClubs    = "♣"
	SuitSpades   = "♠"
)

// Suits 全部四种花色
var Suits = []string{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

const (
	// MinValue / MaxValue 牌面值范围（14 为 A）
	MinValue = 7
	MaxValue = 14

	// SevenValue 出 7 让下家摸三张
	SevenValue = 7

	// WildValue 万能牌值，可压任何牌
	WildValue = 12

	// AceValue 出 A 跳过一名玩家
	AceValue = 14

	// DeckSize 整副牌张数 (4 花色 x 8 牌面)
	DeckSize = 32

	// HandSize 每人起手牌数
	HandSize = 5
)

// Card 一张牌，按 (花色, 牌面值) 区分，无实例状态
type Card struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
	Suit  string `json:"suit"`
}

// NewCard 创建一张牌，Name 形如 "12♥"
func NewCard(value int, suit string) Card {
	return Card{
		Name:  strconv.Itoa(value) + suit,
		Value: value,
		Suit:  suit,
	}
}

// Equal 按 (花色, 牌面值) 判等
func (c Card) Equal(other Card) bool {
	return c.Suit == other.Suit && c.Value == other.Value
}
