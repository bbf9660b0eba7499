package discord

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/assist-by/saigon/internal/domain"
	"github.com/assist-by/saigon/internal/notification"
)

const footerText = "Saigon Trading Bot 🤖"

// SendSignal은 시그널 알림을 전송합니다
func (c *Client) SendSignal(signal domain.Signal) error {
	embed := NewEmbed().
		SetTitle(fmt.Sprintf("%s 트레이딩 시그널: %s", emojiForSignal(signal.Type), signal.Symbol)).
		SetDescription(fmt.Sprintf("**타입**: %s (%s)\n**가격**: %s\n**이유**: %s",
			signal.Type, signal.Strength, formatVND(signal.Price), signal.Reason)).
		SetColor(getColorForSignal(signal.Type)).
		SetFooter(footerText).
		SetTimestamp(signal.Timestamp)

	if len(signal.Indicators) > 0 {
		embed.AddField("기술적 지표", formatIndicators(signal.Indicators), false)
	}

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.signalWebhook, msg)
}

// SendError는 에러 알림을 전송합니다
func (c *Client) SendError(err error) error {
	embed := NewEmbed().
		SetTitle("에러 발생").
		SetDescription(fmt.Sprintf("```%v```", err)).
		SetColor(domain.ColorError).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.errorWebhook, msg)
}

// SendInfo는 일반 정보 알림을 전송합니다
func (c *Client) SendInfo(message string) error {
	embed := NewEmbed().
		SetDescription(message).
		SetColor(domain.ColorInfo).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.infoWebhook, msg)
}

// SendTradeInfo는 거래 실행 정보를 전송합니다
func (c *Client) SendTradeInfo(info notification.TradeInfo) error {
	desc := fmt.Sprintf("**방향**: %s\n**수량**: %d주", info.Action, info.Quantity)
	if info.Reason != "" {
		desc += fmt.Sprintf("\n**사유**: %s", info.Reason)
	}

	embed := NewEmbed().
		SetTitle(fmt.Sprintf("거래 실행: %s", info.Symbol)).
		SetDescription(desc).
		SetColor(notification.GetColorForAction(info.Action)).
		AddVNDField("가격", info.Price).
		AddVNDField("손절가", info.StopLoss).
		AddVNDField("목표가", info.TakeProfit)

	if info.Action != "BUY" {
		embed.AddPnLField("실현 손익", info.RealizedPnL)
	}

	embed.AddVNDField("가용 자본", info.Capital).
		AddField("보유 포지션", fmt.Sprintf("%d개", info.PositionCount), true).
		SetFooter(footerText).
		SetTimestamp(time.Now())

	msg := WebhookMessage{
		Embeds: []Embed{*embed},
	}

	return c.sendToWebhook(c.tradeWebhook, msg)
}

// getColorForSignal은 시그널 타입에 따른 색상을 반환합니다
func getColorForSignal(signalType domain.SignalType) int {
	switch signalType {
	case domain.Buy:
		return domain.ColorSuccess
	case domain.Sell:
		return domain.ColorInfo
	case domain.CutLoss:
		return domain.ColorError
	default:
		return domain.ColorWarning
	}
}

// emojiForSignal은 시그널 타입에 따른 이모지를 반환합니다
func emojiForSignal(signalType domain.SignalType) string {
	switch signalType {
	case domain.Buy:
		return "🚀"
	case domain.Sell:
		return "🔻"
	case domain.CutLoss:
		return "🚨"
	default:
		return "⏸️"
	}
}

// formatIndicators는 지표 맵을 코드 블록으로 표시합니다
func formatIndicators(indicators map[string]float64) string {
	names := make([]string, 0, len(indicators))
	for name := range indicators {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("```\n")
	for _, name := range names {
		b.WriteString(fmt.Sprintf("[%s]: %.2f\n", name, indicators[name]))
	}
	b.WriteString("```")
	return b.String()
}
