package discord

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/service"
)

const (
	colorSuccess = 0x00ff00
	colorError   = 0xff0000
	colorInfo    = 0x0099ff
	colorWarning = 0xffaa00
)

var kindColors = map[service.NotificationKind]int{
	service.KindDelivery:      colorSuccess,
	service.KindSale:          colorSuccess,
	service.KindPaymentFailed: colorError,
	service.KindCancelled:     colorError,
	service.KindExpired:       colorWarning,
	service.KindUnfulfilled:   colorWarning,
	service.KindAlert:         colorWarning,
	service.KindModeration:    colorWarning,
}

// ParseColor turns "#RRGGBB" into an embed color, falling back to the
// default blue for anything else.
func ParseColor(hex string) int {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(s) != 6 {
		return colorInfo
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return colorInfo
	}
	return int(v)
}

func timestamp() string {
	return time.Now().Format(time.RFC3339)
}

func NotificationEmbed(n *service.Notification) *discordgo.MessageEmbed {
	color, ok := kindColors[n.Kind]
	if !ok {
		color = colorInfo
	}
	embed := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Description,
		Color:       color,
		Timestamp:   timestamp(),
	}
	for _, f := range n.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return embed
}

func successEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "✅ " + title, Description: description, Color: colorSuccess, Timestamp: timestamp()}
}

func errorEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "❌ " + title, Description: description, Color: colorError, Timestamp: timestamp()}
}

func infoEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "ℹ️ " + title, Description: description, Color: colorInfo, Timestamp: timestamp()}
}

func warningEmbed(title, description string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "⚠️ " + title, Description: description, Color: colorWarning, Timestamp: timestamp()}
}

func ProductEmbed(p *models.ProductListing) *discordgo.MessageEmbed {
	description := p.Description
	if description == "" {
		description = "Sem descrição disponível"
	}
	category := p.Category
	if category == "" {
		category = "Geral"
	}
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s (#%d)", p.Name, p.ID),
		Description: description,
		Color:       ParseColor(p.EmbedColor),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💰 Preço", Value: service.FormatBRL(p.Price), Inline: true},
			{Name: "📦 Estoque", Value: fmt.Sprintf("%d disponível", p.StockCount), Inline: true},
			{Name: "🏷️ Categoria", Value: category, Inline: true},
		},
		Timestamp: timestamp(),
	}
	if p.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: p.ImageURL}
	}
	return embed
}

var statusLabels = map[string]string{
	models.OrderStatusPending:     "⏳ Aguardando pagamento",
	models.OrderStatusDelivered:   "✅ Entregue",
	models.OrderStatusCompleted:   "✅ Concluído",
	models.OrderStatusUnfulfilled: "⚠️ Pago, aguardando entrega manual",
	models.OrderStatusCancelled:   "❌ Cancelado",
}

func statusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

// OrderEmbed summarises an order; expiry is shown only while it is pending.
func OrderEmbed(d *models.OrderDraft) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: "🛒 Pedido " + d.OrderID,
		Color: colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Produto", Value: d.ProductName, Inline: true},
			{Name: "Quantidade", Value: strconv.Itoa(d.Quantity), Inline: true},
			{Name: "Total", Value: service.FormatBRL(d.TotalAmount), Inline: true},
			{Name: "Status", Value: statusLabel(d.Status), Inline: false},
		},
		Timestamp: timestamp(),
	}
	if d.Status == models.OrderStatusPending && !d.ExpiresAt.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Expira",
			Value: fmt.Sprintf("<t:%d:R>", d.ExpiresAt.Unix()),
		})
	}
	return embed
}

// PixEmbed shows the copy-and-paste code of a PIX payment.
func PixEmbed(res *service.PaymentResult) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "💠 Pagamento PIX",
		Description: "Copie o código abaixo e pague no app do seu banco. A entrega é automática após a confirmação.",
		Color:       colorInfo,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Pedido", Value: res.Order.ID, Inline: true},
			{Name: "Total", Value: service.FormatBRL(res.Order.TotalAmount), Inline: true},
			{Name: "Código copia e cola", Value: "```" + res.Pix.CopyPaste + "```"},
		},
		Timestamp: timestamp(),
	}
	if !res.Pix.ExpiresAt.IsZero() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Válido até",
			Value: fmt.Sprintf("<t:%d:f>", res.Pix.ExpiresAt.Unix()),
		})
	}
	return embed
}

func orderButtons(orderID string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "💠 Pagar com PIX", Style: discordgo.SuccessButton, CustomID: PayButtonID("pix", orderID)},
			discordgo.Button{Label: "Cancelar", Style: discordgo.DangerButton, CustomID: CancelOrderButtonID(orderID)},
		}},
	}
}

func closeButtons() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Confirmar", Style: discordgo.DangerButton, CustomID: ActionConfirmClose},
			discordgo.Button{Label: "Cancelar", Style: discordgo.SecondaryButton, CustomID: ActionCancelClose},
		}},
	}
}

func ratingButtons() []discordgo.MessageComponent {
	row := discordgo.ActionsRow{}
	for n := 1; n <= 5; n++ {
		row.Components = append(row.Components, discordgo.Button{
			Label:    strings.Repeat("⭐", n),
			Style:    discordgo.SecondaryButton,
			CustomID: RateButtonID(n),
		})
	}
	return []discordgo.MessageComponent{row}
}

func ticketPanelButtons() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "🎫 Abrir Ticket", Style: discordgo.PrimaryButton, CustomID: ActionCreateTicket},
		}},
	}
}
