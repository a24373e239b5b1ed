package discord

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
)

func (b *Bot) handleTicket(ctx context.Context, in *invocation) (*reply, error) {
	return b.openTicket(ctx, in, in.opts.str("categoria"))
}

func (b *Bot) handleCreateTicketButton(ctx context.Context, in *invocation) (*reply, error) {
	return b.openTicket(ctx, in, "")
}

func (b *Bot) openTicket(ctx context.Context, in *invocation, category string) (*reply, error) {
	if err := requireGuild(in); err != nil {
		return nil, err
	}
	ticket, err := b.deps.Tickets.CreateTicket(ctx, in.guildID, in.userID, in.userName, category)
	if err != nil {
		return nil, err
	}

	welcome := infoEmbed("Ticket de Suporte",
		"Descreva sua dúvida ou problema e aguarde a equipe de suporte.\nUse /fechar-ticket quando terminar.")
	welcome.Fields = []*discordgo.MessageEmbedField{
		{Name: "Categoria", Value: ticket.Category, Inline: true},
		{Name: "Prioridade", Value: ticket.Priority, Inline: true},
	}
	if err := b.post(ctx, ticket.ChannelID, "<@"+in.userID+">", welcome, nil); err != nil {
		b.logger.Warn("Failed to post ticket greeting", zap.String("channel_id", ticket.ChannelID), zap.Error(err))
	}
	return embedReply(successEmbed("Ticket criado", "Seu ticket foi aberto em <#"+ticket.ChannelID+">.")), nil
}

func (b *Bot) handleCloseTicket(ctx context.Context, in *invocation) (*reply, error) {
	p, err := b.deps.Tickets.ProposeClose(ctx, in.channelID, in.userID, in.opts.str("motivo"))
	if err != nil {
		return nil, err
	}
	prompt := warningEmbed("Fechar ticket?", fmt.Sprintf("<@%s> solicitou o fechamento.\n**Motivo:** %s", p.ProposedBy, p.Reason))
	if err := b.post(ctx, in.channelID, "", prompt, closeButtons()); err != nil {
		return nil, err
	}
	return embedReply(infoEmbed("Solicitação enviada", "Confirme o fechamento no canal.")), nil
}

func (b *Bot) handleConfirmCloseButton(ctx context.Context, in *invocation) (*reply, error) {
	ticket, err := b.deps.Tickets.ConfirmClose(ctx, in.channelID, in.userID)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("Ticket fechado por <@%s>.", in.userID)
	if b.opts.TicketRetention > 0 {
		desc += fmt.Sprintf(" O canal será apagado <t:%d:R>.", ticket.DeleteAfter(b.opts.TicketRetention).Unix())
	}
	desc += "\nComo foi o atendimento?"
	if err := b.post(ctx, in.channelID, "<@"+ticket.UserID+">", infoEmbed("Ticket fechado", desc), ratingButtons()); err != nil {
		b.logger.Warn("Failed to post rating prompt", zap.String("channel_id", in.channelID), zap.Error(err))
	}
	return embedReply(successEmbed("Ticket fechado", "O ticket foi fechado.")), nil
}

func (b *Bot) handleCancelCloseButton(ctx context.Context, in *invocation) (*reply, error) {
	if err := b.deps.Tickets.CancelClose(ctx, in.channelID); err != nil {
		return nil, err
	}
	return embedReply(infoEmbed("Fechamento cancelado", "O ticket continua aberto.")), nil
}

func (b *Bot) handleRateButton(ctx context.Context, in *invocation) (*reply, error) {
	if err := b.deps.Tickets.RateTicket(ctx, in.channelID, in.userID, in.component.Rating, ""); err != nil {
		return nil, err
	}
	return embedReply(successEmbed("Obrigado!", fmt.Sprintf("Você avaliou o atendimento com %d estrela(s).", in.component.Rating))), nil
}

func (b *Bot) handleReopenTicket(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionManageMessages); err != nil {
		return nil, err
	}
	ticket, err := b.deps.Tickets.ReopenTicket(ctx, in.channelID, in.userID)
	if err != nil {
		return nil, err
	}
	notice := successEmbed("Ticket reaberto", fmt.Sprintf("Reaberto por <@%s>.", in.userID))
	if err := b.post(ctx, in.channelID, "<@"+ticket.UserID+">", notice, nil); err != nil {
		b.logger.Warn("Failed to post reopen notice", zap.String("channel_id", in.channelID), zap.Error(err))
	}
	return embedReply(successEmbed("Ticket reaberto", "O dono do ticket pode escrever novamente.")), nil
}

func (b *Bot) handleTicketStats(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionManageMessages); err != nil {
		return nil, err
	}
	stats, err := b.deps.Tickets.TicketStats(ctx, in.guildID)
	if err != nil {
		return nil, err
	}
	rating := "Sem avaliações"
	if stats.Ratings > 0 {
		rating = fmt.Sprintf("%.1f/5 (%d avaliações)", stats.AverageRating, stats.Ratings)
	}
	embed := infoEmbed("Estatísticas de Tickets", "")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Abertos", Value: strconv.Itoa(stats.Open), Inline: true},
		{Name: "Fechados", Value: strconv.Itoa(stats.Closed), Inline: true},
		{Name: "Avaliação média", Value: rating, Inline: true},
	}
	return embedReply(embed), nil
}

// handleSetupTickets saves where tickets are created and posts the panel
// members use to open one.
func (b *Bot) handleSetupTickets(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionManageChannels); err != nil {
		return nil, err
	}
	panelChannel := in.opts.id("canal_painel")
	err := b.deps.Config.SetMany(ctx, in.guildID, map[string]string{
		models.ConfigTicketCategory:    in.opts.id("categoria"),
		models.ConfigTicketSupportRole: in.opts.id("cargo_suporte"),
	})
	if err != nil {
		return nil, err
	}

	title := in.opts.str("titulo")
	if title == "" {
		title = "Suporte"
	}
	panel := &discordgo.MessageEmbed{
		Title:       "🎫 " + title,
		Description: "Precisa de ajuda? Clique no botão abaixo para abrir um ticket privado com a equipe.",
		Color:       colorInfo,
		Timestamp:   timestamp(),
	}
	if err := b.post(ctx, panelChannel, "", panel, ticketPanelButtons()); err != nil {
		return nil, fmt.Errorf("failed to post ticket panel: %w", err)
	}
	return embedReply(successEmbed("Tickets configurados", "Painel publicado em <#"+panelChannel+">.")), nil
}
