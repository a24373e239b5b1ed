package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/service"
)

func (in *invocation) modAction() service.ModAction {
	return service.ModAction{
		GuildID:     in.guildID,
		TargetID:    in.opts.id("usuario"),
		ModeratorID: in.userID,
		Reason:      in.opts.str("motivo"),
	}
}

func (b *Bot) handleWarn(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionModerateMembers); err != nil {
		return nil, err
	}
	a := in.modAction()
	count, escalated, err := b.deps.Moderation.Warn(ctx, a)
	if err != nil {
		return nil, err
	}
	desc := fmt.Sprintf("<@%s> foi advertido. Total de advertências: %d.", a.TargetID, count)
	if escalated {
		desc += "\nLimite atingido: o membro foi silenciado automaticamente."
	}
	return embedReply(successEmbed("Advertência registrada", desc)), nil
}

func (b *Bot) handleMute(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionModerateMembers); err != nil {
		return nil, err
	}
	a := in.modAction()
	minutes := in.opts.integer("minutos", 0)
	a.Duration = time.Duration(minutes) * time.Minute
	if err := b.deps.Moderation.Mute(ctx, a); err != nil {
		return nil, err
	}
	return embedReply(successEmbed("Membro silenciado", fmt.Sprintf("<@%s> foi silenciado por %d minuto(s).", a.TargetID, minutes))), nil
}

func (b *Bot) handleUnmute(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionModerateMembers); err != nil {
		return nil, err
	}
	a := in.modAction()
	if err := b.deps.Moderation.Unmute(ctx, a); err != nil {
		return nil, err
	}
	return embedReply(successEmbed("Silêncio removido", fmt.Sprintf("<@%s> pode falar novamente.", a.TargetID))), nil
}

func (b *Bot) handleKick(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionKickMembers); err != nil {
		return nil, err
	}
	a := in.modAction()
	if err := b.deps.Moderation.Kick(ctx, a); err != nil {
		return nil, err
	}
	return embedReply(successEmbed("Membro expulso", fmt.Sprintf("<@%s> foi expulso.", a.TargetID))), nil
}

func (b *Bot) handleBan(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionBanMembers); err != nil {
		return nil, err
	}
	a := in.modAction()
	if err := b.deps.Moderation.Ban(ctx, a, in.opts.integer("dias", 0)); err != nil {
		return nil, err
	}
	return embedReply(successEmbed("Membro banido", fmt.Sprintf("<@%s> foi banido.", a.TargetID))), nil
}

func (b *Bot) handleUnban(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionBanMembers); err != nil {
		return nil, err
	}
	a := in.modAction()
	a.TargetID = strings.TrimSpace(in.opts.str("usuario_id"))
	if err := b.deps.Moderation.Unban(ctx, a); err != nil {
		return nil, err
	}
	return embedReply(successEmbed("Banimento removido", fmt.Sprintf("<@%s> pode entrar novamente.", a.TargetID))), nil
}

func (b *Bot) handleClear(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionManageMessages); err != nil {
		return nil, err
	}
	n, err := b.deps.Moderation.Clear(ctx, in.guildID, in.channelID, in.userID, in.opts.integer("quantidade", 0))
	if err != nil {
		return nil, err
	}
	return embedReply(successEmbed("Mensagens apagadas", fmt.Sprintf("%d mensagens removidas.", n))), nil
}

var actionLabels = map[string]string{
	models.ModActionWarn:   "⚠️ Advertência",
	models.ModActionMute:   "🔇 Silenciado",
	models.ModActionUnmute: "🔊 Silêncio removido",
	models.ModActionKick:   "👢 Expulso",
	models.ModActionBan:    "🔨 Banido",
	models.ModActionUnban:  "✅ Desbanido",
	models.ModActionClear:  "🧹 Mensagens apagadas",
}

func (b *Bot) handleModLogs(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionModerateMembers); err != nil {
		return nil, err
	}
	target := in.opts.id("usuario")
	logs, err := b.deps.Moderation.History(ctx, in.guildID, target, 10)
	if err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return embedReply(infoEmbed("Histórico de moderação", fmt.Sprintf("<@%s> não possui registros.", target))), nil
	}

	embed := infoEmbed("Histórico de moderação", fmt.Sprintf("Últimos registros de <@%s>", target))
	for _, l := range logs {
		label, ok := actionLabels[l.Action]
		if !ok {
			label = l.Action
		}
		value := fmt.Sprintf("%s\npor <@%s> <t:%d:R>", l.Reason, l.ModeratorID, l.CreatedAt.Unix())
		if l.DurationSeconds > 0 {
			value += fmt.Sprintf("\nDuração: %s", time.Duration(l.DurationSeconds)*time.Second)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: label, Value: value})
	}
	return embedReply(embed), nil
}
