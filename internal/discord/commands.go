package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
)

var (
	permAdmin     int64 = discordgo.PermissionAdministrator
	permManage    int64 = discordgo.PermissionManageServer
	permModerate  int64 = discordgo.PermissionModerateMembers
	permKick      int64 = discordgo.PermissionKickMembers
	permBan       int64 = discordgo.PermissionBanMembers
	permMessages  int64 = discordgo.PermissionManageMessages
	permChannels  int64 = discordgo.PermissionManageChannels
	noDM                = false
	minQuantity         = 1.0
	minPrice            = 0.01
	minMessages         = 1.0
	minMuteMinute       = 1.0
	minBanDays          = 0.0
)

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: description,
		Required:    true,
	}
}

func reasonOption(required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "motivo",
		Description: "Motivo",
		Required:    required,
	}
}

func gatewayChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Mercado Pago", Value: payment.MercadoPago},
		{Name: "AbacatePay", Value: payment.AbacatePay},
	}
}

func productFields(required bool) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionString, Name: "nome", Description: "Nome do produto", Required: required},
		{Type: discordgo.ApplicationCommandOptionNumber, Name: "preco", Description: "Preço em reais", Required: required, MinValue: &minPrice},
		{Type: discordgo.ApplicationCommandOptionString, Name: "descricao", Description: "Descrição"},
		{Type: discordgo.ApplicationCommandOptionString, Name: "categoria", Description: "Categoria"},
		{Type: discordgo.ApplicationCommandOptionString, Name: "imagem", Description: "URL da imagem"},
		{Type: discordgo.ApplicationCommandOptionString, Name: "cor", Description: "Cor do embed (#RRGGBB)"},
	}
}

// Commands lists every slash command the bot registers.
func Commands() []*discordgo.ApplicationCommand {
	productID := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "produto",
		Description: "ID do produto",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:         "loja",
			Description:  "Mostra os produtos disponíveis",
			DMPermission: &noDM,
		},
		{
			Name:         "comprar",
			Description:  "Compra um produto",
			DMPermission: &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				productID,
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "quantidade", Description: "Quantidade", MinValue: &minQuantity},
			},
		},
		{
			Name:        "pedido",
			Description: "Consulta um pedido",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "ID do pedido", Required: true},
			},
		},
		{
			Name:                     "vendas",
			Description:              "Resumo das vendas do servidor",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permManage,
		},
		{
			Name:                     "produto",
			Description:              "Gerencia produtos",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permManage,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "criar",
					Description: "Cria um produto",
					Options:     productFields(true),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "editar",
					Description: "Edita um produto",
					Options:     append([]*discordgo.ApplicationCommandOption{productID}, productFields(false)...),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remover",
					Description: "Desativa um produto",
					Options:     []*discordgo.ApplicationCommandOption{productID},
				},
			},
		},
		{
			Name:                     "estoque",
			Description:              "Gerencia o estoque",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permManage,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "adicionar",
					Description: "Adiciona itens, um por linha ou separados por ;",
					Options: []*discordgo.ApplicationCommandOption{
						productID,
						{Type: discordgo.ApplicationCommandOptionString, Name: "itens", Description: "Itens", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "ver",
					Description: "Mostra o estoque de um produto",
					Options:     []*discordgo.ApplicationCommandOption{productID},
				},
			},
		},
		{
			Name:                     "configurar-pagamento",
			Description:              "Configura um gateway de pagamento",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permAdmin,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "gateway", Description: "Gateway", Required: true, Choices: gatewayChoices()},
				{Type: discordgo.ApplicationCommandOptionString, Name: "token", Description: "Token de acesso", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "webhook_url", Description: "URL pública do bot"},
				{Type: discordgo.ApplicationCommandOptionString, Name: "secret", Description: "Segredo de assinatura do webhook"},
			},
		},
		{
			Name:                     "config",
			Description:              "Altera uma configuração do servidor",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permAdmin,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "chave", Description: "Chave", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "valor", Description: "Valor (vazio remove)"},
			},
		},
		{
			Name:         "ticket",
			Description:  "Abre um ticket de suporte",
			DMPermission: &noDM,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "categoria", Description: "Assunto do ticket"},
			},
		},
		{
			Name:         "fechar-ticket",
			Description:  "Solicita o fechamento deste ticket",
			DMPermission: &noDM,
			Options:      []*discordgo.ApplicationCommandOption{reasonOption(false)},
		},
		{
			Name:                     "reabrir-ticket",
			Description:              "Reabre este ticket",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permMessages,
		},
		{
			Name:                     "ticket-stats",
			Description:              "Estatísticas de tickets",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permMessages,
		},
		{
			Name:                     "setup-tickets",
			Description:              "Configura o painel de tickets",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permChannels,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "categoria",
					Description:  "Categoria onde os tickets serão criados",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildCategory},
				},
				{
					Type:         discordgo.ApplicationCommandOptionChannel,
					Name:         "canal_painel",
					Description:  "Canal do painel",
					Required:     true,
					ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
				},
				{Type: discordgo.ApplicationCommandOptionRole, Name: "cargo_suporte", Description: "Cargo da equipe de suporte", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "titulo", Description: "Título do painel"},
			},
		},
		{
			Name:                     "warn",
			Description:              "Adverte um membro",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permModerate,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("Membro"), reasonOption(true)},
		},
		{
			Name:                     "mute",
			Description:              "Silencia um membro",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permModerate,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Membro"),
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "minutos", Description: "Duração em minutos", Required: true, MinValue: &minMuteMinute, MaxValue: 40320},
				reasonOption(false),
			},
		},
		{
			Name:                     "unmute",
			Description:              "Remove o silêncio de um membro",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permModerate,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("Membro"), reasonOption(false)},
		},
		{
			Name:                     "kick",
			Description:              "Expulsa um membro",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permKick,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("Membro"), reasonOption(false)},
		},
		{
			Name:                     "ban",
			Description:              "Bane um membro",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permBan,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("Membro"),
				reasonOption(false),
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "dias", Description: "Dias de mensagens a apagar", MinValue: &minBanDays, MaxValue: 7},
			},
		},
		{
			Name:                     "unban",
			Description:              "Remove o banimento de um usuário",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permBan,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "usuario_id", Description: "ID do usuário", Required: true},
				reasonOption(false),
			},
		},
		{
			Name:                     "clear",
			Description:              "Apaga mensagens recentes",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permMessages,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "quantidade", Description: "Entre 1 e 100", Required: true, MinValue: &minMessages, MaxValue: 100},
			},
		},
		{
			Name:                     "modlogs",
			Description:              "Histórico de moderação de um membro",
			DMPermission:             &noDM,
			DefaultMemberPermissions: &permModerate,
			Options:                  []*discordgo.ApplicationCommandOption{userOption("Membro")},
		},
	}
}
