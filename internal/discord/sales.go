package discord

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/service"
)

// A message carries at most ten embeds.
const maxEmbeds = 10

func (b *Bot) handleShop(ctx context.Context, in *invocation) (*reply, error) {
	if err := requireGuild(in); err != nil {
		return nil, err
	}
	products, err := b.deps.Catalog.ListProducts(ctx, in.guildID, true)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return embedReply(infoEmbed("Loja", "Nenhum produto disponível no momento.")), nil
	}

	r := &reply{}
	for i := range products {
		if len(r.embeds) == maxEmbeds {
			break
		}
		r.embeds = append(r.embeds, ProductEmbed(&products[i]))
	}
	return r, nil
}

func (b *Bot) handleBuy(ctx context.Context, in *invocation) (*reply, error) {
	if err := requireGuild(in); err != nil {
		return nil, err
	}
	order, err := b.deps.Orders.CreateOrder(ctx, &service.CreateOrderRequest{
		GuildID:   in.guildID,
		ProductID: int64(in.opts.integer("produto", 0)),
		Quantity:  in.opts.integer("quantidade", 1),
		UserID:    in.userID,
		UserName:  in.userName,
	})
	if err != nil {
		return nil, err
	}

	draft, err := b.deps.Orders.LookupOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return &reply{
		embeds:     []*discordgo.MessageEmbed{OrderEmbed(draft)},
		components: orderButtons(order.ID),
	}, nil
}

func (b *Bot) handleOrder(ctx context.Context, in *invocation) (*reply, error) {
	draft, err := b.deps.Orders.LookupOrder(ctx, strings.TrimSpace(in.opts.str("id")))
	if err != nil {
		return nil, err
	}
	owner := draft.UserID == in.userID
	if !owner && !hasPermission(in.perms, discordgo.PermissionManageServer) {
		return nil, service.ErrNotOrderOwner
	}

	r := embedReply(OrderEmbed(draft))
	if owner && draft.Status == models.OrderStatusPending {
		r.components = orderButtons(draft.OrderID)
	}
	return r, nil
}

func (b *Bot) handleSales(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionManageServer); err != nil {
		return nil, err
	}
	stats, err := b.deps.Orders.OrderStats(ctx, in.guildID)
	if err != nil {
		return nil, err
	}
	embed := infoEmbed("Resumo de Vendas", "")
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Pedidos", Value: strconv.Itoa(stats.Total), Inline: true},
		{Name: "Pendentes", Value: strconv.Itoa(stats.Pending), Inline: true},
		{Name: "Entregues", Value: strconv.Itoa(stats.Delivered + stats.Completed), Inline: true},
		{Name: "Cancelados", Value: strconv.Itoa(stats.Cancelled), Inline: true},
		{Name: "Aguardando entrega manual", Value: strconv.Itoa(stats.Unfulfilled), Inline: true},
		{Name: "Reembolsos pendentes", Value: strconv.Itoa(stats.RefundDue), Inline: true},
		{Name: "Faturamento", Value: service.FormatBRL(stats.Revenue), Inline: true},
	}
	return embedReply(embed), nil
}

func (b *Bot) handleProduct(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionManageServer); err != nil {
		return nil, err
	}

	switch in.sub {
	case "criar":
		price, _ := in.opts.number("preco")
		p, err := b.deps.Catalog.CreateProduct(ctx, service.ProductInput{
			GuildID:     in.guildID,
			Name:        in.opts.str("nome"),
			Description: in.opts.str("descricao"),
			Price:       decimal.NewFromFloat(price),
			Category:    in.opts.str("categoria"),
			ImageURL:    in.opts.str("imagem"),
			EmbedColor:  in.opts.str("cor"),
			CreatedBy:   in.userID,
		})
		if err != nil {
			return nil, err
		}
		return embedReply(successEmbed("Produto criado", fmt.Sprintf("**%s** (#%d) por %s. Adicione estoque com /estoque adicionar.",
			p.Name, p.ID, service.FormatBRL(p.Price)))), nil

	case "editar":
		update := service.ProductUpdate{
			Name:        in.opts.optional("nome"),
			Description: in.opts.optional("descricao"),
			Category:    in.opts.optional("categoria"),
			ImageURL:    in.opts.optional("imagem"),
			EmbedColor:  in.opts.optional("cor"),
		}
		if v, ok := in.opts.number("preco"); ok {
			price := decimal.NewFromFloat(v)
			update.Price = &price
		}
		p, err := b.deps.Catalog.UpdateProduct(ctx, int64(in.opts.integer("produto", 0)), update)
		if err != nil {
			return nil, err
		}
		return embedReply(successEmbed("Produto atualizado", fmt.Sprintf("**%s** (#%d)", p.Name, p.ID))), nil

	case "remover":
		id := int64(in.opts.integer("produto", 0))
		if err := b.deps.Catalog.DeactivateProduct(ctx, id); err != nil {
			return nil, err
		}
		return embedReply(successEmbed("Produto removido", fmt.Sprintf("O produto #%d não aparece mais na loja.", id))), nil
	}
	return nil, fmt.Errorf("unknown subcommand %q", in.sub)
}

func (b *Bot) handleStock(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionManageServer); err != nil {
		return nil, err
	}
	id := int64(in.opts.integer("produto", 0))
	if id <= 0 {
		return nil, errInvalidProductID
	}

	switch in.sub {
	case "adicionar":
		// Slash command strings are single-line, so ';' also separates items.
		raw := strings.ReplaceAll(in.opts.str("itens"), ";", "\n")
		n, err := b.deps.Catalog.AddStock(ctx, id, raw)
		if err != nil {
			return nil, err
		}
		return embedReply(successEmbed("Estoque atualizado", fmt.Sprintf("%d itens adicionados ao produto #%d.", n, id))), nil

	case "ver":
		s, err := b.deps.Catalog.StockSummary(ctx, id)
		if err != nil {
			return nil, err
		}
		embed := infoEmbed(fmt.Sprintf("Estoque do produto #%d", id), "")
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Disponível", Value: strconv.Itoa(s.Available), Inline: true},
			{Name: "Vendido", Value: strconv.Itoa(s.Used), Inline: true},
		}
		return embedReply(embed), nil
	}
	return nil, fmt.Errorf("unknown subcommand %q", in.sub)
}

func (b *Bot) handleConfigurePayment(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionAdministrator); err != nil {
		return nil, err
	}
	gateway := in.opts.str("gateway")
	err := b.deps.Payments.ConfigureGateway(ctx, in.guildID, service.GatewaySettings{
		Gateway:       gateway,
		Token:         in.opts.str("token"),
		WebhookURL:    in.opts.str("webhook_url"),
		WebhookSecret: in.opts.str("secret"),
	})
	if err != nil {
		return nil, err
	}

	result, err := b.deps.Payments.TestGateway(ctx, in.guildID, gateway)
	if err != nil {
		b.logger.Info("Gateway test failed after configuration", zap.String("gateway", gateway), zap.Error(err))
		return embedReply(warningEmbed("Gateway salvo",
			"As credenciais foram salvas, mas o teste de conexão falhou. Verifique o token.")), nil
	}
	return embedReply(successEmbed("Gateway configurado", fmt.Sprintf("**%s** conectado: %s", gateway, result))), nil
}

func (b *Bot) handleConfig(ctx context.Context, in *invocation) (*reply, error) {
	if err := requirePermission(in, discordgo.PermissionAdministrator); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(in.opts.str("chave"))
	value := in.opts.str("valor")
	if err := b.deps.Config.Set(ctx, in.guildID, key, value); err != nil {
		return nil, err
	}
	if strings.TrimSpace(value) == "" {
		return embedReply(successEmbed("Configuração removida", "`"+key+"`")), nil
	}
	return embedReply(successEmbed("Configuração salva", fmt.Sprintf("`%s` = `%s`", key, value))), nil
}

func (b *Bot) handlePayButton(ctx context.Context, in *invocation) (*reply, error) {
	res, err := b.deps.Payments.InitiatePayment(ctx, &service.InitiatePaymentRequest{
		OrderID:     in.component.OrderID,
		RequesterID: in.userID,
		Method:      in.component.Method,
	})
	if err != nil {
		return nil, err
	}
	if res.Pix == nil {
		return embedReply(infoEmbed("Pagamento iniciado", "Aguardando confirmação do gateway.")), nil
	}
	return embedReply(PixEmbed(res)), nil
}

func (b *Bot) handleCancelOrderButton(ctx context.Context, in *invocation) (*reply, error) {
	if err := b.deps.Orders.CancelOrder(ctx, in.component.OrderID, in.userID); err != nil {
		return nil, err
	}
	return embedReply(successEmbed("Pedido cancelado", "O pedido "+in.component.OrderID+" foi cancelado.")), nil
}
