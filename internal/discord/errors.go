package discord

import (
	"errors"
	"fmt"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/payment"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/service"
)

var (
	errMissingPermission = errors.New("missing permission")
	errGuildOnly         = errors.New("command only works in a guild")
	errInvalidProductID  = errors.New("invalid product id")
)

var userMessages = []struct {
	err error
	msg string
}{
	{errMissingPermission, "Você não tem permissão para usar este comando."},
	{errGuildOnly, "Este comando só pode ser usado em um servidor."},
	{errInvalidProductID, "ID de produto inválido."},
	{service.ErrProductNotFound, "Produto não encontrado."},
	{service.ErrOrderNotFound, "Pedido não encontrado."},
	{service.ErrTicketNotFound, "Este canal não é um ticket."},
	{service.ErrInvalidQuantity, "Quantidade inválida."},
	{service.ErrInvalidProductName, "Informe o nome do produto."},
	{service.ErrInvalidPrice, "O preço deve ser maior que zero."},
	{service.ErrInvalidColor, "Cor inválida, use o formato #RRGGBB."},
	{service.ErrEmptyStock, "Nenhum item informado."},
	{service.ErrNotOrderOwner, "Este pedido pertence a outro usuário."},
	{service.ErrOrderExpired, "Este pedido expirou. Faça uma nova compra."},
	{service.ErrOrderNotPending, "Este pedido não está mais aguardando pagamento."},
	{service.ErrOrderNotCancellable, "Este pedido não pode mais ser cancelado."},
	{service.ErrPaymentInProgress, "O pagamento deste pedido já está sendo processado."},
	{service.ErrPaymentAlreadyCreated, "Este pedido já tem um pagamento em aberto com outro método."},
	{service.ErrWebhookURLNotConfigured, "A URL de webhook não está configurada. Use /configurar-pagamento."},
	{service.ErrGatewayNotConfigured, "Nenhum gateway de pagamento configurado. Contate um administrador."},
	{service.ErrUnsupportedGateway, "Gateway de pagamento não suportado."},
	{service.ErrUnsupportedMethod, "Método de pagamento não suportado por este gateway."},
	{service.ErrCardDataRequired, "Dados do cartão são obrigatórios."},
	{service.ErrTicketNotOpen, "Este ticket não está aberto."},
	{service.ErrTicketNotClosed, "Este ticket não está fechado."},
	{service.ErrTicketChannelDeleted, "O canal deste ticket já foi apagado."},
	{service.ErrNotTicketOwner, "Apenas o dono do ticket pode fazer isso."},
	{service.ErrNoCloseProposal, "A solicitação de fechamento expirou. Use /fechar-ticket novamente."},
	{service.ErrInvalidRating, "A avaliação deve ser entre 1 e 5."},
	{service.ErrInvalidMessageCount, "A quantidade deve ser entre 1 e 100."},
	{service.ErrInvalidDuration, "Duração inválida."},
	{service.ErrUnknownConfigKey, "Chave de configuração desconhecida."},
	{service.ErrInvalidConfigValue, "Valor inválido para esta configuração."},
}

// userMessage turns an error into the text shown to the user. expected is
// false for errors that deserve a log line.
func userMessage(err error) (msg string, expected bool) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		return fmt.Sprintf("Estoque insuficiente. Disponível: %d.", stockErr.Available), true
	}
	if errors.Is(err, service.ErrInsufficientStock) {
		return "Estoque insuficiente.", true
	}

	var dup *service.DuplicateTicketError
	if errors.As(err, &dup) {
		return fmt.Sprintf("Você já possui um ticket aberto: <#%s>.", dup.ChannelID), true
	}

	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg, true
		}
	}

	var apiErr *payment.APIError
	if errors.As(err, &apiErr) {
		return "O gateway de pagamento recusou a operação: " + apiErr.Message, false
	}

	return "Ocorreu um erro ao processar sua solicitação.", false
}
