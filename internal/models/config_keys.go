package models

// Per-guild keys stored in server_config.
const (
	ConfigPaymentGatewayDefault    = "payment_gateway_default"
	ConfigWebhookURL               = "webhook_url"
	ConfigMercadoPagoWebhookSecret = "mercadopago_webhook_secret"
	ConfigSalesLogChannel          = "sales_log_channel"
	ConfigModLogChannel            = "mod_log_channel"
	ConfigWelcomeChannel           = "welcome_channel"
	ConfigTicketCategory           = "ticket_category"
	ConfigTicketSupportRole        = "ticket_support_role"
	ConfigAutomodEnabled           = "automod_enabled"
	ConfigBannedWords              = "banned_words"
	ConfigSpamLimit                = "spam_limit"
	ConfigSpamWindow               = "spam_time_window"
)

// GatewayTokenKey is the config key holding a gateway's API credential.
func GatewayTokenKey(gateway string) string {
	return gateway + "_token"
}

// SecretConfigKeys are never echoed back by the dashboard API.
var SecretConfigKeys = map[string]bool{
	GatewayTokenKey("mercadopago"): true,
	GatewayTokenKey("abacatepay"):  true,
	ConfigMercadoPagoWebhookSecret: true,
}
