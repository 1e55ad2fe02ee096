package notify

import "context"

// Publisher pushes live updates to connected clients. Delivery is
// fire-and-forget, at-most-once.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any)
}

// Topics used by the pipeline. Channels are scoped per tenant or per ticket
// so dashboard and widget subscriptions stay narrow.
func TicketCreatedTopic(tenantID string) string  { return "tenant:" + tenantID + ":ticket-created" }
func MessageCreatedTopic(ticketID string) string { return "ticket:" + ticketID + ":message-created" }
func RefreshNeededTopic(ticketID string) string  { return "ticket:" + ticketID + ":refresh-needed" }
func SuggestionTopic(ticketID string) string     { return "ticket:" + ticketID + ":suggestion" }
func TicketClosedTopic(ticketID string) string   { return "ticket:" + ticketID + ":ticket-closed" }
