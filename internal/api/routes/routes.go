package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/nikzan/Multimodal-Support-System/internal/api/handlers"
	"github.com/nikzan/Multimodal-Support-System/internal/api/middleware"
	"github.com/nikzan/Multimodal-Support-System/internal/services"
)

type Deps struct {
	Tenants services.TenantService

	Ticket    *handlers.TicketHandler
	Chat      *handlers.ChatHandler
	Knowledge *handlers.KnowledgeHandler
	Tenant    *handlers.TenantHandler
	WS        *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Widget routes: the embedded chat widget has no headers to spare, so
	// intake authenticates via api_key in the body and the rest is keyed by
	// ids the widget already holds.
	r.POST("/tickets", d.Ticket.Create)
	r.GET("/tickets/:ticket_id", d.Ticket.Get)
	r.GET("/sessions/:session_id/active-ticket", d.Ticket.ActiveBySession)
	r.POST("/tickets/:ticket_id/messages", d.Chat.Send)
	r.GET("/tickets/:ticket_id/messages", d.Chat.List)
	r.GET("/ws/tickets/:ticket_id", d.WS.TicketWS)

	// Dashboard routes (tenant api key)
	dash := r.Group("/")
	dash.Use(middleware.APIKeyAuth(d.Tenants))

	dash.GET("/dashboard/tickets", d.Ticket.List)
	dash.PATCH("/tickets/:ticket_id/status", d.Ticket.UpdateStatus)
	dash.POST("/tickets/:ticket_id/close", d.Ticket.Close)
	dash.DELETE("/tickets/:ticket_id", d.Ticket.Delete)
	dash.POST("/tickets/:ticket_id/suggestion", d.Ticket.Suggestion)
	dash.GET("/tickets/:ticket_id/suggestions", d.Ticket.SuggestionHistory)

	dash.POST("/knowledge", d.Knowledge.Create)
	dash.GET("/knowledge", d.Knowledge.List)
	dash.GET("/knowledge/:entry_id", d.Knowledge.Get)
	dash.PUT("/knowledge/:entry_id", d.Knowledge.Update)
	dash.DELETE("/knowledge/:entry_id", d.Knowledge.Delete)

	// Admin routes (JWT)
	admin := r.Group("/admin")
	admin.Use(middleware.JWTAuth())

	admin.POST("/tenants", d.Tenant.Create)
	admin.GET("/tenants", d.Tenant.List)
	admin.GET("/tenants/:tenant_id", d.Tenant.Get)
}
