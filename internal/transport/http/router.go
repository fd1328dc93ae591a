package http

import (
	"github.com/labstack/echo/v4"

	"github.com/loltft/rudefriend/internal/handlers"
	"github.com/loltft/rudefriend/internal/service"
)

// Deps bundles everything the routes need.
type Deps struct {
	Auth   *handlers.AuthHandler
	Member *handlers.MemberHandler
	Board  *handlers.BoardHandler
	Tokens *service.TokenService
}

func Register(e *echo.Echo, d Deps) {
	api := e.Group("/api", d.Tokens.Authenticate)

	api.POST("/login", d.Auth.Login)
	api.PATCH("/logout", d.Auth.Logout, d.Tokens.RequireMember)

	api.POST("/member", d.Member.Create)
	member := api.Group("/member", d.Tokens.RequireMember)
	member.GET("", d.Member.List)
	member.GET("/total", d.Member.Total)
	member.GET("/:id", d.Member.Detail)
	member.PUT("/:id", d.Member.Update)
	member.PATCH("/:id", d.Member.ToggleStatus, d.Tokens.RequireAdmin)

	api.POST("/board", d.Board.Create)
	api.GET("/board", d.Board.List)
	api.GET("/board/search", d.Board.Search)
	api.GET("/board/:id", d.Board.Detail)
	api.PUT("/board/:id", d.Board.Update)
	api.DELETE("/board/:id", d.Board.Delete)
	api.POST("/board/:id/vote", d.Board.Vote)
	api.POST("/board/:id/password", d.Board.CheckPassword)
}
