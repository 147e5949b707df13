package handlers

import (
	"github.com/labstack/echo/v4"

	mw "github.com/padraicbc/nflodds/middleware"
)

// Register mounts the API on e. The debug routes are only added when debug is set.
func Register(e *echo.Echo, h *Handler, tokens mw.TokenDecoder, debug bool) {
	// Public
	e.GET("/", h.Root)
	e.POST("/update-odds/", h.UpdateOdds)
	e.GET("/odds", h.Odds)
	e.GET("/predictions", h.Predictions)
	e.POST("/auth/signup", h.Signup)
	e.POST("/auth/login", h.Login)

	// Protected – require "Authorization: Bearer <token>"
	requireUser := mw.JWT(tokens)
	e.GET("/auth/me", h.Me, requireUser)
	e.POST("/ratings/seed", h.SeedRatings, requireUser)

	if debug {
		dbg := e.Group("/debug")
		dbg.GET("/counts", h.DebugCounts)
		dbg.GET("/provider", h.DebugProvider)
	}
}
