package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/nflodds/db"
	mw "github.com/padraicbc/nflodds/middleware"
	"github.com/padraicbc/nflodds/models"
	"github.com/padraicbc/nflodds/predict"
	"github.com/padraicbc/nflodds/query"
)

type predictionRow struct {
	query.Row
	ModelProbTeam1 float64 `json:"model_prob_team1"`
	ModelProbTeam2 float64 `json:"model_prob_team2"`
}

// UpdateOdds pulls the provider snapshot and reconciles it into the store.
func (h *Handler) UpdateOdds(c echo.Context) error {
	sum, err := h.deps.Ingester.Run(c.Request().Context())
	if err != nil {
		h.log.Error("update_odds failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":  "update_odds failed",
			"detail": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Odds updated successfully",
		"summary": sum,
	})
}

func selectorFrom(c echo.Context) (query.Selector, error) {
	limit, err := query.ParseLimit(c.QueryParam("limit"))
	if err != nil {
		return query.Selector{}, err
	}
	return query.Selector{
		DateFrom: c.QueryParam("date_from"),
		DateTo:   c.QueryParam("date_to"),
		Upcoming: query.ParseBool(c.QueryParam("upcoming")),
		Limit:    limit,
	}, nil
}

func isBadQuery(err error) bool {
	return errors.Is(err, query.ErrInvalidDate) || errors.Is(err, query.ErrInvalidLimit)
}

// Odds returns one row per (match, bookmaker) for the selected window.
func (h *Handler) Odds(c echo.Context) error {
	sel, err := selectorFrom(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rows, err := h.deps.Odds.Odds(c.Request().Context(), sel)
	if err != nil {
		if isBadQuery(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, rows)
}

// Predictions returns upcoming odds rows with the model's split attached.
// Other window parameters are ignored.
func (h *Handler) Predictions(c echo.Context) error {
	limit, err := query.ParseLimit(c.QueryParam("limit"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	rows, err := h.deps.Odds.Odds(ctx, query.Selector{Upcoming: true, Limit: limit})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	type split struct{ p1, p2 float64 }
	byMatch := map[int64]split{}

	out := make([]predictionRow, 0, len(rows))
	for _, r := range rows {
		s, ok := byMatch[r.MatchID]
		if !ok {
			p1, p2, err := h.deps.Model.MatchProbs(ctx, r.Team1, r.Team2)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
			}
			s = split{p1, p2}
			byMatch[r.MatchID] = s
		}
		out = append(out, predictionRow{Row: r, ModelProbTeam1: s.p1, ModelProbTeam2: s.p2})
	}
	return c.JSON(http.StatusOK, out)
}

// SeedRatings inserts the embedded rating table, skipping teams that already
// have a rating. Admin only.
func (h *Handler) SeedRatings(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := mw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	user, err := h.deps.Users.UserByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if user.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "admin access required")
	}

	ratings, err := predict.DefaultRatings()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	n, err := h.deps.Ratings.InsertRatings(ctx, ratings)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.log.Info("ratings seeded", zap.Int("inserted", n), zap.Int64("by", id))
	return c.JSON(http.StatusOK, map[string]int{"inserted": n})
}
