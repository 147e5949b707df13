package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/padraicbc/nflodds/db"
	applog "github.com/padraicbc/nflodds/logger"
	"github.com/padraicbc/nflodds/ingest"
	"github.com/padraicbc/nflodds/models"
	"github.com/padraicbc/nflodds/provider"
	"github.com/padraicbc/nflodds/query"
)

// Ingester runs one provider-to-store reconciliation.
type Ingester interface {
	Run(ctx context.Context) (*ingest.Summary, error)
}

type OddsReader interface {
	Odds(ctx context.Context, sel query.Selector) ([]query.Row, error)
}

type Predictor interface {
	MatchProbs(ctx context.Context, team1, team2 string) (p1, p2 float64, err error)
}

type Users interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByID(ctx context.Context, id int64) (*models.User, error)
}

type Ratings interface {
	InsertRatings(ctx context.Context, ratings []models.TeamRating) (int, error)
}

type Counter interface {
	Counts(ctx context.Context) (db.Counts, error)
}

type SnapshotFetcher interface {
	Fetch(ctx context.Context) (*provider.Snapshot, error)
}

type TokenIssuer interface {
	Issue(userID int64, email string) (string, error)
}

// Deps are the collaborators the routes need. Counter and Provider are only
// used by the debug routes.
type Deps struct {
	Ingester Ingester
	Odds     OddsReader
	Model    Predictor
	Users    Users
	Ratings  Ratings
	Tokens   TokenIssuer
	Counter  Counter
	Provider SnapshotFetcher
	Log      *zap.Logger
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	deps Deps
	log  *zap.Logger
}

func New(d Deps) *Handler {
	return &Handler{deps: d, log: applog.OrNop(d.Log)}
}

// Root is a liveness probe.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "connected"})
}
