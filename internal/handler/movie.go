package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/movie-ticket-booking/internal/model"
	"github.com/iliyamo/movie-ticket-booking/internal/repository"
)

// MovieHandler serves the movie catalogue endpoints.
type MovieHandler struct {
	Movies *repository.MovieRepo
}

func NewMovieHandler(m *repository.MovieRepo) *MovieHandler {
	if m == nil {
		panic("nil repository passed to NewMovieHandler")
	}
	return &MovieHandler{Movies: m}
}

type createMovieReq struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    uint32  `json:"duration_minutes"`
	Genre       string  `json:"genre"`
	Language    string  `json:"language"`
	ReleaseDate string  `json:"release_date"` // YYYY-MM-DD
	TicketPrice float64 `json:"ticket_price"`
}

type movieResp struct {
	ID          uint64  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    uint32  `json:"duration_minutes"`
	Genre       string  `json:"genre"`
	Language    string  `json:"language"`
	ReleaseDate string  `json:"release_date"`
	TicketPrice float64 `json:"ticket_price"`
}

func toMovieResp(m *model.Movie) movieResp {
	return movieResp{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Duration:    m.Duration,
		Genre:       m.Genre,
		Language:    m.Language,
		ReleaseDate: m.ReleaseDate.Format("2006-01-02"),
		TicketPrice: m.TicketPrice,
	}
}

// Create handles POST /v1/movies.
func (h *MovieHandler) Create(c echo.Context) error {
	var req createMovieReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if req.Duration == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_minutes must be positive"})
	}
	if req.TicketPrice <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "ticket_price must be positive"})
	}
	release, err := time.Parse("2006-01-02", req.ReleaseDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "release_date must be YYYY-MM-DD"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m := &model.Movie{
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Duration:    req.Duration,
		Genre:       strings.TrimSpace(req.Genre),
		Language:    strings.TrimSpace(req.Language),
		ReleaseDate: release,
		TicketPrice: req.TicketPrice,
	}
	if err := h.Movies.Create(ctx, m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}
	return c.JSON(http.StatusCreated, toMovieResp(m))
}

// Get handles GET /v1/movies/:id.
func (h *MovieHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Movies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}
	return c.JSON(http.StatusOK, toMovieResp(m))
}

// List handles GET /v1/movies.
func (h *MovieHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	movies, err := h.Movies.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}
	out := make([]movieResp, 0, len(movies))
	for i := range movies {
		out = append(out, toMovieResp(&movies[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"movies": out})
}

// Delete handles DELETE /v1/movies/:id.
func (h *MovieHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Movies.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db failure"})
	}
	return c.NoContent(http.StatusNoContent)
}
