package routes

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/auth"
	"github.com/FACorreiaa/gurume/internal/app/domain/catalog"
	"github.com/FACorreiaa/gurume/internal/app/domain/favorites"
	"github.com/FACorreiaa/gurume/internal/app/domain/places"
	"github.com/FACorreiaa/gurume/internal/app/domain/profiles"
	"github.com/FACorreiaa/gurume/internal/app/domain/ratings"
	routesPkg "github.com/FACorreiaa/gurume/internal/app/domain/routes"
	"github.com/FACorreiaa/gurume/internal/app/domain/session"
	"github.com/FACorreiaa/gurume/internal/app/domain/uploads"
	"github.com/FACorreiaa/gurume/internal/app/handlers"
	"github.com/FACorreiaa/gurume/internal/app/models"
	database "github.com/FACorreiaa/gurume/internal/db"
	"github.com/FACorreiaa/gurume/internal/pkg/config"
)

type AppHandlers struct {
	Auth      *auth.AuthHandlers
	Profiles  *profiles.ProfilesHandler
	Catalog   *catalog.Handler
	Routes    *routesPkg.Handler
	Ratings   *ratings.Handler
	Favorites *favorites.Handler
	Uploads   *uploads.Handler
	Places    *places.Handler
}

// App is the wired application: the services that outlive a request and
// the handlers that serve them.
type App struct {
	Handlers *AppHandlers
	Catalog  *catalog.Service
	Sessions *session.Manager
	Auth     *auth.AuthServiceImpl
	Demo     bool
}

// NewApp builds every repository, service and handler. A nil pool means
// demo mode: durable repositories are left out and writes stay in memory.
func NewApp(ctx context.Context, cfg *config.Config, pool database.Pool, log *zap.Logger) (*App, error) {
	demo := pool == nil

	var (
		authRepo      auth.AuthRepo
		profileRepo   profiles.Repository
		catalogRepo   catalog.Repository
		routeRepo     routesPkg.Repository
		durableRating ratings.Repository
		favoritesRepo favorites.Repository
		routeSource   catalog.RouteSource
	)

	store := catalog.NewStore(nil)
	if !demo {
		authRepo = auth.NewPostgresAuthRepo(pool, log)
		profileRepo = profiles.NewPostgresRepository(pool, log)
		catalogRepo = catalog.NewPostgresRepository(pool, log)
		pgRoutes := routesPkg.NewPostgresRepository(pool, log)
		routeRepo = pgRoutes
		routeSource = pgRoutes
		durableRating = ratings.NewPostgresRepository(pool, log)
		favoritesRepo = favorites.NewPostgresRepository(pool, log)
	} else {
		routeRepo = routesPkg.NewMemoryRepository(store)
	}

	var importer *catalog.ProvinceImporter
	if cfg.Catalog.ImportProvinces {
		importer = catalog.NewProvinceImporter(cfg.Catalog.ProvinceAPIURL, cfg.Places.Timeout, log)
	}
	catalogService := catalog.NewService(store, catalogRepo, routeSource, importer, log)
	if err := catalogService.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	authService := auth.NewAuthService(authRepo, cfg.Auth, log)
	profileService := profiles.NewService(profileRepo, log)
	routeService := routesPkg.NewService(routeRepo, store, routesPkg.NewBuilder(cfg.Routes.RequireModeration), log)
	ratingService := ratings.NewService(durableRating, ratings.NewMemoryRepository(store), store, log)
	favoritesService := favorites.NewService(favoritesRepo, store, log)

	var imageStore uploads.ImageStore
	if cfg.Storage.Enabled() {
		s3Store, err := uploads.NewS3Store(ctx, cfg.Storage, log)
		if err != nil {
			return nil, fmt.Errorf("failed to set up image storage: %w", err)
		}
		imageStore = s3Store
	} else {
		log.Warn("Image storage not configured, uploads are disabled")
	}
	uploadService := uploads.NewService(imageStore, cfg.Storage, log)

	sessions := session.NewManager(cfg.Auth.SessionTTL, demo, log)
	sessions.OnBegin(func(ctx context.Context, s *session.Session) error {
		return favoritesService.Load(ctx, s.FavoritesOwner())
	})
	if !demo {
		sessions.OnBegin(profileService.Hydrate)
	}

	return &App{
		Handlers: &AppHandlers{
			Auth:     auth.NewAuthHandlers(authService, sessions, log),
			Profiles: profiles.NewProfilesHandler(profileService, log),
			Catalog:  catalog.NewHandler(store, log),
			Routes:   routesPkg.NewHandler(routeService, log),
			Ratings:  ratings.NewHandler(ratingService, log),
			Favorites: favorites.NewHandler(favoritesService, func(c *gin.Context) favorites.Caller {
				return session.FromContext(c)
			}, log),
			Uploads: uploads.NewHandler(uploadService, log),
			Places:  places.NewHandler(places.NewGoogleSearcher(cfg.Places, log), log),
		},
		Catalog:  catalogService,
		Sessions: sessions,
		Auth:     authService,
		Demo:     demo,
	}, nil
}

// Setup registers the JSON API. The JWT and session middleware must already
// be installed on r.
func Setup(r *gin.Engine, app *App, log *zap.Logger) {
	h := app.Handlers

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"demo":     app.Demo,
			"sessions": app.Sessions.Active(),
		})
	})

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", h.Auth.Logout)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.GET("/verify", h.Auth.Verify)
		authGroup.POST("/password", auth.RequireAuth(log), h.Auth.ChangePassword)
	}

	profile := api.Group("/profile", auth.RequireAuth(log))
	{
		profile.GET("", h.Profiles.GetProfile)
		profile.PATCH("", h.Profiles.UpdateProfile)
	}

	cities := api.Group("/cities")
	{
		cities.GET("", h.Catalog.ListCities)
		cities.GET("/slug/:slug", h.Catalog.GetCityBySlug)
		cities.GET("/:id", h.Catalog.GetCity)
		cities.GET("/:id/districts", h.Catalog.ListCityDistricts)
		cities.GET("/:id/places", h.Catalog.ListCityPlaces)
		cities.GET("/:id/routes", h.Catalog.ListCityRoutes)
	}
	api.GET("/districts/:id/places", h.Catalog.ListDistrictPlaces)

	placesGroup := api.Group("/places")
	{
		placesGroup.GET("/search", h.Places.SearchPlaces)
		placesGroup.GET("/nearby", h.Places.NearbyPlaces)
		placesGroup.GET("/autocomplete", h.Places.Autocomplete)
		placesGroup.GET("/google/:placeId", h.Places.PlaceDetails)
		placesGroup.GET("/:id", h.Catalog.GetPlace)
	}

	routeGroup := api.Group("/routes")
	{
		routeGroup.GET("", h.Routes.ListRoutes)
		routeGroup.POST("", h.Routes.CreateRoute)
		routeGroup.GET("/mine", h.Routes.MyRoutes)
		routeGroup.GET("/:id", h.Routes.GetRoute)
		routeGroup.PATCH("/:id", h.Routes.UpdateRoute)
		routeGroup.DELETE("/:id", h.Routes.DeleteRoute)
		routeGroup.GET("/:id/ratings", h.Ratings.ListRouteRatings)
		routeGroup.POST("/:id/ratings", h.Ratings.CreateRating)
		routeGroup.GET("/:id/ratings/me", h.Ratings.GetMyRating)
	}

	ratingGroup := api.Group("/ratings")
	{
		ratingGroup.PUT("/:id", h.Ratings.UpdateRating)
		ratingGroup.DELETE("/:id", h.Ratings.DeleteRating)
	}

	favoriteGroup := api.Group("/favorites")
	{
		favoriteGroup.GET("", h.Favorites.ListFavorites)
		favoriteGroup.PUT("/:routeId", h.Favorites.SaveFavorite)
		favoriteGroup.POST("/:routeId/toggle", h.Favorites.ToggleFavorite)
	}

	api.POST("/uploads/:bucket", h.Uploads.Upload)

	r.NoRoute(func(c *gin.Context) {
		handlers.RespondError(c, log, fmt.Errorf("%s %s: %w", c.Request.Method, c.Request.URL.Path, models.ErrNotFound), "route")
	})
}
