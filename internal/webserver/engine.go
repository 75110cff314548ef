package webserver

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/brownbnc/mrsuploader/internal/database"
	"github.com/brownbnc/mrsuploader/internal/storage"
	middlewarepkg "github.com/brownbnc/mrsuploader/internal/webserver/middleware"
	"github.com/brownbnc/mrsuploader/internal/webserver/service"
	"github.com/brownbnc/mrsuploader/internal/xnat"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mdouchement/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// A Controller is an Inversion Of Control pattern used to init the server package.
type Controller struct {
	Version  string
	Logger   logger.Logger
	Database database.Client
	Spool    storage.Backend
	XNAT     *xnat.Client
	//
	SessionLifetime time.Duration
	ValidateScan    bool
	CookieSecure    bool
	HistoryLimit    int
}

// EchoEngine instantiates the wep server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.HideBanner = true
	engine.Use(middleware.Gzip())
	engine.Use(middlewarepkg.Logger(ctrl.Logger))

	engine.HTTPErrorHandler = middlewarepkg.NewHTTPErrorHandler(ctrl.Logger)
	engine.Renderer = NewRenderer()

	if ctrl.HistoryLimit <= 0 {
		ctrl.HistoryLimit = 100
	}

	//
	//
	//

	router := engine.Group("")

	// Generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})
	router.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Session
	//
	session := session{
		logger:   ctrl.Logger,
		db:       ctrl.Database,
		xnat:     ctrl.XNAT,
		lifetime: ctrl.SessionLifetime,
		secure:   ctrl.CookieSecure,
	}
	router.GET("/login", session.New)
	router.POST("/login", session.Create)
	router.GET("/logout", session.Destroy)

	// Upload relay
	//
	upload := upload{
		logger: ctrl.Logger,
		db:     ctrl.Database,
		uploader: service.NewBatchUploader(
			ctrl.Logger,
			ctrl.Database,
			ctrl.Spool,
			ctrl.XNAT,
			ctrl.ValidateScan,
		),
		xnatBaseURL: ctrl.XNAT.BaseURL,
		history:     ctrl.HistoryLimit,
	}
	auth := middlewarepkg.Session(ctrl.Database, ctrl.SessionLifetime)

	router.GET("/", upload.Index, auth)
	router.POST("/upload", upload.Create, auth)
	router.GET("/history", upload.History, auth)

	return engine
}

// PrintRoutes prints the Echo engine exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}
