package main

import (
	"context"
	"net/http"

	"github.com/Vizzuality/HLS-data-project/catalog"
	"github.com/Vizzuality/HLS-data-project/composite"
	"github.com/Vizzuality/HLS-data-project/metrics"
	"github.com/Vizzuality/HLS-data-project/sceneindex"
	"github.com/Vizzuality/HLS-data-project/util"
	"github.com/gorilla/mux"
	cli "gopkg.in/urfave/cli.v1"
)

func defaultArchive(ctx context.Context, cfg *util.Config) (composite.Archive, error) {
	return composite.NewEarthEngineArchive(ctx, cfg.EECredentials, cfg.EEProject, "", &composite.Context{})
}

// newArchiveFunc opens the Earth Engine archive
var newArchiveFunc = defaultArchive

func createRouter(ctx context.Context, cfg *util.Config, lc util.LogContext) (*mux.Router, error) {
	router := mux.NewRouter()
	router.Use(metrics.Middleware)
	router.HandleFunc("/", func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte("OK"))
	})
	router.Handle("/metrics", metrics.Handler())
	router.Handle("/catalog/search", catalog.NewDiscoverHandler(cfg.CMRSTACURL))

	if cfg.EECredentials != "" {
		archive, err := newArchiveFunc(ctx, cfg)
		if err != nil {
			return nil, err
		}
		router.Handle("/composites", composite.IndexHandler{Builder: &composite.Builder{Archive: archive, Context: &composite.Context{}}})
	} else {
		util.LogAlert(lc, "No Earth Engine credentials found, not serving /composites")
	}

	if cfg.DatabaseURL == "" {
		util.LogAlert(lc, "No database found, not serving /index routes")
		return router, nil
	}
	provider := getConnectionProviderFunc(cfg)
	if discoverHandler, err := sceneindex.NewDiscoverHandler(provider); err == nil {
		router.Handle("/index/discover", discoverHandler)
	} else {
		return nil, err
	}
	if metadataHandler, err := sceneindex.NewMetadataHandler(provider); err == nil {
		router.Handle("/index/scenes/{id}", metadataHandler)
	} else {
		return nil, err
	}
	if previewHandler, err := sceneindex.NewPreviewImageHandler(provider); err == nil {
		router.Handle("/index/preview/{id}", previewHandler)
	} else {
		return nil, err
	}
	return router, nil
}

func serveAction(c *cli.Context) error {
	logContext := &(util.BasicLogContext{})
	cfg, err := loadConfig(c)
	if err != nil {
		return util.LogSimpleErr(logContext, "Failed to load configuration: ", err)
	}

	router, err := createRouter(context.Background(), cfg, logContext)
	if err != nil {
		return util.LogSimpleErr(logContext, "Failed to create router: ", err)
	}
	util.LogInfo(logContext, "Listening on port "+cfg.PortStr())
	return launchServerFunc(cfg.PortStr(), router)
}

var launchServerFunc = launchServer

func launchServer(portStr string, router *mux.Router) error {
	server := http.Server{
		Addr:    portStr,
		Handler: router,
	}
	return server.ListenAndServe()
}
