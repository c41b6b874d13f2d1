package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/mager/bandsaw/audio"
	"github.com/mager/bandsaw/auth"
	"github.com/mager/bandsaw/cli"
	"github.com/mager/bandsaw/config"
	"github.com/mager/bandsaw/database"
	"github.com/mager/bandsaw/fingerprint"
	adminHandler "github.com/mager/bandsaw/handler/admin"
	"github.com/mager/bandsaw/handler/authn"
	"github.com/mager/bandsaw/handler/health"
	jobHandler "github.com/mager/bandsaw/handler/job"
	sessionHandler "github.com/mager/bandsaw/handler/session"
	songHandler "github.com/mager/bandsaw/handler/song"
	trackHandler "github.com/mager/bandsaw/handler/track"
	"github.com/mager/bandsaw/jobs"
	"github.com/mager/bandsaw/logger"
	"github.com/mager/bandsaw/pipeline"
	"github.com/mager/bandsaw/storage"
	"github.com/mager/bandsaw/trackops"
)

// Route is an http.Handler that knows the mux pattern and the HTTP
// methods under which it will be registered.
type Route interface {
	http.Handler

	// Pattern reports the path at which this is registered.
	Pattern() string

	// Methods reports the HTTP methods this route accepts.
	Methods() []string
}

//	@title			Bandsaw
//	@version		1.0
//	@description	This is the API for bandsaw

// @host		localhost:8000
// @BasePath	/
func main() {
	if len(os.Args) > 1 {
		if os.Args[1] != "serve" {
			os.Exit(cli.Run(os.Args[1:]))
		}
		cli.ApplyServeFlags(os.Args[2:])
	}

	fx.New(
		fx.Provide(
			fx.Annotate(NewHTTPServer, fx.ParamTags("", "", "", "", `group:"routes"`)),
			config.Options,
			logger.Options,
			database.Options,
			storage.Options,
			jobs.Options,
			auth.Options,
			fingerprint.NewLibrary,
			pipeline.Options,
			trackops.Options,

			AsRoute(health.NewHealthHandler),
			AsRoute(authn.NewLoginHandler),
			AsRoute(authn.NewLogoutHandler),
			AsRoute(authn.NewMeHandler),
			AsRoute(sessionHandler.NewListSessionsHandler),
			AsRoute(sessionHandler.NewGetSessionHandler),
			AsRoute(sessionHandler.NewUpdateNameHandler),
			AsRoute(sessionHandler.NewUpdateDateHandler),
			AsRoute(sessionHandler.NewUpdateNotesHandler),
			AsRoute(sessionHandler.NewDeleteSessionHandler),
			AsRoute(sessionHandler.NewListTracksHandler),
			AsRoute(sessionHandler.NewUploadHandler),
			AsRoute(trackHandler.NewAudioHandler),
			AsRoute(trackHandler.NewTagHandler),
			AsRoute(trackHandler.NewUntagHandler),
			AsRoute(trackHandler.NewNotesHandler),
			AsRoute(trackHandler.NewMergeHandler),
			AsRoute(trackHandler.NewSplitHandler),
			AsRoute(songHandler.NewListSongsHandler),
			AsRoute(songHandler.NewGetSongHandler),
			AsRoute(songHandler.NewUpdateSongHandler),
			AsRoute(songHandler.NewRenameSongHandler),
			AsRoute(songHandler.NewDeleteSongHandler),
			AsRoute(songHandler.NewListTakesHandler),
			AsRoute(jobHandler.NewGetJobHandler),
			AsRoute(jobHandler.NewStreamHandler),
			AsRoute(adminHandler.NewListGroupsHandler),
			AsRoute(adminHandler.NewCreateGroupHandler),
			AsRoute(adminHandler.NewListUsersHandler),
			AsRoute(adminHandler.NewCreateUserHandler),
		),
		audio.Options,
		fx.Invoke(func(*http.Server) {}),
	).Run()
}

func NewHTTPServer(
	lc fx.Lifecycle,
	logger *zap.SugaredLogger,
	cfg config.Config,
	mw *auth.Middleware,
	routes []Route,
) *http.Server {
	router := mux.NewRouter()
	for _, route := range routes {
		router.Handle(route.Pattern(), route).Methods(route.Methods()...)
	}

	handler := corsMiddleware(cfg.CORSOrigins, mw.Wrap(router))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: handler}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			logger.Infof("Starting HTTP server at %s", srv.Addr)
			go srv.Serve(ln)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})

	return srv
}

// AsRoute annotates the given constructor to state that
// it provides a route to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// corsMiddleware answers preflights and stamps CORS headers for the
// configured frontend origins.
func corsMiddleware(allowed []string, next http.Handler) http.Handler {
	allowedSet := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		allowedSet[o] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowedSet[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
