// Package main starts an assessflow server.
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/assessflow/assessflow/engine"
	enginehttp "github.com/assessflow/assessflow/engine/http"
	httpaf "github.com/assessflow/assessflow/http"
	"github.com/assessflow/assessflow/logkeys"
	"github.com/assessflow/assessflow/requirements"
	subhttp "github.com/assessflow/assessflow/submission/http"
	"github.com/assessflow/assessflow/webhook"

	"github.com/alexedwards/flow"
	"github.com/micromdm/nanolib/envflag"
	nanohttp "github.com/micromdm/nanolib/http"
	"github.com/micromdm/nanolib/http/trace"
	"github.com/micromdm/nanolib/log/stdlogfmt"
)

// overridden by -ldflags -X
var version = "unknown"

const (
	apiUsername = "assessflow"
	apiRealm    = "assessflow"
)

func main() {
	var flEvalURLs evaluatorURLs
	flag.Var(&flEvalURLs, "evaluator-url", "step evaluator as step=URL (repeatable)")
	var (
		flDebug   = flag.Bool("debug", false, "log debug messages")
		flListen  = flag.String("listen", ":9004", "HTTP listen address")
		flVersion = flag.Bool("version", false, "print version and exit")
		flDumpWH  = flag.Bool("dump-webhook", false, "dump webhook input")
		flAPIKey  = flag.String("api", "", "API key for API endpoints")
		flSubURL  = flag.String("submission-url", "", "URL of submission service endpoint")
		flSubAPI  = flag.String("submission-api", "", "submission service API key")
		flEvalAPI = flag.String("evaluator-api", "", "step evaluator API key")
		flReqFile = flag.String("requirements", "", "path to YAML requirements profiles")
		flStorage = flag.String("storage", "file", "name of storage backend")
		flDSN     = flag.String("storage-dsn", "", "data source name (e.g. connection string or path)")
		flAttempt = flag.Int("max-attempts", engine.DefaultMaxAttempts, "status update attempts on concurrent updates")
	)
	envflag.Parse("ASSESSFLOW_", []string{"version"})

	if *flVersion {
		fmt.Println(version)
		return
	}

	logger := stdlogfmt.New(stdlogfmt.WithDebugFlag(*flDebug))

	if *flSubURL == "" || len(flEvalURLs) < 1 {
		logger.Info(logkeys.Error, "submission URL and at least one evaluator URL required")
		os.Exit(1)
	}

	profiles := requirements.Profiles{}
	if *flReqFile != "" {
		var err error
		profiles, err = requirements.LoadFile(*flReqFile)
		if err != nil {
			logger.Info(logkeys.Message, "loading requirements", logkeys.Error, err)
			os.Exit(1)
		}
		logger.Debug(logkeys.Message, "loaded requirements", logkeys.GenericCount, len(profiles))
	}

	// configure storage
	storage, err := parseStorage(context.Background(), *flStorage, *flDSN)
	if err != nil {
		logger.Info(logkeys.Message, "parse storage", logkeys.Error, err)
		os.Exit(1)
	}

	// configure the submission service client
	subOpts := []subhttp.Option{}
	if *flSubAPI != "" {
		subOpts = append(subOpts, subhttp.WithAPIKey(*flSubAPI))
	}
	subs, err := subhttp.New(*flSubURL, subOpts...)
	if err != nil {
		logger.Info(logkeys.Message, "creating submission client", logkeys.Error, err)
		os.Exit(1)
	}

	// configure the workflow engine
	e := engine.New(
		storage,
		subs,
		engine.WithLogger(logger.With("service", "engine")),
		engine.WithMaxAttempts(*flAttempt),
	)

	// register step evaluators with the engine
	err = registerEvaluators(logger, e, flEvalURLs, *flEvalAPI)
	if err != nil {
		logger.Info(logkeys.Message, "registering evaluators", logkeys.Error, err)
		os.Exit(1)
	}

	mux := flow.New()

	mux.Handle("/version", nanohttp.NewJSONVersionHandler(version))

	var h http.Handler = webhook.Handler(e, profiles, logger.With("handler", "webhook"))
	if *flDumpWH {
		h = httpaf.DumpHandler(h, os.Stdout)
	}

	mux.Handle("/webhook", h, "POST")

	if *flAPIKey != "" {
		mux.Group(func(mux *flow.Mux) {
			mux.Use(func(h http.Handler) http.Handler {
				return nanohttp.NewSimpleBasicAuthHandler(h, apiUsername, *flAPIKey, apiRealm)
			})

			enginehttp.HandleAPIv1("/v1", mux, logger, e, profiles)
		})
	}

	logger.Info(logkeys.Message, "starting server", "listen", *flListen)
	err = http.ListenAndServe(*flListen, trace.NewTraceLoggingHandler(mux, logger.With("handler", "log"), newTraceID))
	logs := []interface{}{logkeys.Message, "server shutdown"}
	if err != nil {
		logs = append(logs, logkeys.Error, err)
	}
	logger.Info(logs...)
}

// newTraceID generates a new HTTP trace ID for context logging.
// Currently this just makes a random string.
func newTraceID(_ *http.Request) string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
