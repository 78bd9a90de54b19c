package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/volcanica/petro-cli/internal/model"
	"github.com/volcanica/petro-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the aggregated snapshot over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the read-only query API over the store.
func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/buckets", func(w http.ResponseWriter, req *http.Request) {
		buckets, err := st.Buckets(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"buckets": buckets})
	})

	r.Route("/volcanoes/{name}", func(vr chi.Router) {
		vr.Get("/locations", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			locations, err := st.LocationsByVolcano(req.Context(), name)
			if err != nil {
				writeError(w, err)
				return
			}
			if len(locations) == 0 {
				http.Error(w, `{"error":"volcano not found"}`, http.StatusNotFound)
				return
			}
			if req.URL.Query().Get("format") == "geojson" {
				writeJSON(w, http.StatusOK, locationsToGeoJSON(locations))
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"volcano":   name,
				"locations": locations,
			})
		})

		vr.Get("/major-rocks", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			profiles, err := st.ProfilesByVolcano(req.Context(), name)
			if err != nil {
				writeError(w, err)
				return
			}
			if len(profiles) == 0 {
				http.Error(w, `{"error":"volcano not found"}`, http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"volcano":  name,
				"profiles": profiles,
			})
		})
	})

	return r
}

// locationsToGeoJSON renders aggregated locations as a GeoJSON feature
// collection, one point feature per location.
func locationsToGeoJSON(locations []model.AggregatedLocation) *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, len(locations))
	for _, loc := range locations {
		point := geom.NewPointFlat(geom.XY, []float64{loc.Longitude, loc.Latitude}).SetSRID(4326)
		features = append(features, &geojson.Feature{
			Geometry: point,
			Properties: map[string]any{
				"volcano":       loc.Volcano,
				"sample_ids":    loc.SampleIDs,
				"stabilized_km": loc.StabilizedKM,
				"rock_counts":   loc.RockCounts,
			},
		})
	}
	return &geojson.FeatureCollection{Features: features}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("serve: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("serve: request failed", zap.Error(err))
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}
