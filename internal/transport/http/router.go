package httptransport

import (
	"expvar"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"cardroom/internal/auth"
	"cardroom/internal/rewards"
	"cardroom/internal/room"
	"cardroom/internal/store"
)

func NewRouter(st *store.Store, reg *room.Registry, rewardsSvc *rewards.Service, verifier auth.Verifier, wsHandler http.HandlerFunc) *chi.Mux {
	walletHandlers := NewWalletHandlers(st)
	roomHandlers := NewRoomHandlers(reg, st)
	rewardHandlers := NewRewardHandlers(rewardsSvc)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			WriteHTTPError(w, http.StatusServiceUnavailable, "db_unreachable")
			return
		}
		WriteJSON(w, map[string]any{"ok": true})
	})

	// The game itself runs over this socket; everything under /api is
	// read-side and account plumbing.
	r.Get("/ws", wsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())

		r.Get("/rooms", roomHandlers.List())
		r.Get("/matches/{match_id}/replay", roomHandlers.MatchReplay())

		r.Group(func(r chi.Router) {
			r.Use(UserAuthMiddleware(verifier))
			r.Get("/wallet", walletHandlers.Balance())
			r.Get("/wallet/ledger", walletHandlers.Ledger())
			r.Get("/rewards/daily", rewardHandlers.Status())
			r.Post("/rewards/daily/claim", rewardHandlers.Claim())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})

	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("walk routes")
		return
	}
	for _, rt := range routes {
		log.Debug().Str("method", rt.Method).Str("path", rt.Path).Msg("route")
	}
}
