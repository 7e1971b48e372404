package httpapi

import (
	"net/http"
	"strings"

	"bifrost/internal/eventbus"
	"bifrost/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "httpapi")

// Server holds everything a handler needs: the resource graph, the bridge's
// own advertised identity fields, and the outbound GW request channel.
type Server struct {
	Store    *store.Store
	BridgeID string
	Mac      string
	Name     string
}

func NewServer(s *store.Store, bridgeID, mac, name string) *Server {
	return &Server{Store: s, BridgeID: bridgeID, Mac: mac, Name: name}
}

// NewRouter wires both dialects plus the SSE stream behind a trailing-slash
// normalizer, matching a genuine bridge's tolerant routing.
func (srv *Server) NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(trailingSlash)
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/", srv.createUser)
		r.Get("/config", srv.legacyShortConfig)
		r.Get("/{user}", srv.legacyFullConfig)
		r.Get("/{user}/{rtype}", srv.legacyList)
		r.Get("/{user}/{rtype}/{id}", srv.legacyGet)
		r.Put("/{user}/lights/{id}/state", srv.legacyPutLightState)
		r.Put("/{user}/groups/{id}/action", srv.legacyPutGroupAction)
		r.Post("/{user}/{rtype}", srv.legacyCreateUnsupported)
	})

	r.Route("/clip/v2/resource", func(r chi.Router) {
		r.Get("/", srv.clipListAll)
		r.Post("/scene", srv.clipCreateScene)
		r.Put("/light/{id}", srv.clipPutLight)
		r.Put("/grouped_light/{id}", srv.clipPutGroupedLight)
		r.Put("/scene/{id}", srv.clipPutScene)
		r.Put("/device/{id}", srv.clipPutDevice)
		r.Delete("/scene/{id}", srv.clipDeleteScene)
		r.Delete("/{rtype}/{id}", srv.clipDeleteDenied)
		r.Get("/{rtype}", srv.clipList)
		r.Get("/{rtype}/{id}", srv.clipGet)
		r.Post("/{rtype}", srv.clipCreate)
	})

	r.Get("/eventstream/clip/v2", srv.eventStream)

	return r
}

func trailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if len(req.URL.Path) > 1 && strings.HasSuffix(req.URL.Path, "/") {
			req.URL.Path = strings.TrimRight(req.URL.Path, "/")
		}
		next.ServeHTTP(w, req)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).Debug("http request")
		next.ServeHTTP(w, r)
	})
}

// enqueueOutbound fires an outbound GW request without ever propagating a
// failure back to the caller; actuation is fire-and-forget.
func (srv *Server) enqueueOutbound(req eventbus.ClientRequest) {
	srv.Store.Z2MUpdates.Publish(req)
}
