// Package restapi exposes the settlement engine's public state accessors
// and owner-only admin operations over HTTP, mirroring the teacher's own
// REST surface convention (engine/restful_server.go): a gorilla/mux router,
// per-caller rate limiting via golang.org/x/time/rate, and TOTP-gated admin
// routes. It has no business logic of its own — every handler is a thin
// adapter over the engine's core collaborators.
package restapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/thrasher-corp/perpvault/common/cache"
	"github.com/thrasher-corp/perpvault/common/convert"
	"github.com/thrasher-corp/perpvault/common/fixedpoint"
	"github.com/thrasher-corp/perpvault/common/key"
	"github.com/thrasher-corp/perpvault/common/log"
	"github.com/thrasher-corp/perpvault/currency"
	"github.com/thrasher-corp/perpvault/engine"
	"github.com/thrasher-corp/perpvault/vault"
)

var apiLog = log.NewSubLogger("RESTAPI")

// viewTTL bounds how long a memoized rendered view (handlePosition,
// handlePool) is served before the handler re-reads the Vault. Polling
// clients hammering these GET routes inside one tick of the executor loop
// hit the cache instead of re-marshalling the same state repeatedly.
const viewTTL = 2 * time.Second

// renderedView is what Server.views stores: a pre-marshalled JSON body
// stamped with when it was rendered, so the cache can tell a still-fresh
// entry from a stale one without a separate expiry map.
type renderedView struct {
	renderedAt time.Time
	body       []byte
}

// Server wraps a gorilla/mux router with the engine's public and admin
// routes, one shared rate.Limiter per remote caller.
type Server struct {
	router *mux.Router
	eng    *engine.Engine

	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
	limit      rate.Limit
	burst      int

	views *cache.Cache
}

// New builds a Server wired to eng, throttling every route at ratePerSec
// requests/second with the given burst, per remote address (the request's
// RemoteAddr, host and port).
func New(eng *engine.Engine, ratePerSec float64, burst int) *Server {
	s := &Server{
		eng:      eng,
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(ratePerSec),
		burst:    burst,
		views:    cache.New(256),
	}
	s.router = mux.NewRouter()
	s.router.Use(s.throttle)

	s.router.HandleFunc("/v1/vault/position/{account}/{token}/{isLong}", s.handlePosition).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/vault/pool", s.handlePool).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/vault/paused", s.handlePaused).Methods(http.MethodGet)

	s.router.HandleFunc("/v1/admin/pause", s.handlePause).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/admin/whitelist", s.handleWhitelist).Methods(http.MethodPost)

	return s
}

// Router exposes the underlying mux.Router so the caller can hand it to
// http.Server or httptest.
func (s *Server) Router() *mux.Router { return s.router }

// ServeHTTP makes Server itself an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiterFor(r.RemoteAddr).Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limiterFor(caller string) *rate.Limiter {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()
	l, ok := s.limiters[caller]
	if !ok {
		l = rate.NewLimiter(s.limit, s.burst)
		s.limiters[caller] = l
	}
	return l
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		apiLog.Errorf("encode response: %v", err)
	}
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	isLong, err := strconv.ParseBool(vars["isLong"])
	if err != nil {
		http.Error(w, "isLong must be a bool", http.StatusBadRequest)
		return
	}
	k, err := key.GeneratePositionKey(vars["account"], currency.Token(vars["token"]).String(), isLong)
	if err != nil {
		http.Error(w, "invalid position key", http.StatusBadRequest)
		return
	}

	viewKey := "position|" + vars["account"] + "|" + vars["token"] + "|" + vars["isLong"]
	if body, fresh := s.freshView(viewKey); fresh {
		writeJSONBody(w, http.StatusOK, body)
		return
	}

	pos := s.eng.Vault.Position(k)
	if fixedpoint.IsZero(pos.Size) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "position does not exist"})
		return
	}
	body, err := json.Marshal(struct {
		*vault.Position
		CollateralHuman string `json:"collateralHuman"`
		EntryPriceHuman string `json:"entryPriceHuman"`
	}{
		Position:        pos,
		CollateralHuman: humanDollar(pos.Collateral),
		EntryPriceHuman: humanDollar(pos.EntryPrice),
	})
	if err != nil {
		apiLog.Errorf("encode position: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.views.Add(viewKey, renderedView{renderedAt: time.Now(), body: body})
	writeJSONBody(w, http.StatusOK, body)
}

func (s *Server) handlePool(w http.ResponseWriter, _ *http.Request) {
	const viewKey = "pool"
	if body, fresh := s.freshView(viewKey); fresh {
		writeJSONBody(w, http.StatusOK, body)
		return
	}

	poolAmount, reservedAmount, feeReserves := s.eng.Vault.PoolAmount(), s.eng.Vault.ReservedAmount(), s.eng.Vault.FeeReserves()
	body, err := json.Marshal(map[string]string{
		"poolAmount":          poolAmount.String(),
		"reservedAmount":      reservedAmount.String(),
		"feeReserves":         feeReserves.String(),
		"poolAmountHuman":     humanDollar(poolAmount),
		"reservedAmountHuman": humanDollar(reservedAmount),
	})
	if err != nil {
		apiLog.Errorf("encode pool: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.views.Add(viewKey, renderedView{renderedAt: time.Now(), body: body})
	writeJSONBody(w, http.StatusOK, body)
}

// freshView returns a still-fresh cached body for key, if any.
func (s *Server) freshView(viewKey string) ([]byte, bool) {
	v, ok := s.views.Get(viewKey)
	if !ok {
		return nil, false
	}
	view := v.(renderedView)
	if time.Since(view.renderedAt) > viewTTL {
		return nil, false
	}
	return view.body, true
}

func writeJSONBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// humanDollar renders an 18-decimal fixed-point dollar amount as a
// comma-grouped string with at most two decimals (trailing zeroes dropped,
// so 200 dollars renders as "200") for operator-facing display, leaving
// the raw uint256 string (exact) as the machine-readable field.
func humanDollar(v *uint256.Int) string {
	d := decimal.NewFromBigInt(v.ToBig(), -18)
	return convert.DecimalToHumanFriendlyString(d, 2, ".", ",")
}

func (s *Server) handlePaused(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"paused": s.eng.Vault.Paused()})
}

type adminRequest struct {
	Caller string `json:"caller"`
	TOTP   string `json:"totp"`
}

func (s *Server) verifyAdmin(w http.ResponseWriter, req adminRequest) bool {
	if err := s.eng.Config.Secrets.VerifyTOTP(req.TOTP); err != nil {
		http.Error(w, "invalid totp code", http.StatusForbidden)
		return false
	}
	return true
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	var req struct {
		adminRequest
		Paused bool `json:"paused"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !s.verifyAdmin(w, req.adminRequest) {
		return
	}
	var err error
	if req.Paused {
		err = s.eng.Vault.Pause(req.Caller)
	} else {
		err = s.eng.Vault.Unpause(req.Caller)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": s.eng.Vault.Paused()})
}

func (s *Server) handleWhitelist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		adminRequest
		Token                string `json:"token"`
		Active               bool   `json:"active"`
		MinProfitBasisPoints uint64 `json:"minProfitBasisPoints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if !s.verifyAdmin(w, req.adminRequest) {
		return
	}
	if err := s.eng.Vault.SetWhitelistedToken(req.Caller, currency.Token(req.Token), req.Active, fixedpoint.New(req.MinProfitBasisPoints)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"whitelisted": req.Active})
}
