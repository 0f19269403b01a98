package web

import (
	"context"
	"html/template"
	"net"
	"net/http"
	"strings"

	"commentiq-monitor/internal/domain"
	"commentiq-monitor/internal/infra/logging"
	red "commentiq-monitor/internal/infra/redis"
	"commentiq-monitor/internal/usecase"
)

// handleSuccess is the checkout return URL: the payment provider redirects
// the creator's browser here with ?session_id=<opaque>. The redirect usually
// races the provider webhook, so verification retries while the backend still
// reports the session as unsettled. `retry=1` re-runs a settled-with-error
// verification from scratch.
func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	ctx := logging.WithSessionID(r.Context(), logging.Redact(sessionID, false))

	if sessionID != "" {
		if err := s.allowVerify(ctx, r); err != nil {
			status, msg := mapError(err)
			http.Error(w, msg, status)
			return
		}
	}

	var (
		result *usecase.VerifyResult
		err    error
	)
	if r.URL.Query().Get("retry") == "1" {
		result, err = s.checkoutUC.Retry(ctx, sessionID)
	} else {
		result, err = s.checkoutUC.Verify(ctx, sessionID)
	}
	if err != nil {
		// The browser went away before the run settled; nothing to render.
		logging.With(ctx, s.log).Debug().Err(err).Msg("verification wait aborted")
		return
	}

	// The session cookie lets the failure page's balance link work without
	// the API key.
	if _, err := s.auth.Mint(w); err != nil {
		logging.With(ctx, s.log).Warn().Err(err).Msg("session mint failed")
	}

	s.renderSuccess(w, sessionID, result)
}

// allowVerify consults the per-IP limiter and reports domain.ErrRateLimited
// when the budget is spent. Limiter outages fail open.
func (s *Server) allowVerify(ctx context.Context, r *http.Request) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, red.VerifyKey(clientIP(r)), s.limits.Requests, s.limits.Window)
	if err != nil {
		s.log.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
		return nil
	}
	if !allowed {
		return domain.ErrRateLimited
	}
	return nil
}

// handleBalancePage is the escape hatch linked from the failure screen.
func (s *Server) handleBalancePage(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.ParseFromRequest(r); err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	b, err := s.balanceUC.Refresh(r.Context())
	if err != nil {
		b = s.balanceUC.Current()
		s.log.Warn().Err(err).Msg("balance refresh failed; rendering cached value")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = balancePage.Execute(w, struct {
		Tokens int64
		Stale  bool
	}{Tokens: b.Tokens, Stale: err != nil})
}

type successView struct {
	OK               bool
	AlreadyProcessed bool
	TokensAdded      int64
	NewBalance       int64
	Message          string
	RetryURL         string
	BalanceURL       string
}

func (s *Server) renderSuccess(w http.ResponseWriter, sessionID string, res *usecase.VerifyResult) {
	view := successView{
		BalanceURL: "/account/balance",
	}
	switch res.State {
	case usecase.VerifyStateConfirmed:
		view.OK = true
		view.TokensAdded = res.Receipt.TokensAdded
		view.NewBalance = res.Receipt.NewBalance
	case usecase.VerifyStateAlreadyProcessed:
		view.OK = true
		view.AlreadyProcessed = true
		view.NewBalance = res.Receipt.NewBalance
	default:
		view.Message = res.Message
		if sessionID != "" {
			view.RetryURL = "/success?session_id=" + template.URLQueryEscaper(sessionID) + "&retry=1"
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !view.OK {
		w.WriteHeader(http.StatusBadGateway)
	}
	if err := successPage.Execute(w, view); err != nil {
		s.log.Error().Err(err).Msg("render success page failed")
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i > 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

var successPage = template.Must(template.New("success").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{if .OK}}Purchase Complete{{else}}Purchase Result{{end}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
.btn{display:inline-block;margin-top:16px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
{{if .OK}}
  {{if .AlreadyProcessed}}
    <h1 class="ok">Purchase already processed</h1>
    <p>This purchase was confirmed earlier. No tokens were added twice.</p>
  {{else}}
    <h1 class="ok">Purchase complete</h1>
    <p><strong>{{.TokensAdded}}</strong> tokens added to your account.</p>
  {{end}}
  <p>Current balance: <strong>{{.NewBalance}}</strong> tokens.</p>
  <a class="btn" href="{{.BalanceURL}}">View balance</a>
{{else}}
  <h1 class="fail">Verification failed</h1>
  <p>{{.Message}}</p>
  {{if .RetryURL}}<a class="btn" href="{{.RetryURL}}">Try again</a>{{end}}
  <a class="btn" href="{{.BalanceURL}}">View balance</a>
  <p class="small">If your payment went through, your tokens will appear once the provider settles the charge.</p>
{{end}}
</div>
</body>
</html>`))

var balancePage = template.Must(template.New("balance").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>Token Balance</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
<h1>Token balance</h1>
<p><strong>{{.Tokens}}</strong> tokens available.</p>
{{if .Stale}}<p class="small">Shown from the last successful refresh; the backend is currently unreachable.</p>{{end}}
</div>
</body>
</html>`))
