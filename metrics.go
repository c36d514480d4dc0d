package adminauth

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the Prometheus instruments the Engine reports into. All
// methods are nil-safe so an Engine built without metrics costs nothing.
type Metrics struct {
	logins             *prometheus.CounterVec
	mfaChallenges      *prometheus.CounterVec
	tokensIssued       *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	permissionChecks   *prometheus.CounterVec
	auditEmitted       prometheus.Counter
	auditDropped       prometheus.Counter
}

// NewMetrics builds and registers the instrument set on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminauth_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"result"}),
		mfaChallenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminauth_mfa_challenges_total",
			Help: "MFA challenge completions by method and outcome.",
		}, []string{"method", "result"}),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminauth_tokens_issued_total",
			Help: "Signed tokens issued by kind.",
		}, []string{"kind"}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminauth_token_verifications_total",
			Help: "Access token verifications by outcome.",
		}, []string{"result"}),
		permissionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adminauth_permission_checks_total",
			Help: "Permission resolutions by outcome.",
		}, []string{"result"}),
		auditEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminauth_audit_events_total",
			Help: "Audit events handed to the dispatcher.",
		}),
		auditDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "adminauth_audit_dropped_total",
			Help: "Audit events shed because the buffer was full.",
		}),
	}
	reg.MustRegister(
		m.logins,
		m.mfaChallenges,
		m.tokensIssued,
		m.tokenVerifications,
		m.permissionChecks,
		m.auditEmitted,
		m.auditDropped,
	)
	return m
}

func (m *Metrics) login(result string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) mfaChallenge(method, result string) {
	if m == nil {
		return
	}
	m.mfaChallenges.WithLabelValues(method, result).Inc()
}

func (m *Metrics) tokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

func (m *Metrics) tokenVerification(result string) {
	if m == nil {
		return
	}
	m.tokenVerifications.WithLabelValues(result).Inc()
}

func (m *Metrics) permissionCheck(result string) {
	if m == nil {
		return
	}
	m.permissionChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) auditEvent() {
	if m == nil {
		return
	}
	m.auditEmitted.Inc()
}

func (m *Metrics) auditDrop() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}
