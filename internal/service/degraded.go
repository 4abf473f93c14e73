package service

import (
	"net"
	"net/url"
	"strings"
)

// DegradedMode indica si el gateway responde localmente en vez de llamar al backend.
type DegradedMode int

const (
	DegradedNone DegradedMode = iota
	DegradedDemo
	DegradedSetup
)

func (m DegradedMode) String() string {
	switch m {
	case DegradedDemo:
		return "demo"
	case DegradedSetup:
		return "setup"
	default:
		return "none"
	}
}

// DegradedDecision es el resultado de ResolveDegraded.
type DegradedDecision struct {
	Mode   DegradedMode
	Reason string
}

func (d DegradedDecision) Degraded() bool {
	return d.Mode != DegradedNone
}

// Response devuelve el texto enlatado para el modo; vacio si no hay degradacion.
func (d DegradedDecision) Response() string {
	switch d.Mode {
	case DegradedDemo:
		return demoResponse
	case DegradedSetup:
		return setupResponse
	default:
		return ""
	}
}

// ResolveDegraded decide el modo solo a partir del entorno y el endpoint configurado.
// No hace ninguna llamada de red.
func ResolveDegraded(isProduction bool, endpoint string) DegradedDecision {
	endpoint = strings.TrimSpace(endpoint)
	switch {
	case endpoint == "":
		return degradedFor(isProduction, "no endpoint configured")
	case isProduction && isLoopbackEndpoint(endpoint):
		return degradedFor(isProduction, "endpoint points at a loopback address")
	default:
		return DegradedDecision{Mode: DegradedNone}
	}
}

func degradedFor(isProduction bool, reason string) DegradedDecision {
	if isProduction {
		return DegradedDecision{Mode: DegradedSetup, Reason: reason}
	}
	return DegradedDecision{Mode: DegradedDemo, Reason: reason}
}

func isLoopbackEndpoint(endpoint string) bool {
	raw := endpoint
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}

const demoResponse = `**Demo mode:** the investor matching service is not connected in this environment, so this is a sample reply.

Once the matching service is running, Deal Fit can:
- Match your startup with investors by sector, stage and check size
- Use your uploaded pitch deck as context for every question
- Explain why each firm is a fit and who to reach out to

Start the matching service locally and point ` + "`API_URL`" + ` at it to get real recommendations.`

const setupResponse = `The investor matching service is not configured for this deployment yet.

To enable recommendations:
1. Deploy the Deal Fit matching API.
2. Set the ` + "`API_URL`" + ` environment variable to its public URL (not localhost).
3. Redeploy the gateway.

If you keep seeing this message, please contact the site administrator.`
