// Package api serves the self-service portal: the login and MFA flows,
// access request pages, environment URLs and VPN profile downloads, plus
// the operational /metrics, /healthz and /readyz endpoints.
package api
