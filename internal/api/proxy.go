package api

import (
	"net/http"
	"net/url"

	"golang.org/x/net/http/httpproxy"

	"github.com/ppiankov/uscensus/internal/model"
)

// proxyFunc resolves the proxy for a request from HTTP_PROXY, HTTPS_PROXY and
// NO_PROXY, each overridden by the matching config field when set
func proxyFunc(cfg model.HTTPConfig) func(*http.Request) (*url.URL, error) {
	pc := httpproxy.FromEnvironment()
	if cfg.HTTPProxy != "" {
		pc.HTTPProxy = cfg.HTTPProxy
	}
	if cfg.HTTPSProxy != "" {
		pc.HTTPSProxy = cfg.HTTPSProxy
	}
	if cfg.NoProxy != "" {
		pc.NoProxy = cfg.NoProxy
	}

	resolve := pc.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return resolve(req.URL)
	}
}
