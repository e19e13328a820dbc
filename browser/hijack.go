package browser

import (
	"log/slog"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// trackerHosts are third-party ad and analytics hosts. Subdomains match too.
var trackerHosts = map[string]bool{
	"doubleclick.net":         true,
	"googlesyndication.com":   true,
	"googleadservices.com":    true,
	"google-analytics.com":    true,
	"googletagmanager.com":    true,
	"facebook.net":            true,
	"connect.facebook.net":    true,
	"hotjar.com":              true,
	"mixpanel.com":            true,
	"segment.io":              true,
	"scorecardresearch.com":   true,
	"amazon-adsystem.com":     true,
	"criteo.com":              true,
	"taboola.com":             true,
	"outbrain.com":            true,
	"cnzz.com":                true,
	"hm.baidu.com":            true,
	"pos.baidu.com":           true,
	"tanx.com":                true,
	"mmstat.com":              true,
	"umeng.com":               true,
	"growingio.com":           true,
	"sensorsdata.cn":          true,
	"zhugeio.com":             true,
	"adsame.com":              true,
	"miaozhen.com":            true,
	"admaster.com.cn":         true,
	"gridsumdissector.com":    true,
	"beacon.qq.com":           true,
	"pingjs.qq.com":           true,
	"cpro.baidustatic.com":    true,
	"static-analytics.lz.com": true,
}

// isTrackerHost reports whether host or one of its parent domains is a
// known tracker.
func isTrackerHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for host != "" {
		if trackerHosts[host] {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}

// blockRequests installs a request interceptor on page that fails requests
// for the named resource types and, with trackers set, for tracker hosts.
// It returns nil when there is nothing to block; otherwise the caller
// stops the router when the browser closes.
func blockRequests(page *rod.Page, types []string, trackers bool) *rod.HijackRouter {
	blocked := make(map[proto.NetworkResourceType]bool, len(types))
	for _, name := range types {
		rt, ok := resourceTypes[name]
		if !ok {
			slog.Warn("ignoring unknown blocked resource type", "type", name)
			continue
		}
		blocked[rt] = true
	}
	if len(blocked) == 0 && !trackers {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if blocked[h.Request.Type()] {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		if trackers && isTrackerHost(h.Request.URL().Hostname()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// Run blocks until Stop.
	go router.Run()

	slog.Info("request blocking enabled", "types", types, "trackers", trackers)
	return router
}
