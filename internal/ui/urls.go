package ui

import (
	"regexp"
	"strconv"
	"strings"
)

var localURLPattern = regexp.MustCompile(`(https?://(?:localhost|127\.0\.0\.1|0\.0\.0\.0):(\d+))`)

// URLCandidate is a local URL seen in dev server output with a priority
// score. Higher scores are more likely to be the page a user wants.
type URLCandidate struct {
	URL      string
	Port     int
	Priority int
}

// DetectURL extracts a local URL from a log line. The dev server may
// announce a different port than the configured one (Vite and Next.js
// both move to the next free port), so the dashboard prefers what the
// server says over what it was asked for.
func DetectURL(line string) (URLCandidate, bool) {
	matches := localURLPattern.FindStringSubmatch(line)
	if len(matches) < 3 {
		return URLCandidate{}, false
	}

	url := strings.TrimSuffix(matches[1], "/")
	url = strings.Replace(url, "://0.0.0.0:", "://localhost:", 1)
	url = strings.Replace(url, "://127.0.0.1:", "://localhost:", 1)
	port, _ := strconv.Atoi(matches[2])

	return URLCandidate{URL: url, Port: port, Priority: scoreURLLine(strings.ToLower(line), port)}, true
}

func scoreURLLine(lower string, port int) int {
	priority := 50

	// Next.js
	if containsAny(lower, "ready started server", "next dev", "▲ next") {
		priority += 100
	}
	// Vite
	if strings.Contains(lower, "local:") && containsAny(lower, "➜", "vite") {
		priority += 100
	}
	if containsAny(lower, "webpack compiled", "compiled successfully", "dev server running") {
		priority += 80
	}
	if containsAny(lower, "client", "frontend", "web:", "app:", "ui:") {
		priority += 60
	}

	switch port {
	case 3000, 3001, 5173, 5174, 4200:
		priority += 30
	case 8080:
		priority += 5
	}

	if containsAny(lower, "hono", "express", "fastify", "nestjs", "koa") {
		priority -= 40
	}
	if containsAny(lower, "server:", "api:", "backend:") {
		priority -= 50
	}
	if containsAny(lower, "http listening", "listening on http") &&
		!containsAny(lower, "client", "frontend", "local:") {
		priority -= 30
	}
	return priority
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
