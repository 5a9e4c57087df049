package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/playmatatu/carrom/internal/config"
)

// allow letters, numbers, punctuation, symbols and space separators
var validName = regexp.MustCompile(`^[\p{L}\p{N}\p{P}\p{S}\p{Zs}]+$`)

const maxDisplayName = 32

// normalizeDisplayName trims a display name and reports whether it is acceptable.
// An empty name is accepted and left for the manager to default.
func normalizeDisplayName(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", true
	}
	if len([]rune(name)) > maxDisplayName || !validName.MatchString(name) {
		return "", false
	}
	return name, true
}

// generateQueueToken returns a short random hex token used as the external queue token
func generateQueueToken() string {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("qt_%d", time.Now().UnixNano()%1000000)
	}
	return hex.EncodeToString(b)
}

// matchLink is the frontend URL a seat holder opens to play.
func matchLink(cfg *config.Config, matchToken, seatToken string) string {
	link := cfg.FrontendURL + "/m/" + matchToken
	if seatToken != "" {
		link += "?st=" + seatToken
	}
	return link
}

// wsPath is the websocket route for a match, relative to the API host.
func wsPath(matchToken string) string {
	return "/api/v1/match/" + matchToken + "/ws"
}
