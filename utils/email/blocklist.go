// Package email screens registration addresses against a list of disposable
// email domains.
package email

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// DefaultBlocklistURL is the community-maintained list of disposable domains.
const DefaultBlocklistURL = "https://raw.githubusercontent.com/disposable-email-domains/disposable-email-domains/main/disposable_email_blocklist.conf"

var (
	mu             sync.RWMutex
	blockedDomains map[string]struct{}
)

// Fetch downloads the blocklist at url and replaces the loaded domains.
func Fetch(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch disposable email blocklist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("disposable email blocklist returned status %d", resp.StatusCode)
	}
	count, err := Load(resp.Body)
	if err != nil {
		return err
	}
	log.Infof("Loaded %d disposable email domains", count)
	return nil
}

// Load reads one domain per line from r, skipping blanks and # comments, and
// replaces the loaded domains. It returns the number of domains read.
func Load(r io.Reader) (int, error) {
	domains := make(map[string]struct{})
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		domain := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if domain != "" && !strings.HasPrefix(domain, "#") {
			domains[domain] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read disposable email blocklist: %w", err)
	}

	mu.Lock()
	blockedDomains = domains
	mu.Unlock()
	return len(domains), nil
}

// Reset forgets every loaded domain.
func Reset() {
	mu.Lock()
	blockedDomains = nil
	mu.Unlock()
}

// IsDisposable reports whether address uses a blocked domain. Nothing is
// blocked until a list has been loaded.
func IsDisposable(address string) bool {
	_, domain, ok := strings.Cut(address, "@")
	if !ok {
		return false
	}
	domain = strings.ToLower(strings.TrimSpace(domain))

	mu.RLock()
	defer mu.RUnlock()
	_, blocked := blockedDomains[domain]
	return blocked
}
