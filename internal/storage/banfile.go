package storage

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// BanFile is the plain text subnet ban list the game server reads.
type BanFile struct {
	mu   sync.Mutex
	path string
}

func NewBanFile(path string) *BanFile { return &BanFile{path: path} }

// Subnet turns 1.2.3.4 into the 1.2.3.0:-1 form used by the server.
func Subnet(ip string) string {
	i := strings.LastIndex(ip, ".")
	if i < 0 {
		return ip
	}
	return ip[:i] + ".0:-1"
}

// Append adds a permanent ban line for the subnet of ip.
func (f *BanFile) Append(ip, name, reason string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ban file: %w", err)
	}
	line := fmt.Sprintf("%-20s // %-20s banned: %s  reason: %s\n", Subnet(ip), name, now.Format("02/01/2006 (15:04)"), reason)
	if _, err := fh.WriteString(line); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

// Remove drops every line for the /24 network of ip and returns how many
// were removed.
func (f *BanFile) Remove(ip string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prefix := ip
	if i := strings.LastIndex(ip, "."); i >= 0 {
		prefix = ip[:i+1]
	}

	fh, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var kept []string
	removed := 0
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		if strings.HasPrefix(strings.TrimSpace(sc.Text()), prefix) {
			removed++
			continue
		}
		kept = append(kept, sc.Text())
	}
	fh.Close()
	if err := sc.Err(); err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, nil
	}

	body := strings.Join(kept, "\n")
	if len(kept) > 0 {
		body += "\n"
	}
	return removed, os.WriteFile(f.path, []byte(body), 0o644)
}
