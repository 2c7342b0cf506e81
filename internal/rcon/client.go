package rcon

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	q3Header    = "\xff\xff\xff\xff"
	getStatus   = q3Header + "getstatus\n"
	rconPrefix  = q3Header + "rcon "
	printPrefix = q3Header + "print\n"
	maxResponse = 65535
	readSlack   = 500 * time.Millisecond
)

// Client talks to one Quake 3 engine server over UDP
type Client struct {
	address  string
	password string
	timeout  time.Duration
}

// NewClient creates a client for host:port
func NewClient(address, password string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{address: address, password: password, timeout: timeout}
}

// Address returns the server address
func (c *Client) Address() string { return c.address }

// Command sends an RCON command and returns the printed response
func (c *Client) Command(command string) (string, error) {
	conn, err := net.DialTimeout("udp", c.address, c.timeout)
	if err != nil {
		return "", fmt.Errorf("connecting to %s: %w", c.address, err)
	}
	defer conn.Close()

	// Format: \xff\xff\xff\xffrcon <password> <command>
	request := fmt.Sprintf("%s%s %s", rconPrefix, c.password, command)
	if _, err := conn.Write([]byte(request)); err != nil {
		return "", fmt.Errorf("sending rcon command: %w", err)
	}

	// Long output arrives in several packets
	var response strings.Builder
	buf := make([]byte, maxResponse)
	deadline := c.timeout
	for {
		conn.SetReadDeadline(time.Now().Add(deadline))
		n, err := conn.Read(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if response.Len() > 0 {
					break
				}
				// Commands such as say print nothing
				return "", nil
			}
			if response.Len() > 0 {
				break
			}
			return "", fmt.Errorf("reading response: %w", err)
		}

		data := string(buf[:n])
		if strings.HasPrefix(data, printPrefix) {
			response.WriteString(strings.TrimPrefix(data, printPrefix))
		}
		// after the first packet, only wait briefly for continuations
		deadline = readSlack
	}

	out := response.String()
	if strings.HasPrefix(out, "Bad rconpassword") {
		return out, ErrBadPassword
	}
	return out, nil
}

// ServerInfo queries getstatus and returns the server vars
func (c *Client) ServerInfo() (map[string]string, error) {
	conn, err := net.DialTimeout("udp", c.address, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", c.address, err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write([]byte(getStatus)); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	buf := make([]byte, maxResponse)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return parseStatusResponse(buf[:n])
}

// parseStatusResponse parses \xff\xff\xff\xffstatusResponse\n<vars>\n<players>...
func parseStatusResponse(data []byte) (map[string]string, error) {
	response := string(data)
	if !strings.HasPrefix(response, q3Header+"statusResponse\n") {
		return nil, fmt.Errorf("invalid response prefix")
	}
	response = strings.TrimPrefix(response, q3Header+"statusResponse\n")
	line, _, _ := strings.Cut(response, "\n")
	return parseVars(line), nil
}

// parseVars parses backslash-separated key/value pairs
// Format: \key1\value1\key2\value2...
func parseVars(line string) map[string]string {
	vars := make(map[string]string)
	parts := strings.Split(line, "\\")

	start := 0
	if len(parts) > 0 && parts[0] == "" {
		start = 1
	}
	for i := start; i+1 < len(parts); i += 2 {
		vars[strings.ToLower(parts[i])] = parts[i+1]
	}
	return vars
}

// ParseCvar extracts the value from a cvar query response such as
// `"g_gametype" is:"4^7" default:"0^7"`.
func ParseCvar(response string) (string, bool) {
	_, rest, ok := strings.Cut(response, "is:\"")
	if !ok {
		return "", false
	}
	if end := strings.Index(rest, "^7\""); end >= 0 {
		return rest[:end], true
	}
	if end := strings.Index(rest, "\""); end >= 0 {
		return rest[:end], true
	}
	return "", false
}

// StatusPlayer is one row of the rcon status table
type StatusPlayer struct {
	Num     int
	Score   int
	Ping    int
	Name    string
	Address string
}

// ParseStatus parses rcon status output:
//
//	map: ut4_turnpike
//	num score ping name            lastmsg address               qport rate
//	--- ----- ---- --------------- ------- --------------------- ----- -----
//	  0    12   45 Neo^7                 0 1.2.3.4:27960          1234 25000
func ParseStatus(response string) (mapName string, players []StatusPlayer) {
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "map:") {
			mapName = strings.TrimSpace(strings.TrimPrefix(line, "map:"))
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 8 {
			continue
		}
		num, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		p := StatusPlayer{Num: num}
		p.Score, _ = strconv.Atoi(fields[1])
		// CNCT and ZMBI are reported for connecting and zombie slots
		if p.Ping, err = strconv.Atoi(fields[2]); err != nil {
			p.Ping = 999
		}
		// names may contain spaces, so read the fixed columns from the right
		n := len(fields)
		p.Address = fields[n-3]
		p.Name = strings.TrimSuffix(strings.Join(fields[3:n-4], " "), "^7")
		players = append(players, p)
	}
	return mapName, players
}

// ParseMapList extracts map names from `dir map bsp` output.
func ParseMapList(response string) []string {
	seen := make(map[string]bool)
	var maps []string
	for _, f := range strings.Fields(response) {
		if !strings.HasPrefix(f, "/") || !strings.HasSuffix(f, ".bsp") {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(f, "/"), ".bsp")
		if !seen[name] {
			seen[name] = true
			maps = append(maps, name)
		}
	}
	sort.Strings(maps)
	return maps
}
