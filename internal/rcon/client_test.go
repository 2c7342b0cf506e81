package rcon

import (
	"net"
	"strings"
	"testing"
	"time"
)

// fakeServer answers one UDP request per call with the given reply.
func fakeServer(t *testing.T, reply func(req string) string) string {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			if out := reply(string(buf[:n])); out != "" {
				pc.WriteTo([]byte(out), addr)
			}
		}
	}()
	return pc.LocalAddr().String()
}

func TestClientCommand(t *testing.T) {
	requests := make(chan string, 1)
	addr := fakeServer(t, func(req string) string {
		requests <- req
		return printPrefix + "map: ut4_casa\n"
	})

	c := NewClient(addr, "secret", time.Second)
	out, err := c.Command("status")
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	if got := <-requests; got != rconPrefix+"secret status" {
		t.Errorf("request = %q", got)
	}
	if out != "map: ut4_casa\n" {
		t.Errorf("response = %q", out)
	}
}

func TestClientBadPassword(t *testing.T) {
	addr := fakeServer(t, func(string) string { return printPrefix + "Bad rconpassword.\n" })
	c := NewClient(addr, "wrong", time.Second)
	if _, err := c.Command("status"); err != ErrBadPassword {
		t.Errorf("err = %v, want ErrBadPassword", err)
	}
}

func TestClientSilentCommand(t *testing.T) {
	addr := fakeServer(t, func(string) string { return "" })
	c := NewClient(addr, "pw", 100*time.Millisecond)
	out, err := c.Command("say hi")
	if err != nil || out != "" {
		t.Errorf("out = %q err = %v", out, err)
	}
}

func TestClientServerInfo(t *testing.T) {
	addr := fakeServer(t, func(req string) string {
		if req != getStatus {
			return ""
		}
		return q3Header + "statusResponse\n\\mapname\\ut4_turnpike\\g_gametype\\4\\g_modversion\\4.3.4\n0 50 \"Neo\"\n"
	})

	c := NewClient(addr, "", time.Second)
	vars, err := c.ServerInfo()
	if err != nil {
		t.Fatalf("ServerInfo: %v", err)
	}
	if vars["mapname"] != "ut4_turnpike" || vars["g_gametype"] != "4" || vars["g_modversion"] != "4.3.4" {
		t.Errorf("vars = %v", vars)
	}
}

func TestParseCvar(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`"g_nextmap" is:"ut4_casa^7" default:"^7"`, "ut4_casa", true},
		{`"sv_hostname" is:"My: Server^7", the default`, "My: Server", true},
		{`"g_gear" is:"0"`, "0", true},
		{`Unknown command "foo"`, "", false},
	}
	for _, tt := range tests {
		got, ok := ParseCvar(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseCvar(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestParseStatus(t *testing.T) {
	out := strings.Join([]string{
		"map: ut4_abbey",
		"num score ping name            lastmsg address               qport rate",
		"--- ----- ---- --------------- ------- --------------------- ----- -----",
		"  0    12   45 Neo^7                 0 1.2.3.4:27960          1234 25000",
		"  3     0 CNCT Smith^7               0 5.6.7.8:27960          4321 25000",
		"  4     2  310 Big Boss^7          100 9.9.9.9:27960          1111 25000",
	}, "\n")

	m, players := ParseStatus(out)
	if m != "ut4_abbey" {
		t.Errorf("map = %q", m)
	}
	if len(players) != 3 {
		t.Fatalf("players = %+v", players)
	}
	if players[0].Num != 0 || players[0].Ping != 45 || players[0].Name != "Neo" || players[0].Address != "1.2.3.4:27960" {
		t.Errorf("player 0 = %+v", players[0])
	}
	if players[1].Ping != 999 {
		t.Errorf("connecting ping = %d, want 999", players[1].Ping)
	}
	if players[2].Name != "Big Boss" || players[2].Ping != 310 {
		t.Errorf("player 4 = %+v", players[2])
	}
}

func TestParseMapList(t *testing.T) {
	out := "Directory of maps\n----------\n/ut4_casa.bsp\n/ut4_abbey.bsp\n/ut4_casa.bsp\nreadme.txt\n"
	maps := ParseMapList(out)
	if len(maps) != 2 || maps[0] != "ut4_abbey" || maps[1] != "ut4_casa" {
		t.Errorf("maps = %v", maps)
	}
}
