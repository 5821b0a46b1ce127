package testing

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/Alia5/padctl/controller"
	"github.com/Alia5/padctl/internal/server/api"
)

// StartAPIServer starts an API server on a free port for c and calls register
// to allow the caller to register the handlers needed for the test. Returns
// the address and a function to call when done.
func StartAPIServer(t *testing.T, c *controller.Controller, register func(r *api.Router, c *controller.Controller, apiSrv *api.Server)) (addr string, done func()) {
	t.Helper()
	apiSrv := api.New(c, "127.0.0.1:0", api.ServerConfig{}, slog.Default())
	if register != nil {
		register(apiSrv.Router(), c, apiSrv)
	}
	if err := apiSrv.Start(); err != nil {
		t.Fatalf("api start failed: %v", err)
	}
	return apiSrv.Addr(), apiSrv.Close
}

// ExecCmd executes a raw command against a running API server and returns the full
// response line (including JSON payload if present) without the trailing newline.
// Client errors call t.Fatalf.
func ExecCmd(t *testing.T, addr string, cmd string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer c.Close()
	r := bufio.NewReader(c)
	_, _ = fmt.Fprintf(c, "%s\n", cmd)
	line, err := r.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			t.Fatalf("read failed: %v", err)
		}
	}
	if len(line) == 0 {
		return ""
	}
	return line[:len(line)-1]
}
