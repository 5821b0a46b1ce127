package api_test

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/padctl/internal/server/api"
)

func TestRouterMatch(t *testing.T) {
	r := api.NewRouter()
	r.Register("status", func(*api.Request, *api.Response, *slog.Logger) error { return nil })
	r.Register("Bus/{busId}/add", func(*api.Request, *api.Response, *slog.Logger) error { return nil })

	h, params := r.Match("status")
	require.NotNil(t, h)
	assert.Empty(t, params)

	h, params = r.Match("bus/12/add")
	require.NotNil(t, h)
	assert.Equal(t, map[string]string{"busId": "12"}, params)

	for _, p := range []string{"bus//add", "bus/12", "bus/12/add/x", "stat"} {
		h, _ = r.Match(p)
		assert.Nil(t, h, p)
	}
}

func TestServerCloseCancelsHandlers(t *testing.T) {
	srv := api.New(nil, "127.0.0.1:0", api.ServerConfig{}, slog.Default())
	entered := make(chan struct{})
	srv.Router().Register("block", func(req *api.Request, res *api.Response, _ *slog.Logger) error {
		close(entered)
		<-req.Ctx.Done()
		return req.Ctx.Err()
	})
	srv.Router().Register("echo/{word}", func(req *api.Request, res *api.Response, _ *slog.Logger) error {
		res.JSON = fmt.Sprintf(`{"word":%q,"args":%d}`, req.Params["word"], len(req.Args))
		return nil
	})
	require.NoError(t, srv.Start())

	conn, err := net.Dial("tcp", srv.Addr())
	require.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)

	_, err = fmt.Fprintf(conn, "\nECHO/hi a b\n")
	require.NoError(t, err)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, `{"word":"hi","args":2}`+"\n", line)

	_, err = fmt.Fprintf(conn, "block\n")
	require.NoError(t, err)
	<-entered

	closed := make(chan struct{})
	go func() {
		srv.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return while a handler was blocked")
	}
}
