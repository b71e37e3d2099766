package imapclient

import (
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infodancer/mailcore/internal/session"
	"github.com/infodancer/mailcore/internal/transport/socket"
)

// newTestClient wires a Client directly to one end of a net.Pipe, with
// a goroutine on the other end scripted to reply okFor every tagged
// command it reads.
func newTestClient(t *testing.T, reply func(tag, line string) string) *Client {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	t.Cleanup(func() { clientConn.Close(); serverConn.Close() })

	go func() {
		srv := socket.New(serverConn, time.Second)
		for {
			line, err := srv.Gets()
			if err != nil {
				return
			}
			tag, _ := splitTag(line)
			resp := reply(tag, line)
			if resp == "" {
				return
			}
			if werr := srv.WriteString(resp); werr != nil {
				return
			}
		}
	}()

	return &Client{
		Base:      session.NewBase(session.KindIMAP, socket.New(clientConn, time.Second), slog.Default(), 0, 0),
		separator: '/',
	}
}

func TestCopySendsSingleUIDCopyForRange(t *testing.T) {
	var seen []string
	cl := newTestClient(t, func(tag, line string) string {
		seen = append(seen, line)
		return tag + " OK COPY completed\r\n"
	})
	err := cl.Copy(context.Background(), []uint32{1, 2, 3}, "Archive")
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Contains(t, seen[0], "UID COPY 1:3 Archive")
}

func TestStoreAddFlags(t *testing.T) {
	var seen string
	cl := newTestClient(t, func(tag, line string) string {
		seen = line
		return tag + " OK STORE completed\r\n"
	})
	err := cl.Store(context.Background(), []uint32{5}, StoreAdd, FlagSeen)
	require.NoError(t, err)
	assert.Contains(t, seen, "UID STORE 5 +FLAGS (\\Seen)")
}

func TestExpungeCloseLogout(t *testing.T) {
	cl := newTestClient(t, func(tag, line string) string {
		return tag + " OK done\r\n"
	})
	cl.selected = &MailboxStatus{Name: "INBOX"}
	require.NoError(t, cl.Expunge(context.Background()))
	require.NoError(t, cl.Close(context.Background()))
	assert.Nil(t, cl.selected)
	require.NoError(t, cl.Logout(context.Background()))
}

func TestDrainUntilTaggedReturnsErrorOnNO(t *testing.T) {
	cl := newTestClient(t, func(tag, line string) string {
		return tag + " NO denied\r\n"
	})
	err := cl.Expunge(context.Background())
	assert.Error(t, err)
}
